package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/openmined/bucketsync/internal/client/config"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/utils"
	"github.com/openmined/bucketsync/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	envPrefix      = "BUCKETSYNC"
	configFileName = "config"
)

var (
	red   = color.New(color.FgHiRed, color.Bold).SprintFunc()
	green = color.New(color.FgHiGreen).SprintFunc()
	cyan  = color.New(color.FgHiCyan).SprintFunc()
)

// config key -> flag name
var flagBindings = map[string]string{
	"bucket":                "bucket",
	"prefix":                "prefix",
	"workspace_dir":         "workspace",
	"region":                "region",
	"endpoint":              "endpoint",
	"download_concurrency":  "download-concurrency",
	"upload_concurrency":    "upload-concurrency",
	"ignore_patterns":       "ignore",
	"delete_remote_on_push": "delete-remote",
	"control_plane.addr":    "addr",
	"control_plane.token":   "token",
	"history_path":          "history",
}

var rootCmd = &cobra.Command{
	Use:           "bucketsync",
	Short:         "Mirror an S3 prefix into a local workspace and back",
	Version:       version.Detailed(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger(cmd)
	},
}

func init() {
	addRootFlags(rootCmd)
}

func addRootFlags(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.SortFlags = false
	pf.StringP("config", "c", config.DefaultConfigPath, "bucketsync config file")
	pf.StringP("bucket", "b", "", "S3 bucket name")
	pf.StringP("prefix", "p", "", "key prefix to mirror")
	pf.StringP("workspace", "w", "", "local workspace directory")
	pf.String("region", "", "AWS region (default: SDK resolution)")
	pf.String("endpoint", "", "S3-compatible endpoint url")
	pf.Int("download-concurrency", sync.DefaultDownloadConcurrency, "parallel downloads")
	pf.Int("upload-concurrency", sync.DefaultUploadConcurrency, "parallel uploads")
	pf.StringSlice("ignore", nil, "extra ignore patterns")
	pf.String("history", "", "history database path (default: <workspace>/.bucketsync/history.db)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-file", "", "also write JSON logs to this file")
}

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	// Setup root context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func setupLogger(cmd *cobra.Command) error {
	levelStr, _ := cmd.Flags().GetString("log-level")
	level, err := utils.ParseLogLevel(levelStr)
	if err != nil {
		return err
	}

	stderrHandler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})

	var fileHandler slog.Handler
	if logFile, _ := cmd.Flags().GetString("log-file"); logFile != "" {
		if err := utils.EnsureParent(logFile); err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		// closed on exit
		fileHandler = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	slog.SetDefault(slog.New(utils.NewFanoutHandler(stderrHandler, fileHandler)))
	return nil
}

// loadConfig merges, lowest to highest precedence: defaults, config file, environment, flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v := viper.New()

	configPath := config.DefaultConfigPath
	if f := cmd.Flags().Lookup("config"); f != nil {
		configPath = f.Value.String()
	}

	if cmd.Flags().Changed("config") {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(filepath.Dir(config.DefaultConfigPath))
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		var notFound viper.ConfigFileNotFoundError
		if !enoent && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	setDefaults(v)

	for key, name := range flagBindings {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	// Set up environment variables, e.g. BUCKETSYNC_CONTROL_PLANE_ADDR
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := config.Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config decode: %w", err)
	}

	cfg.Path = v.ConfigFileUsed()
	if cfg.Path == "" {
		cfg.Path = configPath
	}
	return cfg, nil
}

// every key needs a default so environment-only values reach Unmarshal
func setDefaults(v *viper.Viper) {
	def := config.Default()
	v.SetDefault("bucket", "")
	v.SetDefault("prefix", "")
	v.SetDefault("workspace_dir", "")
	v.SetDefault("region", "")
	v.SetDefault("endpoint", "")
	v.SetDefault("access_key", "")
	v.SetDefault("secret_key", "")
	v.SetDefault("download_concurrency", def.DownloadConcurrency)
	v.SetDefault("upload_concurrency", def.UploadConcurrency)
	v.SetDefault("ignore_patterns", []string{})
	v.SetDefault("delete_remote_on_push", false)
	v.SetDefault("control_plane.addr", def.ControlPlane.Addr)
	v.SetDefault("control_plane.token", "")
	v.SetDefault("history_path", "")
}

// loadValidConfig loads and validates, and stops cobra from printing usage for runtime errors.
func loadValidConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cmd.SilenceUsage = true
	return cfg, nil
}
