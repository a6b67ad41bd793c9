package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/openmined/bucketsync/internal/blob"
	"github.com/openmined/bucketsync/internal/client/sync"
	"github.com/openmined/bucketsync/internal/utils"
	"gopkg.in/yaml.v3"
)

const (
	DefaultControlPlaneAddr = "127.0.0.1:7938"
	historyFileName         = "history.db"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".bucketsync", "config.yaml")

	ErrBucketRequired    = errors.New("bucket is required")
	ErrPrefixRequired    = errors.New("prefix is required")
	ErrWorkspaceRequired = errors.New("workspace_dir is required")
)

// Config is the on-disk and environment configuration of bucketsync.
type Config struct {
	Bucket       string `mapstructure:"bucket" yaml:"bucket"`
	Prefix       string `mapstructure:"prefix" yaml:"prefix"`
	WorkspaceDir string `mapstructure:"workspace_dir" yaml:"workspace_dir"`

	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key,omitempty"`

	DownloadConcurrency int      `mapstructure:"download_concurrency" yaml:"download_concurrency"`
	UploadConcurrency   int      `mapstructure:"upload_concurrency" yaml:"upload_concurrency"`
	IgnorePatterns      []string `mapstructure:"ignore_patterns" yaml:"ignore_patterns,omitempty"`
	DeleteRemoteOnPush  bool     `mapstructure:"delete_remote_on_push" yaml:"delete_remote_on_push"`

	ControlPlane ControlPlaneConfig `mapstructure:"control_plane" yaml:"control_plane"`
	HistoryPath  string             `mapstructure:"history_path" yaml:"history_path,omitempty"`

	Path string `mapstructure:"-" yaml:"-"`
}

type ControlPlaneConfig struct {
	Addr  string `mapstructure:"addr" yaml:"addr"`
	Token string `mapstructure:"token" yaml:"token,omitempty"`
}

// Default returns a config with every optional value filled in.
func Default() *Config {
	return &Config{
		DownloadConcurrency: sync.DefaultDownloadConcurrency,
		UploadConcurrency:   sync.DefaultUploadConcurrency,
		ControlPlane: ControlPlaneConfig{
			Addr: DefaultControlPlaneAddr,
		},
	}
}

func (c *Config) Validate() error {
	if c.Bucket == "" {
		return ErrBucketRequired
	}
	if c.Prefix == "" {
		return ErrPrefixRequired
	}
	if c.WorkspaceDir == "" {
		return ErrWorkspaceRequired
	}

	dir, err := utils.ResolvePath(c.WorkspaceDir)
	if err != nil {
		return fmt.Errorf("workspace_dir: %w", err)
	}
	c.WorkspaceDir = dir

	if c.HistoryPath != "" {
		if c.HistoryPath, err = utils.ResolvePath(c.HistoryPath); err != nil {
			return fmt.Errorf("history_path: %w", err)
		}
	}

	if c.ControlPlane.Addr == "" {
		c.ControlPlane.Addr = DefaultControlPlaneAddr
	}

	if err := c.BlobConfig().Validate(); err != nil {
		return err
	}
	return c.SyncConfig(nil).Validate()
}

// SyncConfig maps the file config onto the engine config.
func (c *Config) SyncConfig(logger sync.Logger) *sync.Config {
	cfg := sync.NewConfig(c.Bucket, c.Prefix, c.WorkspaceDir)
	cfg.DownloadConcurrency = c.DownloadConcurrency
	cfg.UploadConcurrency = c.UploadConcurrency
	cfg.IgnorePatterns = c.IgnorePatterns
	cfg.DeleteRemoteOnPush = c.DeleteRemoteOnPush
	cfg.Logger = logger
	return cfg
}

func (c *Config) BlobConfig() *blob.S3BlobConfig {
	if c.Endpoint != "" {
		cfg := blob.WithMinioConfig(c.Endpoint, c.Bucket, c.AccessKey, c.SecretKey)
		if c.Region != "" {
			cfg.Region = c.Region
		}
		return cfg
	}
	return blob.WithS3Config(c.Bucket, c.Region, c.AccessKey, c.SecretKey, false)
}

// HistoryDBPath is where the daemon keeps run history. It defaults into the workspace
// metadata directory, which sync never touches.
func (c *Config) HistoryDBPath() string {
	if c.HistoryPath != "" {
		return c.HistoryPath
	}
	return filepath.Join(c.WorkspaceDir, sync.MetadataDirName, historyFileName)
}

// Masked returns a copy safe to print.
func (c *Config) Masked() *Config {
	masked := *c
	masked.AccessKey = utils.MaskSecret(c.AccessKey)
	masked.SecretKey = utils.MaskSecret(c.SecretKey)
	masked.ControlPlane.Token = utils.MaskSecret(c.ControlPlane.Token)
	masked.IgnorePatterns = append([]string(nil), c.IgnorePatterns...)
	return &masked
}

func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := c.YAML()
	if err != nil {
		return err
	}

	// may hold credentials
	return os.WriteFile(path, data, 0o600)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}
