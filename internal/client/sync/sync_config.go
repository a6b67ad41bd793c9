package sync

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	DefaultDownloadConcurrency = 50
	DefaultUploadConcurrency   = 10
)

var ErrInvalidConfig = errors.New("invalid sync config")

// Logger is the logging capability the engine depends on. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}

// ContentTypeResolver maps a file name to the content type stored with an uploaded object.
type ContentTypeResolver func(fileName string) string

// Config holds everything a SyncEngine needs. Use NewConfig to get the defaults.
type Config struct {
	Bucket       string
	Prefix       string
	WorkspaceDir string

	DownloadConcurrency int
	UploadConcurrency   int

	// IgnorePatterns take precedence over the defaults and the workspace ignore file.
	IgnorePatterns []string
	// ContentTypeResolver replaces the built-in extension table when set.
	ContentTypeResolver ContentTypeResolver
	// DeleteRemoteOnPush removes remote objects that are absent locally after uploads finish.
	DeleteRemoteOnPush bool

	Logger     Logger
	OnProgress ProgressFunc
	// OnComplete receives the result of every pull and push that started, background pulls included.
	OnComplete func(*SyncResult)
}

func NewConfig(bucket, prefix, workspaceDir string) *Config {
	return &Config{
		Bucket:              bucket,
		Prefix:              prefix,
		WorkspaceDir:        workspaceDir,
		DownloadConcurrency: DefaultDownloadConcurrency,
		UploadConcurrency:   DefaultUploadConcurrency,
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if c.Bucket == "" {
		return fmt.Errorf("%w: bucket is required", ErrInvalidConfig)
	}
	if c.Prefix == "" {
		return fmt.Errorf("%w: prefix is required", ErrInvalidConfig)
	}
	if c.WorkspaceDir == "" {
		return fmt.Errorf("%w: workspace dir is required", ErrInvalidConfig)
	}
	if c.DownloadConcurrency <= 0 {
		return fmt.Errorf("%w: download concurrency must be positive, got %d", ErrInvalidConfig, c.DownloadConcurrency)
	}
	if c.UploadConcurrency <= 0 {
		return fmt.Errorf("%w: upload concurrency must be positive, got %d", ErrInvalidConfig, c.UploadConcurrency)
	}
	return nil
}

// keyPrefix returns the prefix with exactly one trailing slash, so "data" never matches "database/".
func (c *Config) keyPrefix() string {
	return strings.TrimSuffix(c.Prefix, "/") + "/"
}

func (c *Config) resolveContentType(name string) string {
	if c.ContentTypeResolver != nil {
		return c.ContentTypeResolver(name)
	}
	return DefaultContentTypeResolver(name)
}

func (c *Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
