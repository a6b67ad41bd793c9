package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/openmined/bucketsync/internal/client/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parsed returns a subcommand whose flags have been parsed from args, ready for loadConfig.
func parsed(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	var got *cobra.Command
	sub := &cobra.Command{
		Use: "inspect",
		RunE: func(cmd *cobra.Command, args []string) error {
			got = cmd
			return nil
		},
	}
	sub.Flags().String("addr", config.DefaultControlPlaneAddr, "")
	root, _ := newTestRoot(sub)
	root.SetArgs(append([]string{"inspect"}, args...))
	require.NoError(t, root.Execute())
	return got
}

func TestLoadConfig_Defaults(t *testing.T) {
	cmd := parsed(t, "--config", filepath.Join(t.TempDir(), "none.yaml"))

	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.DownloadConcurrency)
	assert.Equal(t, 10, cfg.UploadConcurrency)
	assert.Equal(t, config.DefaultControlPlaneAddr, cfg.ControlPlane.Addr)
	assert.Empty(t, cfg.Bucket)
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("BUCKETSYNC_BUCKET", "env-bucket")
	t.Setenv("BUCKETSYNC_PREFIX", "env/prefix")
	t.Setenv("BUCKETSYNC_WORKSPACE_DIR", t.TempDir())
	t.Setenv("BUCKETSYNC_UPLOAD_CONCURRENCY", "4")
	t.Setenv("BUCKETSYNC_SECRET_KEY", "shh")
	t.Setenv("BUCKETSYNC_CONTROL_PLANE_ADDR", "127.0.0.1:9999")
	t.Setenv("BUCKETSYNC_IGNORE_PATTERNS", "*.log,build/")

	cmd := parsed(t, "--config", filepath.Join(t.TempDir(), "none.yaml"))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-bucket", cfg.Bucket)
	assert.Equal(t, "env/prefix", cfg.Prefix)
	assert.Equal(t, 4, cfg.UploadConcurrency)
	assert.Equal(t, "shh", cfg.SecretKey)
	assert.Equal(t, "127.0.0.1:9999", cfg.ControlPlane.Addr)
	assert.Equal(t, []string{"*.log", "build/"}, cfg.IgnorePatterns)
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
bucket: file-bucket
prefix: file/prefix
workspace_dir: `+dir+`
download_concurrency: 7
control_plane:
  addr: 127.0.0.1:8001
  token: from-file
`), 0o600))

	t.Setenv("BUCKETSYNC_PREFIX", "env/prefix")

	cmd := parsed(t, "--config", path, "--bucket", "flag-bucket", "--addr", "127.0.0.1:8002")
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "flag-bucket", cfg.Bucket, "flag beats file")
	assert.Equal(t, "env/prefix", cfg.Prefix, "env beats file")
	assert.Equal(t, 7, cfg.DownloadConcurrency, "file beats default")
	assert.Equal(t, "127.0.0.1:8002", cfg.ControlPlane.Addr)
	assert.Equal(t, "from-file", cfg.ControlPlane.Token)
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bucket: [oops\n"), 0o600))

	cmd := parsed(t, "--config", path)
	_, err := loadConfig(cmd)
	assert.Error(t, err)
}

func TestIsLoopback(t *testing.T) {
	assert.True(t, isLoopback("127.0.0.1:7938"))
	assert.True(t, isLoopback("localhost:7938"))
	assert.True(t, isLoopback("[::1]:7938"))
	assert.False(t, isLoopback("0.0.0.0:7938"))
	assert.False(t, isLoopback(":7938"))
	assert.False(t, isLoopback("garbage"))
}

func TestEnsureToken(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, ensureToken(cfg))
	assert.Empty(t, cfg.ControlPlane.Token)

	cfg.ControlPlane.Addr = "0.0.0.0:7938"
	require.NoError(t, ensureToken(cfg))
	assert.Len(t, cfg.ControlPlane.Token, generatedTokenLength)

	cfg.ControlPlane.Token = "mine"
	require.NoError(t, ensureToken(cfg))
	assert.Equal(t, "mine", cfg.ControlPlane.Token)
}
