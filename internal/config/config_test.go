package config

import (
	"os"
	"path/filepath"
	"testing"

	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NilError(t, cfg.Validate())
	assert.Equal(t, cfg.Refresh().Seconds(), 2.0)
	assert.Equal(t, cfg.Backoff().Seconds(), 5.0)
	assert.Equal(t, cfg.KillWait().Seconds(), 1.0)
	assert.Equal(t, cfg.OpenFilesLimit, 10)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Configuration)
		wantErr string
	}{
		{"zero refresh", func(c *Configuration) { c.RefreshInterval = 0 }, "refresh_interval must be positive"},
		{"short backoff", func(c *Configuration) { c.BackoffInterval = 1000 }, "backoff_interval (1000)"},
		{"zero kill timeout", func(c *Configuration) { c.KillTimeout = 0 }, "kill_timeout must be positive"},
		{"zero open files", func(c *Configuration) { c.OpenFilesLimit = 0 }, "open_files_limit must be positive"},
		{"zero queue", func(c *Configuration) { c.SendQueueSize = -1 }, "send_queue_size must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}

func TestValidateFillsListenAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = ""
	assert.NilError(t, cfg.Validate())
	assert.Equal(t, cfg.ListenAddr, DefaultListenAddr)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.NilError(t, err)
	assert.DeepEqual(t, cfg, DefaultConfig())
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omniwatch.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"refresh_interval": 500, "auto_refresh": false}`), 0644))

	cfg, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.Equal(t, cfg.RefreshInterval, 500)
	assert.Equal(t, cfg.AutoRefresh, false)
	assert.Equal(t, cfg.BackoffInterval, 5000)
	assert.Equal(t, cfg.ListenAddr, DefaultListenAddr)
}

func TestLoadConfigInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omniwatch.json")
	assert.NilError(t, os.WriteFile(path, []byte(`{"kill_timeout": -5}`), 0644))

	cfg, err := LoadConfig(path)
	assert.ErrorContains(t, err, "kill_timeout")
	assert.DeepEqual(t, cfg, DefaultConfig())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omniwatch.json")
	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:8080"
	cfg.BroadcastActions = false

	assert.NilError(t, SaveConfig(cfg, path))
	loaded, err := LoadConfig(path)
	assert.NilError(t, err)
	assert.DeepEqual(t, loaded, cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("OMNIWATCH_LISTEN_ADDR", ":7000")
	t.Setenv("OMNIWATCH_REFRESH_INTERVAL", "1000")
	t.Setenv("OMNIWATCH_AUTO_REFRESH", "false")

	cfg := DefaultConfig()
	assert.NilError(t, cfg.ApplyEnv(filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, cfg.ListenAddr, ":7000")
	assert.Equal(t, cfg.RefreshInterval, 1000)
	assert.Equal(t, cfg.AutoRefresh, false)
}

func TestApplyEnvFromDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	assert.NilError(t, os.WriteFile(path, []byte("OMNIWATCH_OPEN_FILES_LIMIT=3\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("OMNIWATCH_OPEN_FILES_LIMIT") })

	cfg := DefaultConfig()
	assert.NilError(t, cfg.ApplyEnv(path))
	assert.Equal(t, cfg.OpenFilesLimit, 3)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("OMNIWATCH_KILL_TIMEOUT", "soon")
	t.Setenv("OMNIWATCH_ENABLE_GPU", "maybe")

	err := DefaultConfig().ApplyEnv(filepath.Join(t.TempDir(), "missing.env"))
	assert.Assert(t, is.ErrorContains(err, "OMNIWATCH_KILL_TIMEOUT"))
	assert.Assert(t, is.ErrorContains(err, "OMNIWATCH_ENABLE_GPU"))
}

func TestSaveConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "omniwatch.json")
	cfg := DefaultConfig()
	cfg.KillTimeout = -1

	assert.ErrorContains(t, SaveConfig(cfg, path), "kill_timeout")
	_, err := os.Stat(path)
	assert.Assert(t, os.IsNotExist(err))
}
