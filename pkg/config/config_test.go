package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Hour, cfg.Watch.Interval)
	assert.Equal(t, EngineAuto, cfg.Fetch.Engine)
	assert.Equal(t, "profile_log.csv", cfg.Output.LogFile)
	assert.Equal(t, "profile_pics", cfg.Output.PicsDirectory)
	assert.Equal(t, "last_pic_urls.json", cfg.Output.StateFile)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IGWATCHER_USERNAMES", "usera, userb,userc")
	t.Setenv("IGWATCHER_INTERVAL", "30m")
	t.Setenv("IGWATCHER_ENGINE", "API")
	t.Setenv("CHROME_PATH", "/opt/chrome/chrome")
	t.Setenv("CHROMEDRIVER_PATH", "/opt/chromedriver")
	t.Setenv("IGWATCHER_SESSION_ID", "session123")
	t.Setenv("IGWATCHER_LOG_FILE", "custom_log.csv")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, []string{"usera", "userb", "userc"}, cfg.Watch.Usernames)
	assert.Equal(t, 30*time.Minute, cfg.Watch.Interval)
	assert.Equal(t, EngineAPI, cfg.Fetch.Engine)
	assert.Equal(t, "/opt/chrome/chrome", cfg.Browser.ChromePath)
	assert.Equal(t, "/opt/chromedriver", cfg.Browser.ChromeDriverPath)
	assert.Equal(t, "session123", cfg.Instagram.SessionID)
	assert.Equal(t, "custom_log.csv", cfg.Output.LogFile)
}

func TestLoadFromEnvSingleUsernameFallback(t *testing.T) {
	t.Setenv("IGWATCHER_USERNAMES", "")
	t.Setenv("IG_USERNAME", " zlamp_a ")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, []string{"zlamp_a"}, cfg.Watch.Usernames)
}

func TestLoadFromEnvChromeBinFallback(t *testing.T) {
	t.Setenv("CHROME_PATH", "")
	t.Setenv("CHROME_BIN", "/usr/bin/chromium")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, "/usr/bin/chromium", cfg.Browser.ChromePath)
}

func TestLoadFromEnvInvalidInterval(t *testing.T) {
	t.Setenv("IGWATCHER_INTERVAL", "often")

	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromEnv())
}

func TestLoadFromFile(t *testing.T) {
	content := `
watch:
  usernames:
    - usera
    - userb
  interval: 2h
  workers: 3
fetch:
  engine: browser
output:
  log_file: out.csv
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, []string{"usera", "userb"}, cfg.Watch.Usernames)
	assert.Equal(t, 2*time.Hour, cfg.Watch.Interval)
	assert.Equal(t, 3, cfg.Watch.Workers)
	assert.Equal(t, EngineBrowser, cfg.Fetch.Engine)
	assert.Equal(t, "out.csv", cfg.Output.LogFile)
	// Untouched values keep their defaults.
	assert.Equal(t, "profile_pics", cfg.Output.PicsDirectory)
}

func TestLoadFromFileMissingExplicitPath(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(c *Config) { c.Watch.Usernames = []string{"usera"} },
		},
		{
			name:    "no usernames",
			mutate:  func(c *Config) {},
			wantErr: true,
		},
		{
			name: "bad engine",
			mutate: func(c *Config) {
				c.Watch.Usernames = []string{"usera"}
				c.Fetch.Engine = "selenium"
			},
			wantErr: true,
		},
		{
			name: "zero interval",
			mutate: func(c *Config) {
				c.Watch.Usernames = []string{"usera"}
				c.Watch.Interval = 0
			},
			wantErr: true,
		},
		{
			name: "too many workers",
			mutate: func(c *Config) {
				c.Watch.Usernames = []string{"usera"}
				c.Watch.Workers = 50
			},
			wantErr: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := DefaultConfig()
			test.mutate(cfg)
			err := cfg.Validate()
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{
		"usernames":   []string{"flaguser"},
		"interval":    15 * time.Minute,
		"workers":     4,
		"engine":      EngineAPI,
		"rate-limit":  10,
		"max-retries": 5,
		"log-level":   "debug",
	})

	assert.Equal(t, []string{"flaguser"}, cfg.Watch.Usernames)
	assert.Equal(t, 15*time.Minute, cfg.Watch.Interval)
	assert.Equal(t, 4, cfg.Watch.Workers)
	assert.Equal(t, EngineAPI, cfg.Fetch.Engine)
	assert.Equal(t, 10, cfg.RateLimit.RequestsPerMinute)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Watch.Usernames = []string{"usera"}
	require.NoError(t, cfg.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, cfg.Watch.Usernames, loaded.Watch.Usernames)
	assert.Equal(t, cfg.Fetch.Engine, loaded.Fetch.Engine)
}

func TestLoadPrecedence(t *testing.T) {
	content := `
watch:
  usernames:
    - fileuser
fetch:
  engine: api
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	// Env overrides file, flags override env.
	t.Setenv("IGWATCHER_ENGINE", "browser")

	cfg, err := Load(path, map[string]interface{}{
		"usernames": []string{"flaguser"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"flaguser"}, cfg.Watch.Usernames)
	assert.Equal(t, EngineBrowser, cfg.Fetch.Engine)
}
