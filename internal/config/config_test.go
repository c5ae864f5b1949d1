package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnv = []string{
	"DATA_DIR", "CHECKPOINTS", "DDRAGON_BASE_URL", "DDRAGON_LOCALE", "RIOT_BASE_URL",
	"RIOT_API_KEY", "API_KEY", "RIOT_PUUID", "PUUID", "STORE_URI", "MONGODB_URI",
	"STORE_DATABASE", "HTTP_TIMEOUT", "NOTIFY_WEBHOOK_URL", "PUSHGATEWAY_URL",
	"DASHBOARD_ADDR", "DASHBOARD_REFRESH",
}

// clearEnv unsets every variable Load reads. godotenv never overrides a
// variable that exists, even when empty, so they must be fully unset.
func clearEnv(t *testing.T) {
	for _, k := range configEnv {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestDefault_Paths(t *testing.T) {
	c := Default()

	assert.Equal(t, filepath.Join("data", "champs", "raw.csv"), c.Champs.Raw)
	assert.Equal(t, filepath.Join("data", "champs", "clean.csv"), c.Champs.Clean)
	assert.Empty(t, c.Champs.Final)
	assert.Equal(t, filepath.Join("data", "items", "clean.csv"), c.Items.Clean)
	assert.Equal(t, filepath.Join("data", "mastery", "final.csv"), c.Mastery.Final)
	assert.True(t, c.Checkpoints)
	assert.Equal(t, 30*time.Second, c.HTTPTimeout)
}

func TestLoad_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/tmp/legends")
	t.Setenv("API_KEY", "RGAPI-test")
	t.Setenv("RIOT_PUUID", "puuid-1")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("CHECKPOINTS", "false")

	c, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/tmp/legends", "mastery", "raw.csv"), c.Mastery.Raw)
	assert.Equal(t, "RGAPI-test", c.RiotAPIKey)
	assert.Equal(t, "puuid-1", c.PUUID)
	assert.Equal(t, "mongodb://localhost:27017", c.StoreURI)
	assert.Equal(t, 5*time.Second, c.HTTPTimeout)
	assert.False(t, c.Checkpoints)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STORE_URI=\"sqlite://legends.db\"\nSTORE_DATABASE=test\n"), 0644))

	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite://legends.db", c.StoreURI)
	assert.Equal(t, "test", c.StoreDatabase)
}

func TestLoad_BadDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_TIMEOUT", "soon")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "HTTP_TIMEOUT", cfgErr.Key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		tasks   []string
		wantKey string
	}{
		{"missing store", func(c *Config) {}, nil, "STORE_URI"},
		{"champs only needs store", func(c *Config) { c.StoreURI = "x" }, []string{"champs", "items"}, ""},
		{"mastery needs key", func(c *Config) { c.StoreURI = "x" }, []string{"mastery"}, "RIOT_API_KEY"},
		{"mastery needs puuid", func(c *Config) { c.StoreURI = "x"; c.RiotAPIKey = "k" }, []string{"mastery"}, "RIOT_PUUID"},
		{"mastery complete", func(c *Config) { c.StoreURI = "x"; c.RiotAPIKey = "k"; c.PUUID = "p" }, []string{"mastery"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)

			err := c.Validate(tt.tasks...)
			if tt.wantKey == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantKey, cfgErr.Key)
			assert.ErrorIs(t, err, ErrMissing)
		})
	}
}

func TestApply(t *testing.T) {
	c := Default()

	err := c.Apply(map[string]any{
		"puuid":          "abc",
		"data_dir":       "out",
		"STORE_DATABASE": "other",
		"checkpoints":    false,
	})
	require.NoError(t, err)

	assert.Equal(t, "abc", c.PUUID)
	assert.Equal(t, filepath.Join("out", "items", "raw.csv"), c.Items.Raw)
	assert.Equal(t, "other", c.StoreDatabase)
	assert.False(t, c.Checkpoints)

	require.Error(t, c.Apply(map[string]any{"bogus": 1}))
}
