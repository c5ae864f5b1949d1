package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultDataDir          = "data"
	defaultDDragonBaseURL   = "https://ddragon.leagueoflegends.com"
	defaultDDragonLocale    = "pt_BR"
	defaultRiotBaseURL      = "https://br1.api.riotgames.com"
	defaultStoreDatabase    = "pylegends"
	defaultHTTPTimeout      = 30 * time.Second
	defaultDashboardAddr    = ":8050"
	defaultDashboardRefresh = time.Second
)

// ErrMissing is wrapped by every *Error about an absent required value
var ErrMissing = errors.New("config: required value not set")

// Error reports a configuration problem detected before any I/O
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// DatasetPaths are the checkpoint files of one dataset. Final is only set
// for mastery, where the joined output lives.
type DatasetPaths struct {
	Raw   string
	Clean string
	Final string
}

// Config holds every recognised option. It is built once and passed to
// each component explicitly.
type Config struct {
	DataDir     string
	Checkpoints bool

	Champs  DatasetPaths
	Items   DatasetPaths
	Mastery DatasetPaths

	DDragonBaseURL string
	DDragonLocale  string

	RiotBaseURL string
	RiotAPIKey  string
	PUUID       string

	StoreURI      string
	StoreDatabase string

	HTTPTimeout time.Duration

	NotifyWebhookURL string
	PushgatewayURL   string

	DashboardAddr    string
	DashboardRefresh time.Duration
}

// Default returns a config with every default applied and no secrets
func Default() *Config {
	c := &Config{
		DataDir:          defaultDataDir,
		Checkpoints:      true,
		DDragonBaseURL:   defaultDDragonBaseURL,
		DDragonLocale:    defaultDDragonLocale,
		RiotBaseURL:      defaultRiotBaseURL,
		StoreDatabase:    defaultStoreDatabase,
		HTTPTimeout:      defaultHTTPTimeout,
		DashboardAddr:    defaultDashboardAddr,
		DashboardRefresh: defaultDashboardRefresh,
	}
	c.SetDataDir(defaultDataDir)
	return c
}

// SetDataDir points every dataset path below dir
func (c *Config) SetDataDir(dir string) {
	c.DataDir = dir
	c.Champs = DatasetPaths{
		Raw:   filepath.Join(dir, "champs", "raw.csv"),
		Clean: filepath.Join(dir, "champs", "clean.csv"),
	}
	c.Items = DatasetPaths{
		Raw:   filepath.Join(dir, "items", "raw.csv"),
		Clean: filepath.Join(dir, "items", "clean.csv"),
	}
	c.Mastery = DatasetPaths{
		Raw:   filepath.Join(dir, "mastery", "raw.csv"),
		Clean: filepath.Join(dir, "mastery", "clean.csv"),
		Final: filepath.Join(dir, "mastery", "final.csv"),
	}
}

// Load reads the first .env file found among envFiles (default ".env",
// "../.env") and then the process environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env", "../.env"}
	}
	for _, path := range envFiles {
		if err := godotenv.Load(path); err == nil {
			slog.Debug("loaded env file", "path", path)
			break
		}
	}

	c := Default()

	if dir := env("DATA_DIR"); dir != "" {
		c.SetDataDir(dir)
	}
	if v := env("CHECKPOINTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, &Error{Key: "CHECKPOINTS", Err: err}
		}
		c.Checkpoints = b
	}

	c.DDragonBaseURL = envOr(c.DDragonBaseURL, "DDRAGON_BASE_URL")
	c.DDragonLocale = envOr(c.DDragonLocale, "DDRAGON_LOCALE")
	c.RiotBaseURL = envOr(c.RiotBaseURL, "RIOT_BASE_URL")
	c.RiotAPIKey = envOr("", "RIOT_API_KEY", "API_KEY")
	c.PUUID = envOr("", "RIOT_PUUID", "PUUID")
	c.StoreURI = envOr("", "STORE_URI", "MONGODB_URI")
	c.StoreDatabase = envOr(c.StoreDatabase, "STORE_DATABASE")
	c.NotifyWebhookURL = envOr("", "NOTIFY_WEBHOOK_URL")
	c.PushgatewayURL = envOr("", "PUSHGATEWAY_URL")
	c.DashboardAddr = envOr(c.DashboardAddr, "DASHBOARD_ADDR")

	var err error
	if c.HTTPTimeout, err = envDuration("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return nil, err
	}
	if c.DashboardRefresh, err = envDuration("DASHBOARD_REFRESH", c.DashboardRefresh); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks the values needed to run the given tasks. It must be
// called before any network or store access.
func (c *Config) Validate(tasks ...string) error {
	if c.StoreURI == "" {
		return &Error{Key: "STORE_URI", Err: ErrMissing}
	}
	for _, task := range tasks {
		if task != "mastery" {
			continue
		}
		if c.RiotAPIKey == "" {
			return &Error{Key: "RIOT_API_KEY", Err: ErrMissing}
		}
		if c.PUUID == "" {
			return &Error{Key: "RIOT_PUUID", Err: ErrMissing}
		}
	}
	if c.HTTPTimeout <= 0 {
		return &Error{Key: "HTTP_TIMEOUT", Err: fmt.Errorf("must be positive, got %s", c.HTTPTimeout)}
	}
	return nil
}

// Apply overrides options from a parameter object, as passed to the job
// launcher. Keys match the environment variable names, case-insensitive.
func (c *Config) Apply(params map[string]any) error {
	for k, raw := range params {
		v := fmt.Sprint(raw)
		switch strings.ToUpper(k) {
		case "DATA_DIR":
			c.SetDataDir(v)
		case "CHECKPOINTS":
			b, err := strconv.ParseBool(v)
			if err != nil {
				return &Error{Key: k, Err: err}
			}
			c.Checkpoints = b
		case "DDRAGON_BASE_URL":
			c.DDragonBaseURL = v
		case "DDRAGON_LOCALE":
			c.DDragonLocale = v
		case "RIOT_BASE_URL":
			c.RiotBaseURL = v
		case "RIOT_PUUID", "PUUID":
			c.PUUID = v
		case "STORE_DATABASE":
			c.StoreDatabase = v
		case "HTTP_TIMEOUT":
			d, err := time.ParseDuration(v)
			if err != nil {
				return &Error{Key: k, Err: err}
			}
			c.HTTPTimeout = d
		default:
			return &Error{Key: k, Err: errors.New("unknown parameter")}
		}
	}
	return nil
}

func env(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"")
}

// envOr returns the first non-empty variable among keys, or fallback
func envOr(fallback string, keys ...string) string {
	for _, k := range keys {
		if v := env(k); v != "" {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := env(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, &Error{Key: key, Err: err}
	}
	return d, nil
}
