// Package config provides the JSON deployment configuration.
//
// The file lives at $XDG_CONFIG_HOME/specimen-gauge/config.json. ${VAR}
// references inside it are expanded from the environment, and a few
// well-known variables override file values afterwards.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"specimen-gauge/internal/calibration"
	"specimen-gauge/internal/rank"
	"specimen-gauge/internal/segment"

	"github.com/a8m/envsubst"
	"github.com/adrg/xdg"
	"github.com/pkg/errors"
)

const (
	appDir     = "specimen-gauge"
	configFile = "config.json"

	// RigCustom uses the explicit calibration fields instead of a preset.
	RigCustom = "custom"

	StoreNone     = "none"
	StoreDir      = "dir"
	StorePostgres = "postgres"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the deployment configuration of one rig.
type Config struct {
	// Rig is a calibration preset name or "custom".
	Rig         string  `json:"rig"`
	MMPerPixelX float64 `json:"mm_per_pixel_x,omitempty"`
	MMPerPixelY float64 `json:"mm_per_pixel_y,omitempty"`
	MinMarginMM float64 `json:"min_margin_mm,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`

	Strategy string `json:"strategy"`
	Policy   string `json:"policy"`

	Camera     int  `json:"camera"`
	TickMillis int  `json:"tick_ms"`
	Overlay    bool `json:"overlay"`

	Store  StoreConfig  `json:"store"`
	Gemini GeminiConfig `json:"gemini"`

	path string
}

// StoreConfig selects the persistence collaborator.
type StoreConfig struct {
	Kind        string `json:"kind"`
	Dir         string `json:"dir,omitempty"`
	DatabaseURL string `json:"database_url,omitempty"`
}

// GeminiConfig configures the narrative collaborator. The key is never written back.
type GeminiConfig struct {
	Enabled bool   `json:"enabled"`
	Model   string `json:"model,omitempty"`
	APIKey  string `json:"-"`
}

// Default returns the live-rig configuration.
func Default() *Config {
	return &Config{
		Rig:         calibration.PresetLive,
		MinMarginMM: calibration.DefaultMarginMM,
		Strategy:    segment.IDRedHue,
		Policy:      rank.IDLargest,
		TickMillis:  33,
		Overlay:     true,
		Store: StoreConfig{
			Kind: StoreDir,
			Dir:  filepath.Join(xdg.DataHome, appDir, "samples"),
		},
		Gemini: GeminiConfig{Model: "gemini-2.5-pro"},
	}
}

// DefaultPath returns the per-user config file location.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, appDir, configFile)
}

// Load reads path (DefaultPath when empty), applies environment overrides
// and validates. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	cfg.path = path

	buf, err := envsubst.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(buf, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "read %s", path)
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string { return c.path }

// Save writes the config as indented JSON to its path.
func (c *Config) Save() error {
	if c.path == "" {
		c.path = DefaultPath()
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// ApplyEnv overrides values from the environment. lookup is os.LookupEnv
// outside tests.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	get := func(k string) string {
		v, _ := lookup(k)
		return strings.TrimSpace(v)
	}

	if v := get("DATABASE_URL"); v != "" {
		c.Store.DatabaseURL = v
	} else if dsn := postgresDSN(get); dsn != "" {
		c.Store.DatabaseURL = dsn
	}
	if v := get("GEMINI_API_KEY"); v != "" {
		c.Gemini.APIKey = v
	}
	if v := get("GEMINI_MODEL"); v != "" {
		c.Gemini.Model = v
	}
}

// postgresDSN assembles a URL from POSTGRES_* variables, or "" when no host is set.
func postgresDSN(get func(string) string) string {
	host := get("POSTGRES_HOST")
	if host == "" {
		return ""
	}
	port := get("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   host + ":" + port,
		Path:   "/" + get("POSTGRES_DB"),
	}
	if user := get("POSTGRES_USER"); user != "" {
		if pw := get("POSTGRES_PASSWORD"); pw != "" {
			u.User = url.UserPassword(user, pw)
		} else {
			u.User = url.User(user)
		}
	}
	if mode := get("POSTGRES_SSLMODE"); mode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(mode)
	}
	return u.String()
}

// Validate checks every field that a component would otherwise reject later.
func (c *Config) Validate() error {
	var problems []string

	if _, err := c.Profile(); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := segment.New(c.Strategy); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := rank.ParsePolicy(c.Policy); err != nil {
		problems = append(problems, err.Error())
	}
	if c.TickMillis <= 0 {
		problems = append(problems, fmt.Sprintf("tick_ms must be positive, got %d", c.TickMillis))
	}
	switch c.Store.Kind {
	case StoreNone:
	case StoreDir:
		if c.Store.Dir == "" {
			problems = append(problems, "store.dir is required for the dir store")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url (or DATABASE_URL) is required for the postgres store")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown store kind %q", c.Store.Kind))
	}

	if len(problems) > 0 {
		return errors.Wrap(ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Profile builds the calibration profile for the configured rig.
func (c *Config) Profile() (calibration.Profile, error) {
	if c.Rig == RigCustom {
		return calibration.NewWithResolution(c.MMPerPixelX, c.MMPerPixelY, c.MinMarginMM, c.Width, c.Height)
	}
	p, ok := calibration.Preset(c.Rig)
	if !ok {
		return calibration.Profile{}, errors.Wrapf(calibration.ErrInvalidCalibration, "unknown rig %q", c.Rig)
	}
	return p, nil
}

// TickInterval is the live preview period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMillis) * time.Millisecond
}
