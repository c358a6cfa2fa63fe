// Package config provides configuration for the chat client and the static
// frontend server.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/guipratiko/front-conexprob/internal/credits"
)

// Config holds the client configuration.
type Config struct {
	Env string

	// Backend settings
	APIURL      string
	RealtimeURL string
	HTTPTimeout time.Duration

	// Realtime reconnection
	ReconnectAttempts int
	ReconnectDelay    time.Duration

	// Local state
	TokenDB string
	LogFile string

	// Checkout links of the fixed credit packages
	Checkout credits.CheckoutLinks

	// Static server settings
	Port      int
	DistDir   string
	APIOrigin string
}

// fileConfig is the layout of the optional TOML profile.
type fileConfig struct {
	Env               string                `toml:"env"`
	APIURL            string                `toml:"api_url"`
	RealtimeURL       string                `toml:"realtime_url"`
	HTTPTimeoutMS     int                   `toml:"http_timeout_ms"`
	ReconnectAttempts *int                  `toml:"reconnect_attempts"`
	ReconnectDelayMS  int                   `toml:"reconnect_delay_ms"`
	TokenDB           string                `toml:"token_db"`
	LogFile           string                `toml:"log_file"`
	Checkout          credits.CheckoutLinks `toml:"checkout"`
	Port              int                   `toml:"port"`
	DistDir           string                `toml:"dist_dir"`
	APIOrigin         string                `toml:"api_origin"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Env:               "production",
		APIURL:            "http://localhost:4800/api",
		HTTPTimeout:       15 * time.Second,
		ReconnectAttempts: 5,
		ReconnectDelay:    time.Second,
		TokenDB:           "conexao.db",
		LogFile:           "conexao.log",
		Checkout:          credits.DefaultCheckoutLinks(),
		Port:              3150,
		DistDir:           "dist",
	}
}

// Load builds the configuration from the defaults, the TOML profile named by
// CONEXAO_CONFIG and the environment, in that order. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONEXAO_CONFIG"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if cfg.RealtimeURL == "" {
		cfg.RealtimeURL = DeriveRealtimeURL(cfg.APIURL)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays the TOML profile at path. Keys missing from the file keep
// their current values.
func (c *Config) LoadFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	setString(&c.Env, f.Env)
	setString(&c.APIURL, f.APIURL)
	setString(&c.RealtimeURL, f.RealtimeURL)
	setString(&c.TokenDB, f.TokenDB)
	setString(&c.LogFile, f.LogFile)
	setString(&c.DistDir, f.DistDir)
	setString(&c.APIOrigin, f.APIOrigin)
	setString(&c.Checkout.Credits100, f.Checkout.Credits100)
	setString(&c.Checkout.Credits500, f.Checkout.Credits500)
	setString(&c.Checkout.Credits1000, f.Checkout.Credits1000)
	if f.HTTPTimeoutMS > 0 {
		c.HTTPTimeout = time.Duration(f.HTTPTimeoutMS) * time.Millisecond
	}
	if f.ReconnectAttempts != nil {
		c.ReconnectAttempts = *f.ReconnectAttempts
	}
	if f.ReconnectDelayMS > 0 {
		c.ReconnectDelay = time.Duration(f.ReconnectDelayMS) * time.Millisecond
	}
	if f.Port > 0 {
		c.Port = f.Port
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Env = getEnv("APP_ENV", c.Env)
	c.APIURL = getEnv("API_URL", c.APIURL)
	c.RealtimeURL = getEnv("REALTIME_URL", c.RealtimeURL)
	c.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT_MS", c.HTTPTimeout)
	c.ReconnectAttempts = getEnvInt("RECONNECT_ATTEMPTS", c.ReconnectAttempts)
	c.ReconnectDelay = getEnvDuration("RECONNECT_DELAY_MS", c.ReconnectDelay)
	c.TokenDB = getEnv("TOKEN_DB", c.TokenDB)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.Checkout.Credits100 = getEnv("CHECKOUT_URL_100", c.Checkout.Credits100)
	c.Checkout.Credits500 = getEnv("CHECKOUT_URL_500", c.Checkout.Credits500)
	c.Checkout.Credits1000 = getEnv("CHECKOUT_URL_1000", c.Checkout.Credits1000)
	c.Port = getEnvInt("PORT", getEnvInt("VITE_PORT", c.Port))
	c.DistDir = getEnv("DIST_DIR", c.DistDir)
	c.APIOrigin = getEnv("API_ORIGIN", c.APIOrigin)
}

// Validate rejects configurations the client cannot run with.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return errors.New("config: API_URL is required")
	}
	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("config: invalid API_URL: %w", err)
	}
	if c.RealtimeURL == "" {
		return errors.New("config: REALTIME_URL is required")
	}
	if c.ReconnectAttempts < 0 {
		return errors.New("config: RECONNECT_ATTEMPTS must not be negative")
	}
	if c.ReconnectDelay <= 0 {
		return errors.New("config: RECONNECT_DELAY_MS must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("config: HTTP_TIMEOUT_MS must be positive")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Port)
	}
	return nil
}

// IsDev reports whether the client runs in a development environment.
func (c *Config) IsDev() bool {
	switch strings.ToLower(c.Env) {
	case "dev", "development", "local":
		return true
	}
	return false
}

// DeriveRealtimeURL turns the REST base URL into the websocket endpoint: the
// trailing /api is dropped, http becomes ws and the path becomes /ws.
func DeriveRealtimeURL(apiURL string) string {
	u, err := url.Parse(strings.TrimSpace(apiURL))
	if err != nil || u.Host == "" {
		return ""
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	path := strings.TrimSuffix(u.Path, "/")
	path = strings.TrimSuffix(path, "/api")
	u.Path = path + "/ws"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if ms, err := strconv.Atoi(val); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultVal
}
