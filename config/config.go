package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config defines application configuration loaded from files and environment.
type Config struct {
	Env     string         `koanf:"env"`
	Server  ServerConfig   `koanf:"server"`
	Token   TokenConfig    `koanf:"token"`
	Store   StoreConfig    `koanf:"store"`
	Migrate MigrateConfig  `koanf:"migrate"`
	Clients []ClientConfig `koanf:"clients"`
	Users   []UserConfig   `koanf:"users"`
}

type ServerConfig struct {
	Addr               string `koanf:"addr"`
	SessionSecret      string `koanf:"session_secret"`
	CookieName         string `koanf:"cookie_name"`
	AllowBearerInQuery bool   `koanf:"allow_bearer_in_query"`
	LogLevel           string `koanf:"log_level"`
}

type TokenConfig struct {
	JWTSecret     string        `koanf:"jwt_secret"`
	SigningMethod string        `koanf:"signing_method"`
	KeyID         string        `koanf:"key_id"`
	KeyFile       string        `koanf:"key_file"`
	AccessTTL     time.Duration `koanf:"access_ttl"`
	RefreshTTL    time.Duration `koanf:"refresh_ttl"`
	CodeTTL       time.Duration `koanf:"code_ttl"`
}

type StoreConfig struct {
	// Driver is one of memory, valkey, postgres.
	Driver         string        `koanf:"driver"`
	ValkeyAddr     string        `koanf:"valkey_addr"`
	Prefix         string        `koanf:"prefix"`
	DSN            string        `koanf:"dsn"`
	ReaperInterval time.Duration `koanf:"reaper_interval"`
}

type MigrateConfig struct {
	OnStart bool `koanf:"on_start"`
}

type ClientConfig struct {
	ID           string   `koanf:"id"`
	Secret       string   `koanf:"secret"`
	Public       bool     `koanf:"public"`
	GrantTypes   []string `koanf:"grant_types"`
	RedirectURIs []string `koanf:"redirect_uris"`
}

type UserConfig struct {
	ID        string `koanf:"id"`
	Username  string `koanf:"username"`
	Password  string `koanf:"password"`
	Email     string `koanf:"email"`
	FirstName string `koanf:"first_name"`
	LastName  string `koanf:"last_name"`
}

// DefaultGrantTypes are granted to clients that list none.
var DefaultGrantTypes = []string{"authorization_code", "refresh_token", "password", "client_credentials"}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Env: "local",
		Server: ServerConfig{
			Addr:               ":3333",
			CookieName:         "oauth2_session",
			AllowBearerInQuery: true,
			LogLevel:           "info",
		},
		Token: TokenConfig{
			SigningMethod: "HS512",
			AccessTTL:     time.Hour,
			RefreshTTL:    14 * 24 * time.Hour,
			CodeTTL:       5 * time.Minute,
		},
		Store: StoreConfig{
			Driver:         "memory",
			Prefix:         "oauth2:",
			ReaperInterval: 10 * time.Minute,
		},
	}
}

// Load reads configuration. Loading order:
// 1) config/config.yaml (optional, only with APP_CONFIG_FILES=1)
// 2) config/config.<APP_ENV>.yaml (optional), APP_ENV defaults to "local"
// 3) Environment variables with prefix AUTH_ using __ as nested separator, e.g. AUTH_STORE__DSN
// 4) Legacy variables (OAUTH_CLIENT_*, OAUTH_USER_*, JWT_SECRET, SESSION_SECRET, PORT)
func Load() (*Config, error) {
	k := koanf.New(".")

	configDir := os.Getenv("CONFIG_DIR")
	if configDir == "" {
		configDir = "config"
	}
	envName := os.Getenv("APP_ENV")
	if envName == "" {
		envName = "local"
	}

	loadFiles := strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "1") || strings.EqualFold(os.Getenv("APP_CONFIG_FILES"), "true")
	if loadFiles {
		for _, name := range []string{"config.yaml", "config." + envName + ".yaml"} {
			path := filepath.Join(configDir, name)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: load %s: %w", path, err)
			}
		}
	}

	if err := k.Load(env.Provider("AUTH_", ".", func(s string) string {
		// AUTH_STORE__DSN -> store.dsn
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "AUTH_")), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	c := Default()
	c.Env = envName
	if err := k.Unmarshal("", &c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	applyLegacyEnv(&c)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyLegacyEnv(c *Config) {
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Token.JWTSecret = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		c.Server.SessionSecret = v
	}
	if id := os.Getenv("OAUTH_CLIENT_ID"); id != "" {
		cc := ClientConfig{ID: id, Secret: os.Getenv("OAUTH_CLIENT_SECRET")}
		if uri := os.Getenv("OAUTH_REDIRECT_URI"); uri != "" {
			cc.RedirectURIs = []string{uri}
		}
		c.Clients = append(c.Clients, cc)
	}
	if id := os.Getenv("OAUTH_USER_ID"); id != "" {
		c.Users = append(c.Users, UserConfig{
			ID:        id,
			Username:  os.Getenv("OAUTH_USER_USERNAME"),
			Password:  os.Getenv("OAUTH_USER_PASSWORD"),
			Email:     os.Getenv("OAUTH_USER_EMAIL"),
			FirstName: os.Getenv("OAUTH_USER_FIRSTNAME"),
			LastName:  os.Getenv("OAUTH_USER_LASTNAME"),
		})
	}
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Token.KeyFile == "" && c.Token.JWTSecret == "" {
		return fmt.Errorf("config: token.jwt_secret or token.key_file is required")
	}
	if c.Token.AccessTTL <= 0 || c.Token.CodeTTL <= 0 {
		return fmt.Errorf("config: token lifetimes must be positive")
	}
	switch c.Store.Driver {
	case "memory":
	case "valkey":
		if c.Store.ValkeyAddr == "" {
			return fmt.Errorf("config: store.valkey_addr is required for the valkey driver")
		}
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	for i, cl := range c.Clients {
		if cl.ID == "" {
			return fmt.Errorf("config: clients[%d] has no id", i)
		}
	}
	for i, u := range c.Users {
		if u.ID == "" || u.Username == "" {
			return fmt.Errorf("config: users[%d] needs id and username", i)
		}
	}
	return nil
}

// Logger builds the process logger: text in the local env, JSON elsewhere.
func (c *Config) Logger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Server.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Env == "local" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
