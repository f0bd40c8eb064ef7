package authkit

import (
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// TokenConfig holds signing material and lifetimes. TTLs use the compact
// duration form accepted by [token.ParseTTLSeconds]: "15m", "7d", "3600".
type TokenConfig struct {
	AccessSecret  string `yaml:"access_secret" env:"ACCESS_TOKEN_KEY"`
	RefreshSecret string `yaml:"refresh_secret" env:"REFRESH_TOKEN_KEY"`
	AccessTTL     string `yaml:"access_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTTL    string `yaml:"refresh_ttl" env:"REFRESH_TOKEN_TTL" env-default:"7d"`
}

// CacheConfig locates the Redis instance backing session state.
type CacheConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Addr returns the host:port dial address.
func (c CacheConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DatabaseConfig locates the relational user store.
type DatabaseConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL"`
}

// MailConfig configures the SMTP mailer used by the password-reset flow.
// With an empty Host the engine falls back to a log-only mailer.
type MailConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     string `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"MAIL_FROM"`
}

// ResetConfig tunes the password-reset challenge.
type ResetConfig struct {
	TTL         string `yaml:"ttl" env:"RESET_TOKEN_TTL" env-default:"15m"`
	TokenLength int    `yaml:"token_length" env:"RESET_TOKEN_LENGTH" env-default:"32"`
}

// HTTPConfig configures the bundled HTTP transport.
type HTTPConfig struct {
	Addr string `yaml:"addr" env:"HTTP_ADDR" env-default:":8080"`
}

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"AUDIT_ENABLED" env-default:"false"`
	BufferSize int  `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE" env-default:"256"`
	DropIfFull bool `yaml:"drop_if_full" env:"AUDIT_DROP_IF_FULL" env-default:"true"`
}

// Config is the full engine configuration.
type Config struct {
	Token       TokenConfig    `yaml:"token"`
	Cache       CacheConfig    `yaml:"cache"`
	Database    DatabaseConfig `yaml:"database"`
	Mail        MailConfig     `yaml:"mail"`
	Reset       ResetConfig    `yaml:"reset"`
	HTTP        HTTPConfig     `yaml:"http"`
	Audit       AuditConfig    `yaml:"audit"`
	FrontendURL string         `yaml:"frontend_url" env:"FRONTEND_URL" env-default:"http://localhost:3000"`
	BcryptCost  int            `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"10"`
	Metrics     bool           `yaml:"metrics" env:"METRICS_ENABLED" env-default:"true"`
}

func defaultConfig() Config {
	var cfg Config
	// cleanenv applies env-default tags even with no environment set.
	_ = cleanenv.ReadEnv(&cfg)
	return cfg
}

// Validate checks the fields the engine cannot run without.
func (c *Config) Validate() error {
	if c.Token.AccessSecret == "" {
		return errors.New("config: token.access_secret is required")
	}
	if c.Token.RefreshSecret == "" {
		return errors.New("config: token.refresh_secret is required")
	}
	if c.Token.AccessSecret == c.Token.RefreshSecret {
		return errors.New("config: access and refresh secrets must differ")
	}
	if c.Reset.TokenLength < 16 {
		return errors.New("config: reset.token_length must be at least 16")
	}
	return nil
}

// LoadConfig reads configuration from the YAML file at path, then applies
// environment overrides. With an empty path only the environment is read.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoadConfig is LoadConfig for main functions: path comes from the
// CONFIG_PATH environment variable and any error is fatal.
func MustLoadConfig() *Config {
	cfg, err := LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}
	return cfg
}
