package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Environments recognised by Config.Env.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// ErrMissingJWTSecret is returned when no JWT signing secret is configured.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is not defined")

// Config holds application level configuration.
type Config struct {
	Env        string `koanf:"env"`
	ServerPort string `koanf:"server_port"`

	DBDriver    string `koanf:"db_driver"`
	DatabaseDSN string `koanf:"database_dsn"`

	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`
	RedisPass string `koanf:"redis_password"`

	JWTSecret               string        `koanf:"jwt_secret"`
	JWTExpiry               time.Duration `koanf:"jwt_expire"`
	ResetTokenExpiry        time.Duration `koanf:"reset_token_expire"`
	VerificationTokenExpiry time.Duration `koanf:"verification_token_expire"`
	BcryptCost              int           `koanf:"bcrypt_cost"`

	ClientURL string `koanf:"client_url"`
	LogFormat string `koanf:"log_format"`

	Notifier        string `koanf:"notifier"`
	MailFrom        string `koanf:"mail_from"`
	MailgunAPIHost  string `koanf:"mailgun_api_host"`
	MailgunDomain   string `koanf:"mailgun_domain"`
	MailgunUsername string `koanf:"mailgun_username"`
	MailgunPassword string `koanf:"mailgun_password"`

	SwaggerHost     string        `koanf:"swagger_host"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Env:                     EnvDevelopment,
		ServerPort:              "8080",
		DBDriver:                "mysql",
		DatabaseDSN:             "user:password@tcp(localhost:3306)/app?charset=utf8mb4&parseTime=True&loc=Local",
		RedisAddr:               "localhost:6379",
		JWTExpiry:               7 * 24 * time.Hour,
		ResetTokenExpiry:        time.Hour,
		VerificationTokenExpiry: 24 * time.Hour,
		BcryptCost:              10,
		ClientURL:               "http://localhost:5173",
		Notifier:                "log",
		MailFrom:                "no-reply@localhost",
		MailgunAPIHost:          "api.mailgun.net",
		ShutdownTimeout:         10 * time.Second,
	}
}

// Load builds Config from defaults, then the optional YAML file at path, then
// the environment, then any flag the user explicitly set.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	cfg := Default()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if flags != nil {
		k := koanf.New(".")
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
		if err := k.Unmarshal("", cfg); err != nil {
			return nil, fmt.Errorf("parse flags: %w", err)
		}
	}

	return cfg, nil
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	switch c.DBDriver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported db driver %q", c.DBDriver)
	}
	switch c.Notifier {
	case "log":
	case "mailgun":
		if c.MailgunDomain == "" || c.MailgunPassword == "" {
			return errors.New("mailgun notifier requires MAILGUN_DOMAIN and MAILGUN_PASSWORD")
		}
	default:
		return fmt.Errorf("unsupported notifier %q", c.Notifier)
	}
	if c.ResetTokenExpiry <= 0 || c.ResetTokenExpiry > 24*time.Hour {
		return fmt.Errorf("reset token expiry %s not in range (0, 24h]", c.ResetTokenExpiry)
	}
	if c.VerificationTokenExpiry <= 0 || c.VerificationTokenExpiry > 24*time.Hour {
		return fmt.Errorf("verification token expiry %s not in range (0, 24h]", c.VerificationTokenExpiry)
	}
	if c.JWTExpiry <= 0 {
		return fmt.Errorf("jwt expiry %s must be positive", c.JWTExpiry)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func applyEnv(c *Config) error {
	c.Env = getEnv("APP_ENV", getEnv("NODE_ENV", c.Env))
	c.ServerPort = getEnv("SERVER_PORT", getEnv("PORT", c.ServerPort))
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DatabaseDSN = getEnv("DATABASE_DSN", getEnv("MYSQL_DSN", c.DatabaseDSN))
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.RedisPass = getEnv("REDIS_PASSWORD", c.RedisPass)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.BcryptCost = getEnvInt("BCRYPT_COST", c.BcryptCost)
	c.ClientURL = getEnv("CLIENT_URL", c.ClientURL)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.Notifier = getEnv("NOTIFIER", c.Notifier)
	c.MailFrom = getEnv("MAIL_FROM", c.MailFrom)
	c.MailgunAPIHost = getEnv("MAILGUN_API_HOST", c.MailgunAPIHost)
	c.MailgunDomain = getEnv("MAILGUN_DOMAIN", c.MailgunDomain)
	c.MailgunUsername = getEnv("MAILGUN_USERNAME", c.MailgunUsername)
	c.MailgunPassword = getEnv("MAILGUN_PASSWORD", c.MailgunPassword)
	c.SwaggerHost = getEnv("SWAGGER_HOST", c.SwaggerHost)

	durations := map[string]*time.Duration{
		"JWT_EXPIRE":                &c.JWTExpiry,
		"RESET_TOKEN_EXPIRE":        &c.ResetTokenExpiry,
		"VERIFICATION_TOKEN_EXPIRE": &c.VerificationTokenExpiry,
		"SHUTDOWN_TIMEOUT":          &c.ShutdownTimeout,
	}
	for key, tgt := range durations {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid env variable %s: %w", key, err)
		}
		*tgt = d
	}
	return nil
}

// ParseDuration parses a Go duration, additionally accepting a whole number
// of days such as "7d".
func ParseDuration(v string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(v, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", v)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(v)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}
