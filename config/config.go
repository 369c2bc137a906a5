// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var (
	validLogLevels   = []string{"debug", "info", "warn", "error", "fatal"}
	validDBDrivers   = []string{"postgres", "sqlite"}
	validMailDrivers = []string{"smtp", "log"}
)

type Config struct {
	App      App
	Host     Host
	JWT      JWT
	Database Database
	Mail     Mail
	Security Security
	Cleanup  Cleanup
}

type App struct {
	Name             string
	LogLevel         string
	FrontendURL      string
	OperationTimeout time.Duration
}

type Host struct {
	Port        int
	CORSOrigins []string
	BodyLimit   int64
}

type JWT struct {
	Secret    string
	ExpiresIn time.Duration
}

type Database struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type Mail struct {
	Driver   string
	Host     string
	Port     int
	Username string
	Password string
	Sender   string
}

type Security struct {
	RateLimit        int
	TurnstileEnabled bool
	TurnstileSecret  string
	AdminDesignation string
}

type Cleanup struct {
	Interval time.Duration
}

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Bind registers env names and defaults on v.
func Bind(v *viper.Viper) {
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.name", "APP_NAME")
	v.BindEnv("app.log_level", "APP_LOG_LEVEL")
	v.BindEnv("app.frontend_url", "APP_FRONTEND_URL", "FRONTEND_URL")
	v.BindEnv("app.operation_timeout", "APP_OPERATION_TIMEOUT")

	v.BindEnv("host.port", "HOST_PORT", "PORT")
	v.BindEnv("host.cors_origins", "HOST_CORS_ORIGINS", "HOST_CORS")
	v.BindEnv("host.body_limit", "HOST_BODY_LIMIT")

	v.BindEnv("jwt.secret", "JWT_SECRET")
	v.BindEnv("jwt.expires_in", "JWT_EXPIRES_IN")

	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URL")
	v.BindEnv("database.max_open_conns", "DATABASE_MAX_OPEN_CONNS")
	v.BindEnv("database.max_idle_conns", "DATABASE_MAX_IDLE_CONNS")
	v.BindEnv("database.conn_max_lifetime", "DATABASE_CONN_MAX_LIFETIME")

	v.BindEnv("mail.driver", "MAIL_DRIVER")
	v.BindEnv("mail.host", "MAIL_HOST")
	v.BindEnv("mail.port", "MAIL_PORT")
	v.BindEnv("mail.username", "MAIL_USERNAME")
	v.BindEnv("mail.password", "MAIL_PASSWORD")
	v.BindEnv("mail.sender", "MAIL_SENDER", "MAIL_SENDER_ADDRESS")

	v.BindEnv("security.rate_limit", "SECURITY_RATE_LIMIT")
	v.BindEnv("security.turnstile.enabled", "SECURITY_TURNSTILE_ENABLED")
	v.BindEnv("security.turnstile.secret", "SECURITY_TURNSTILE_SECRET")
	v.BindEnv("security.admin_designation", "SECURITY_ADMIN_DESIGNATION")

	v.BindEnv("cleanup.interval", "CLEANUP_INTERVAL")

	//
	// Defaults
	//
	v.SetDefault("app.name", "Account API")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.frontend_url", "http://localhost:5173")
	v.SetDefault("app.operation_timeout", "5s")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("host.body_limit", 1<<20)

	v.SetDefault("jwt.expires_in", "7d")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("mail.driver", "smtp")
	v.SetDefault("mail.port", 587)

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("security.turnstile.enabled", false)

	v.SetDefault("cleanup.interval", "1h")
}

// Setup reads the config file (if any) and the environment into a Config.
// It returns an error if something is critically wrong and the application
// can't run because of that.
func Setup(v *viper.Viper) (*Config, error) {
	Bind(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file, %w", err)
		}
	}

	return Load(v)
}

// Load builds and validates a Config from values already present in v.
func Load(v *viper.Viper) (*Config, error) {
	var (
		c   Config
		err error
	)

	c.App.Name = v.GetString("app.name")
	c.App.LogLevel = v.GetString("app.log_level")
	c.App.FrontendURL = v.GetString("app.frontend_url")

	if c.App.OperationTimeout, err = parseDuration(v.GetString("app.operation_timeout")); err != nil {
		return nil, fmt.Errorf("invalid app.operation_timeout, %w", err)
	}

	c.Host.Port = v.GetInt("host.port")
	c.Host.CORSOrigins = splitList(v.GetStringSlice("host.cors_origins"))
	c.Host.BodyLimit = v.GetInt64("host.body_limit")

	c.JWT.Secret = v.GetString("jwt.secret")
	if c.JWT.ExpiresIn, err = parseDuration(v.GetString("jwt.expires_in")); err != nil {
		return nil, fmt.Errorf("invalid jwt.expires_in, %w", err)
	}

	c.Database.Driver = v.GetString("database.driver")
	c.Database.DSN = v.GetString("database.dsn")
	c.Database.MaxOpenConns = v.GetInt("database.max_open_conns")
	c.Database.MaxIdleConns = v.GetInt("database.max_idle_conns")
	if c.Database.ConnMaxLifetime, err = parseDuration(v.GetString("database.conn_max_lifetime")); err != nil {
		return nil, fmt.Errorf("invalid database.conn_max_lifetime, %w", err)
	}

	c.Mail.Driver = v.GetString("mail.driver")
	c.Mail.Host = v.GetString("mail.host")
	c.Mail.Port = v.GetInt("mail.port")
	c.Mail.Username = v.GetString("mail.username")
	c.Mail.Password = v.GetString("mail.password")
	c.Mail.Sender = v.GetString("mail.sender")

	c.Security.RateLimit = v.GetInt("security.rate_limit")
	c.Security.TurnstileEnabled = v.GetBool("security.turnstile.enabled")
	c.Security.TurnstileSecret = v.GetString("security.turnstile.secret")
	c.Security.AdminDesignation = v.GetString("security.admin_designation")

	if c.Cleanup.Interval, err = parseDuration(v.GetString("cleanup.interval")); err != nil {
		return nil, fmt.Errorf("invalid cleanup.interval, %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Config) validate() error {
	if !slices.Contains(validLogLevels, c.App.LogLevel) {
		return errors.New("invalid log level provided")
	}

	if c.App.FrontendURL == "" {
		return errors.New("app.frontend_url can't be empty")
	}

	if c.App.OperationTimeout <= 0 {
		return errors.New("app.operation_timeout must be bigger than 0")
	}

	if c.Host.Port <= 0 || c.Host.Port > 65535 {
		return errors.New("invalid port provided")
	}

	if len(c.Host.CORSOrigins) == 0 {
		return errors.New("host.cors_origins needs at least one origin")
	}

	if c.Host.BodyLimit <= 0 {
		return errors.New("host.body_limit must be bigger than 0")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required, set JWT_SECRET or add it to config.toml. A random one you can use:\n\n%v", genSecret())
	}

	if c.JWT.ExpiresIn <= 0 {
		return errors.New("jwt.expires_in must be bigger than 0")
	}

	if !slices.Contains(validDBDrivers, c.Database.Driver) {
		return errors.New("invalid database driver provided")
	}

	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	if !slices.Contains(validMailDrivers, c.Mail.Driver) {
		return errors.New("invalid mail driver provided")
	}

	if c.Mail.Driver == "smtp" {
		if c.Mail.Host == "" {
			return errors.New("mail.host is required")
		}
		if c.Mail.Port <= 0 {
			return errors.New("invalid mail port provided")
		}
		if c.Mail.Username == "" {
			return errors.New("mail.username is required")
		}
		if c.Mail.Password == "" {
			return errors.New("mail.password is required")
		}
		if c.Mail.Sender == "" {
			return errors.New("mail.sender is required")
		}
	}

	if c.Security.TurnstileEnabled && c.Security.TurnstileSecret == "" {
		return errors.New("turnstile secret token is missing")
	}

	if c.Cleanup.Interval <= 0 {
		return errors.New("cleanup.interval must be bigger than 0")
	}

	return nil
}

// parseDuration accepts time.ParseDuration strings plus a whole number of
// days such as "7d".
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}

		return time.Duration(n) * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// splitList flattens comma separated entries, which is how list values
// arrive from the environment.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}

	return out
}
