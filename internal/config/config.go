package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr string
	}
	Database struct {
		Driver string
		Path   string
		URL    string
	}
	Auth struct {
		BcryptCost          int      `mapstructure:"bcrypt_cost"`
		EmailCaseSensitive  bool     `mapstructure:"email_case_sensitive"`
		EqualizeLoginTiming bool     `mapstructure:"equalize_login_timing"`
		SessionCookie       string   `mapstructure:"session_cookie"`
		ExcludedPaths       []string `mapstructure:"excluded_paths"`
	}
	Log struct {
		Level string
	}
	Metrics struct {
		Enabled bool
	}
}

// Load reads configuration from environment variables and an optional config
// file. An empty configFile searches for config.* in the working directory.
func Load(configFile string) (Config, error) {
	loadDotEnv(".env")

	v := viper.New()
	v.SetEnvPrefix("AUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:5000")
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "data/a.db")
	v.SetDefault("database.url", "")
	v.SetDefault("auth.bcrypt_cost", 0)
	v.SetDefault("auth.email_case_sensitive", false)
	v.SetDefault("auth.equalize_login_timing", true)
	v.SetDefault("auth.session_cookie", "session_id")
	v.SetDefault("auth.excluded_paths", []string{"/", "/users", "/sessions", "/reset_password", "/metrics", "/api/health"})
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.enabled", true)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the values that would otherwise fail late at startup.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(c.Database.Path) == "" {
			return errors.New("database.path is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("database.url is required for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database.driver %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Auth.SessionCookie) == "" {
		return errors.New("auth.session_cookie must not be empty")
	}
	return nil
}

func loadDotEnv(path string) {
	file, err := os.Open(path)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
