package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Cupid    CupidConfig    `mapstructure:"cupid"`
	Tenor    TenorConfig    `mapstructure:"tenor"`
	Database DatabaseConfig `mapstructure:"database"`
	Graphviz GraphvizConfig `mapstructure:"graphviz"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token" validate:"required"`
	// ChatID is the group the bot serves. Commands from anywhere else are
	// refused.
	ChatID int64 `mapstructure:"chat_id" validate:"required"`
	Debug  bool  `mapstructure:"debug"`
}

type CupidConfig struct {
	URL       string        `mapstructure:"url" validate:"required,url"`
	Token     string        `mapstructure:"token" validate:"required"`
	RateLimit float64       `mapstructure:"rate_limit" validate:"gte=0"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// TenorConfig is optional; without a token proposals are sent without a GIF.
type TenorConfig struct {
	Token string `mapstructure:"token"`
	URL   string `mapstructure:"url" validate:"omitempty,url"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host" validate:"required_unless=UseInMemory true"`
	Port        int    `mapstructure:"port" validate:"gt=0,lte=65535"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname" validate:"required_unless=UseInMemory true"`
	SSLMode     string `mapstructure:"sslmode" validate:"oneof=disable require verify-ca verify-full"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type GraphvizConfig struct {
	Binary string `mapstructure:"binary"`
}

type MetricsConfig struct {
	// Addr is where /metrics is served, e.g. ":9090". Empty disables it.
	Addr string `mapstructure:"addr" validate:"omitempty,hostname_port"`
}

type LogConfig struct {
	Level       string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Development bool   `mapstructure:"development"`
}

var validate = validator.New()

// Validate checks that every required setting is present and well formed.
func (c Config) Validate() error {
	return validate.Struct(c)
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return DatabaseConfig{}, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return DatabaseConfig{}, fmt.Errorf("invalid port %q", u.Port())
		}
	}

	sslMode := u.Query().Get("sslmode")
	if sslMode == "" {
		sslMode = "disable"
	}

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   strings.TrimPrefix(u.Path, "/"),
		SSLMode:  sslMode,
	}, nil
}

// LoadConfig reads the YAML file at path, applies environment overrides and
// validates the result. An empty path reads the environment only.
func LoadConfig(path string) (Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("cupid.url", "https://cupid-api.artemisdev.xyz")
	v.SetDefault("cupid.rate_limit", 5)
	v.SetDefault("cupid.timeout", 10*time.Second)
	v.SetDefault("tenor.url", "https://g.tenor.com/v1")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("graphviz.binary", "dot")
	v.SetDefault("log.level", "info")

	// Enable environment variable support
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if raw := v.GetString("TELEGRAM_CHAT_ID"); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("failed to parse TELEGRAM_CHAT_ID: %w", err)
		}
		config.Telegram.ChatID = chatID
	}
	if token := v.GetString("CUPID_TOKEN"); token != "" {
		config.Cupid.Token = token
	}
	if apiURL := v.GetString("CUPID_API_URL"); apiURL != "" {
		config.Cupid.URL = apiURL
	}
	if token := v.GetString("TENOR_TOKEN"); token != "" {
		config.Tenor.Token = token
	}

	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}
