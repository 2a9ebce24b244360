package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Store  Store  `mapstructure:"store"`
	Sheets Sheets `mapstructure:"sheets"`
	Logger Logger `mapstructure:"logger"`
	Server Server `mapstructure:"server"`
	Export Export `mapstructure:"export"`
	Chart  Chart  `mapstructure:"chart"`
}

// Store selects and parameterizes the table backend.
type Store struct {
	Backend  string `mapstructure:"backend"` // memory, sqlite, xlsx or sheets
	Table    string `mapstructure:"table"`
	XLSXPath string `mapstructure:"xlsx_path"`
	DSN      string `mapstructure:"dsn"`
}

// Sheets holds the configuration for the remote sheet service.
type Sheets struct {
	BaseURL        string  `mapstructure:"base_url"`
	Token          string  `mapstructure:"token"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Export holds the configuration for CSV export.
type Export struct {
	Path string `mapstructure:"path"`
}

// Chart holds the configuration for chart rendering.
type Chart struct {
	Dir string `mapstructure:"dir"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("store.backend", "xlsx")
	viper.SetDefault("store.table", "trades")
	viper.SetDefault("store.xlsx_path", "./trades.xlsx")
	viper.SetDefault("store.dsn", "./trades.db")
	viper.SetDefault("sheets.rate_limit", 5)       // requests per second
	viper.SetDefault("sheets.rate_limit_burst", 2) // burst size
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("export.path", "./closed_trades.csv")
	viper.SetDefault("chart.dir", "./charts")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
