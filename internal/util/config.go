package util

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AllowedOrigins       []string      `mapstructure:"ALLOWED_ORIGINS"`
	DatabaseURL          string        `mapstructure:"DATABASE_URL"`
	HTTPServerAddress    string        `mapstructure:"HTTP_SERVER_ADDRESS"`
	RedisServerAddress   string        `mapstructure:"REDIS_SERVER_ADDRESS"`
	IndexerURL           string        `mapstructure:"INDEXER_URL"`
	MarketplaceContract  string        `mapstructure:"MARKETPLACE_CONTRACT"`
	FeaturedBufferSize   int           `mapstructure:"FEATURED_BUFFER_SIZE"`
	SSEKeepAliveInterval time.Duration `mapstructure:"SSE_KEEPALIVE_INTERVAL"`
	WatchInterval        time.Duration `mapstructure:"WATCH_INTERVAL"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// Set defaults for non-sensitive config
	viper.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("HTTP_SERVER_ADDRESS", "0.0.0.0:8080")
	viper.SetDefault("FEATURED_BUFFER_SIZE", 50)
	viper.SetDefault("SSE_KEEPALIVE_INTERVAL", "25s")
	viper.SetDefault("WATCH_INTERVAL", "5s")

	// Prefer environment variables over config file
	viper.AutomaticEnv()

	// Load config file
	viper.SetConfigFile(path)
	if err = viper.ReadInConfig(); err != nil {
		return
	}

	// Unmarshal config into struct
	err = viper.UnmarshalExact(&config)
	if err != nil {
		return
	}

	// Validate required configuration
	err = validateConfig(config)
	return
}

func validateConfig(config Config) error {
	if config.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if config.RedisServerAddress == "" {
		return fmt.Errorf("REDIS_SERVER_ADDRESS is required")
	}
	if config.IndexerURL == "" {
		return fmt.Errorf("INDEXER_URL is required")
	}
	if config.MarketplaceContract == "" {
		return fmt.Errorf("MARKETPLACE_CONTRACT is required")
	}

	return nil
}
