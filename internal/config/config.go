package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		Path string
	}
	Server struct {
		Port      int
		JWTSecret string
	}
	SMTP struct {
		Host     string
		Port     int
		From     string
		Password string
	}
	Slack struct {
		Token   string
		Channel string
	}
	Reports struct {
		OutputDir string
		RunHour   int
		Timezone  string
	}
}

// LoadConfig loads configuration from config.yaml, writing a default file
// when none exists.
func LoadConfig() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	viper.SetDefault("database.path", "data/reportmill.db")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.jwtsecret", "change-me")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("smtp.from", "ReportMill <noreply@reportmill.local>")
	viper.SetDefault("reports.outputdir", "data/reports")
	viper.SetDefault("reports.runhour", 8)
	viper.SetDefault("reports.timezone", "UTC")

	var config Config

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if err := os.MkdirAll("data", 0755); err != nil {
				fmt.Printf("Warning: Failed to create data directory: %v\n", err)
			}
			if err := viper.SafeWriteConfig(); err != nil {
				fmt.Printf("Warning: Failed to write default config: %v\n", err)
			}
		} else {
			fmt.Printf("Error reading config file: %v\n", err)
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		fmt.Printf("Error unmarshaling config: %v\n", err)
	}

	return &config
}
