package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// explicit .env loading; missing .env files are fine
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".osvscan")
	}

	viper.SetEnvPrefix("OSVSCAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// API keys follow the provider SDK conventions rather than the OSVSCAN
	// prefix.
	if os.Getenv("ANTHROPIC_API_KEY") != "" {
		viper.SetDefault("anthropic_api_key", os.Getenv("ANTHROPIC_API_KEY"))
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		viper.SetDefault("openai_api_key", os.Getenv("OPENAI_API_KEY"))
	}

	// Set defaults
	viper.SetDefault("osv_server", "http://localhost:8080")
	viper.SetDefault("provider", "anthropic")
	viper.SetDefault("model", "")
	viper.SetDefault("severity_threshold", "medium")
	viper.SetDefault("timeout", 300)
	viper.SetDefault("verbose", false)
	viper.SetDefault("store.type", "sqlite")
	viper.SetDefault("store.connection_string", "")
	viper.SetDefault("notifications.slack.webhook_url", os.Getenv("SLACK_WEBHOOK_URL"))

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// APIKey returns the credential for the configured provider. The --api-key
// flag and OSVSCAN_API_KEY env win over the provider-specific variables.
func APIKey(provider string) string {
	if key := viper.GetString("api_key"); key != "" {
		return key
	}
	switch provider {
	case "anthropic":
		return viper.GetString("anthropic_api_key")
	case "openai":
		return viper.GetString("openai_api_key")
	}
	return ""
}
