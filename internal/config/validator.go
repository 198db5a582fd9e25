package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"osvscan/internal/osv"
)

var knownProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"mock":      true,
}

// ValidateConfig validates configuration values after viper has loaded them.
func ValidateConfig() error {
	var errors []string

	if provider := viper.GetString("provider"); !knownProviders[provider] {
		errors = append(errors, fmt.Sprintf("unknown provider: %s", provider))
	}

	if th := viper.GetString("severity_threshold"); th != "" {
		if _, err := osv.ParseSeverity(th); err != nil {
			errors = append(errors, err.Error())
		}
	}

	if viper.GetString("osv_server") == "" {
		errors = append(errors, "osv_server must not be empty")
	}

	if viper.IsSet("timeout") {
		var timeout time.Duration
		if d := viper.GetDuration("timeout"); d != 0 {
			timeout = d
		} else if s := viper.GetInt("timeout"); s != 0 {
			timeout = time.Duration(s) * time.Second
		}
		if timeout <= 0 {
			errors = append(errors, fmt.Sprintf("timeout must be positive, got: %v", timeout))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(errors, "\n  - "))
	}
	return nil
}

// Timeout returns the configured scan timeout.
func Timeout() time.Duration {
	if d := viper.GetDuration("timeout"); d > time.Second {
		return d
	}
	if s := viper.GetInt("timeout"); s > 0 {
		return time.Duration(s) * time.Second
	}
	return 5 * time.Minute
}
