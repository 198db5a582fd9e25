package main

import (
	"fmt"
	"os"
	"strings"

	"osvscan/internal/config"
	"osvscan/internal/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var exit = os.Exit
var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "osvscan",
	Short: "Scan packages for known vulnerabilities via an OSV-backed AI agent",
	Long: `osvscan checks software packages against the OSV (Open Source
Vulnerabilities) database. Queries are answered by an LLM agent that calls the
remote OSV tools over MCP, and the result is rendered as a text report or JSON
with a severity-threshold exit policy for CI pipelines.`,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'osvscan --help' for usage.")
		exit(1)
	}
}

func init() {
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		// Default behavior: interactive scan wizard
		return runInteractiveScan(cmd)
	}
	cobra.OnInitialize(initConfig)

	// Accept underscores in flag names so --osv_server works like --osv-server.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.osvscan.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("osv-server", "", "OSV MCP server URL (default http://localhost:8080)")
	rootCmd.PersistentFlags().String("provider", "", "Agent provider (anthropic, openai)")
	rootCmd.PersistentFlags().String("model", "", "Model to use (overrides config and OSVSCAN_MODEL env var)")
	rootCmd.PersistentFlags().String("api-key", "", "API key for the agent provider (can also use ANTHROPIC_API_KEY / OPENAI_API_KEY)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "Expose Prometheus metrics on this address (e.g. :2112)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("osv_server", rootCmd.PersistentFlags().Lookup("osv-server"))
	viper.BindPFlag("provider", rootCmd.PersistentFlags().Lookup("provider"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("api_key", rootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("metrics_addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.Load(cfgFile)
	telemetry.InitLogger(viper.GetBool("verbose"), viper.GetString("log_file"))

	if addr := viper.GetString("metrics_addr"); addr != "" {
		go func() {
			if err := telemetry.StartMetricsServer(addr); err != nil {
				telemetry.LogError("Metrics server stopped", err)
			}
		}()
	}
}
