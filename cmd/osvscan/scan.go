package main

import (
	"context"
	"fmt"
	"os"

	"osvscan/internal/config"
	"osvscan/internal/db"
	"osvscan/internal/notify"
	"osvscan/internal/osv"
	"osvscan/internal/report"
	"osvscan/internal/scanner"
	"osvscan/internal/telemetry"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	scanPackage      string
	scanEcosystem    string
	scanVersion      string
	scanPackages     string
	scanPackagesFile string
	scanVulnID       string
	scanOutputFormat string
	scanOutputFile   string
	scanFailOnVulns  bool
	scanSevThreshold string
)

// packageScanner is the slice of scanner.Scanner the commands use; tests
// substitute a mock.
type packageScanner interface {
	ScanPackage(ctx context.Context, name, ecosystem, version string) osv.Report
	ScanBatch(ctx context.Context, packages []osv.Package) []osv.Report
	VulnerabilityDetails(ctx context.Context, id string) string
}

// scannerFactory builds the scanner from viper config. A variable so tests
// can inject a mock.
var scannerFactory = func() (packageScanner, error) {
	provider := viper.GetString("provider")
	sc, err := scanner.New(scanner.Config{
		ServerURL: viper.GetString("osv_server"),
		Provider:  provider,
		Model:     viper.GetString("model"),
		APIKey:    config.APIKey(provider),
		Timeout:   config.Timeout(),
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// storeFactory opens the scan-history store. History is best-effort: factory
// errors are logged, never fatal.
var storeFactory = func() (db.Store, error) {
	return db.NewStore(db.StoreConfig{
		Type:             viper.GetString("store.type"),
		ConnectionString: viper.GetString("store.connection_string"),
	})
}

// notifierFactory returns nil when no webhook is configured.
var notifierFactory = func() notify.Notifier {
	url := viper.GetString("notifications.slack.webhook_url")
	if url == "" {
		return nil
	}
	return notify.NewSlackNotifier(url)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan packages or look up a vulnerability",
	Long: `Scan packages for known vulnerabilities, or look up one vulnerability by ID.

Exactly one scan mode must be selected:
  single package:  --package NAME --ecosystem ECO --version VER
  inline batch:    --packages "req:PyPI:2.25.0,lodash:npm:4.17.20"
  batch from file: --packages-file packages.json
  detail lookup:   --vulnerability-id GHSA-xxxx-xxxx-xxxx`,
	RunE: runScanCmd,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanPackage, "package", "", "Package name to scan")
	scanCmd.Flags().StringVar(&scanEcosystem, "ecosystem", "", "Package ecosystem (PyPI, npm, Go, etc.)")
	scanCmd.Flags().StringVar(&scanVersion, "version", "", "Package version to scan")
	scanCmd.Flags().StringVar(&scanPackages, "packages", "", "Comma-separated packages in format: package:ecosystem:version")
	scanCmd.Flags().StringVar(&scanPackagesFile, "packages-file", "", "JSON file containing packages to scan")
	scanCmd.Flags().StringVar(&scanVulnID, "vulnerability-id", "", "Get details for specific vulnerability ID")
	scanCmd.Flags().StringVar(&scanOutputFormat, "output-format", "text", "Output format (json or text)")
	scanCmd.Flags().StringVar(&scanOutputFile, "output-file", "", "Write output to file instead of stdout")
	scanCmd.Flags().BoolVar(&scanFailOnVulns, "fail-on-vulnerabilities", false, "Exit with code 1 if vulnerabilities are found (useful for CI/CD)")
	scanCmd.Flags().StringVar(&scanSevThreshold, "severity-threshold", "medium", "Minimum severity to report (low, medium, high, critical)")
}

func runScanCmd(cmd *cobra.Command, args []string) error {
	if err := config.ValidateConfig(); err != nil {
		return err
	}

	singleMode := scanPackage != "" && scanEcosystem != "" && scanVersion != ""
	modes := 0
	for _, selected := range []bool{singleMode, scanPackages != "", scanPackagesFile != "", scanVulnID != ""} {
		if selected {
			modes++
		}
	}
	if modes != 1 {
		return fmt.Errorf("specify exactly one of: single package, packages list, packages file, or vulnerability ID")
	}

	if scanOutputFormat != "text" && scanOutputFormat != "json" {
		return fmt.Errorf("invalid output format %q (expected json or text)", scanOutputFormat)
	}

	threshold, err := osv.ParseSeverity(scanSevThreshold)
	if err != nil {
		return err
	}

	sc, err := scannerFactory()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		rendered  string
		failed    bool
		alertText string
	)

	switch {
	case scanVulnID != "":
		detail := osv.VulnerabilityDetail{
			VulnerabilityID: scanVulnID,
			Details:         sc.VulnerabilityDetails(ctx, scanVulnID),
		}
		if scanOutputFormat == "json" {
			rendered, err = report.RenderJSON(detail)
		} else {
			rendered = report.RenderDetail(detail)
		}

	case singleMode:
		rep := sc.ScanPackage(ctx, scanPackage, scanEcosystem, scanVersion)
		recordHistory(rep)
		failed = rep.AboveThreshold(threshold)
		alertText = fmt.Sprintf("osvscan: %s@%s (%s) has vulnerabilities at or above %s severity", rep.PackageName, rep.Version, rep.Ecosystem, threshold)
		if scanOutputFormat == "json" {
			rendered, err = report.RenderJSON(rep)
		} else {
			rendered = report.RenderSingle(rep)
		}

	default:
		var packages []osv.Package
		if scanPackages != "" {
			packages, err = osv.ParsePackagesArg(scanPackages)
		} else {
			packages, err = osv.ParsePackagesFile(scanPackagesFile)
		}
		if err != nil {
			return err
		}

		reports := sc.ScanBatch(ctx, packages)
		for _, rep := range reports {
			recordHistory(rep)
		}
		failed = osv.AnyAboveThreshold(reports, threshold)
		alertText = fmt.Sprintf("osvscan: %d scanned packages include vulnerabilities at or above %s severity", len(reports), threshold)
		if scanOutputFormat == "json" {
			rendered, err = report.RenderJSON(reports)
		} else {
			rendered = report.RenderBatch(reports)
		}
	}
	if err != nil {
		return err
	}

	if scanOutputFile != "" {
		if err := os.WriteFile(scanOutputFile, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Results written to %s\n", scanOutputFile)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), rendered)
	}

	if failed {
		if notifier := notifierFactory(); notifier != nil {
			if err := notifier.Notify(ctx, alertText); err != nil {
				telemetry.LogError("Failed to send notification", err)
			}
		}
	}

	if scanFailOnVulns && failed {
		fmt.Fprintf(cmd.ErrOrStderr(), "\n❌ Vulnerabilities found above %s severity threshold\n", threshold)
		exit(1)
	}

	return nil
}

// recordHistory persists one scan result. Best-effort only.
func recordHistory(rep osv.Report) {
	store, err := storeFactory()
	if err != nil {
		telemetry.LogDebug("Scan history unavailable", "error", err)
		return
	}
	defer store.Close()

	if err := store.SaveScan(viper.GetString("osv_server"), rep); err != nil {
		telemetry.LogDebug("Failed to record scan history", "error", err)
	}
}
