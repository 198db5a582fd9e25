package main

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// askOneFunc is swapped out in tests.
var askOneFunc = survey.AskOne

const (
	modeSingle = "Scan a single package"
	modeInline = "Scan a list of packages"
	modeFile   = "Scan packages from a JSON file"
	modeDetail = "Look up a vulnerability by ID"
)

// runInteractiveScan walks the user through a scan when osvscan is invoked
// with no subcommand. It fills in the scan flags and reuses runScanCmd.
func runInteractiveScan(cmd *cobra.Command) error {
	mode := ""
	err := askOneFunc(&survey.Select{
		Message: "What would you like to do?",
		Options: []string{modeSingle, modeInline, modeFile, modeDetail},
	}, &mode)
	if err != nil {
		return nil // User cancelled
	}

	switch mode {
	case modeSingle:
		prompts := []struct {
			message string
			target  *string
		}{
			{"Package name:", &scanPackage},
			{"Ecosystem (PyPI, npm, Go, ...):", &scanEcosystem},
			{"Version:", &scanVersion},
		}
		for _, p := range prompts {
			if err := askOneFunc(&survey.Input{Message: p.message}, p.target, survey.WithValidator(survey.Required)); err != nil {
				return nil
			}
		}

	case modeInline:
		if err := askOneFunc(&survey.Input{
			Message: "Packages (package:ecosystem:version, comma-separated):",
		}, &scanPackages, survey.WithValidator(survey.Required)); err != nil {
			return nil
		}

	case modeFile:
		if err := askOneFunc(&survey.Input{
			Message: "Path to packages JSON file:",
		}, &scanPackagesFile, survey.WithValidator(survey.Required)); err != nil {
			return nil
		}

	case modeDetail:
		if err := askOneFunc(&survey.Input{
			Message: "Vulnerability ID (e.g. GHSA-xxxx-xxxx-xxxx):",
		}, &scanVulnID, survey.WithValidator(survey.Required)); err != nil {
			return nil
		}
	}

	format := ""
	if err := askOneFunc(&survey.Select{
		Message: "Output format:",
		Options: []string{"text", "json"},
		Default: "text",
	}, &format); err != nil {
		return nil
	}
	scanOutputFormat = format

	fmt.Fprintln(cmd.OutOrStdout(), "")
	return runScanCmd(cmd, nil)
}
