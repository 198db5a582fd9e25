package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"osvscan/internal/db"
	"osvscan/internal/notify"
	"osvscan/internal/osv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockScanner struct {
	reports map[string]osv.Report
	details string
	scanned []osv.Package
}

func (m *mockScanner) ScanPackage(ctx context.Context, name, ecosystem, version string) osv.Report {
	m.scanned = append(m.scanned, osv.Package{Name: name, Ecosystem: ecosystem, Version: version})
	if r, ok := m.reports[name]; ok {
		return r
	}
	return osv.Report{PackageName: name, Ecosystem: ecosystem, Version: version}
}

func (m *mockScanner) ScanBatch(ctx context.Context, packages []osv.Package) []osv.Report {
	reports := make([]osv.Report, 0, len(packages))
	for _, p := range packages {
		reports = append(reports, m.ScanPackage(ctx, p.Name, p.Ecosystem, p.Version))
	}
	return reports
}

func (m *mockScanner) VulnerabilityDetails(ctx context.Context, id string) string {
	return m.details
}

type mockStore struct {
	saved []osv.Report
}

func (m *mockStore) Close() error { return nil }
func (m *mockStore) SaveScan(serverURL string, report osv.Report) error {
	m.saved = append(m.saved, report)
	return nil
}
func (m *mockStore) History(limit int) ([]db.ScanRecord, error) { return nil, nil }

// setupScanTest wires mock factories and resets the scan flags, restoring
// everything when the test ends.
func setupScanTest(t *testing.T, sc *mockScanner, store *mockStore) *cobra.Command {
	t.Helper()

	origScanner := scannerFactory
	origStore := storeFactory
	origNotifier := notifierFactory
	origExit := exit
	t.Cleanup(func() {
		scannerFactory = origScanner
		storeFactory = origStore
		notifierFactory = origNotifier
		exit = origExit
		scanPackage, scanEcosystem, scanVersion = "", "", ""
		scanPackages, scanPackagesFile, scanVulnID = "", "", ""
		scanOutputFormat, scanOutputFile = "text", ""
		scanFailOnVulns = false
		scanSevThreshold = "medium"
		viper.Reset()
	})

	scannerFactory = func() (packageScanner, error) { return sc, nil }
	storeFactory = func() (db.Store, error) { return store, nil }
	notifierFactory = func() notify.Notifier { return nil }

	viper.Set("provider", "mock")
	viper.Set("osv_server", "http://localhost:8080")
	viper.Set("severity_threshold", "medium")
	viper.Set("timeout", 300)

	cmd := &cobra.Command{}
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	return cmd
}

func TestScanRequiresExactlyOneMode(t *testing.T) {
	cmd := setupScanTest(t, &mockScanner{}, &mockStore{})

	err := runScanCmd(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specify exactly one of")

	// Partial single-package flags do not count as a mode.
	scanPackage = "requests"
	scanEcosystem = "PyPI"
	err = runScanCmd(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specify exactly one of")

	// Two modes at once.
	scanVersion = "2.25.0"
	scanVulnID = "GHSA-xxxx"
	err = runScanCmd(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "specify exactly one of")
}

func TestScanSinglePackageText(t *testing.T) {
	store := &mockStore{}
	sc := &mockScanner{reports: map[string]osv.Report{
		"requests": {
			PackageName:          "requests",
			Ecosystem:            "PyPI",
			Version:              "2.25.0",
			VulnerabilitiesFound: 1,
			HighVulnerabilities:  []string{"GHSA-j8r2-6x86-q33q"},
			Recommendations:      []string{"Upgrade to 2.32.0"},
			Summary:              "One high severity issue.",
		},
	}}
	cmd := setupScanTest(t, sc, store)

	scanPackage = "requests"
	scanEcosystem = "PyPI"
	scanVersion = "2.25.0"

	err := runScanCmd(cmd, nil)
	require.NoError(t, err)

	out := cmd.OutOrStdout().(*bytes.Buffer).String()
	assert.Contains(t, out, "📦 Package: requests (PyPI) v2.25.0")
	assert.Contains(t, out, "GHSA-j8r2-6x86-q33q")
	require.Len(t, store.saved, 1)
	assert.Equal(t, "requests", store.saved[0].PackageName)
}

func TestScanSinglePackageJSON(t *testing.T) {
	cmd := setupScanTest(t, &mockScanner{}, &mockStore{})

	scanPackage = "lodash"
	scanEcosystem = "npm"
	scanVersion = "4.17.20"
	scanOutputFormat = "json"

	err := runScanCmd(cmd, nil)
	require.NoError(t, err)

	out := cmd.OutOrStdout().(*bytes.Buffer).String()
	assert.Contains(t, out, `"package_name": "lodash"`)
	assert.Contains(t, out, `"vulnerabilities_found": 0`)
}

func TestScanRejectsUnknownOutputFormat(t *testing.T) {
	cmd := setupScanTest(t, &mockScanner{}, &mockStore{})

	scanVulnID = "GHSA-xxxx"
	scanOutputFormat = "yaml"

	err := runScanCmd(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestScanBatchFromInlineList(t *testing.T) {
	store := &mockStore{}
	sc := &mockScanner{}
	cmd := setupScanTest(t, sc, store)

	scanPackages = "requests:PyPI:2.25.0,lodash:npm:4.17.20"

	err := runScanCmd(cmd, nil)
	require.NoError(t, err)

	require.Len(t, sc.scanned, 2)
	assert.Equal(t, "requests", sc.scanned[0].Name)
	assert.Equal(t, "lodash", sc.scanned[1].Name)
	assert.Len(t, store.saved, 2)

	out := cmd.OutOrStdout().(*bytes.Buffer).String()
	assert.Contains(t, out, "🔍 Vulnerability Scan Results")
	assert.Contains(t, out, "📊 Summary: 0/2 packages have vulnerabilities")
}

func TestScanBatchInvalidInlineList(t *testing.T) {
	cmd := setupScanTest(t, &mockScanner{}, &mockStore{})

	scanPackages = "not-a-triple"

	err := runScanCmd(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid package format")
}

func TestScanVulnerabilityDetail(t *testing.T) {
	sc := &mockScanner{details: "Remote code execution in log4j."}
	cmd := setupScanTest(t, sc, &mockStore{})

	scanVulnID = "GHSA-jfh8-c2jp-5v3q"

	err := runScanCmd(cmd, nil)
	require.NoError(t, err)

	out := cmd.OutOrStdout().(*bytes.Buffer).String()
	assert.Contains(t, out, "GHSA-jfh8-c2jp-5v3q")
	assert.Contains(t, out, "Remote code execution")
}

func TestScanWritesOutputFile(t *testing.T) {
	cmd := setupScanTest(t, &mockScanner{}, &mockStore{})

	path := filepath.Join(t.TempDir(), "results.json")
	scanPackage = "requests"
	scanEcosystem = "PyPI"
	scanVersion = "2.25.0"
	scanOutputFormat = "json"
	scanOutputFile = path

	err := runScanCmd(cmd, nil)
	require.NoError(t, err)

	out := cmd.OutOrStdout().(*bytes.Buffer).String()
	assert.Contains(t, out, "Results written to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"package_name": "requests"`)
}

func TestScanFailOnVulnerabilities(t *testing.T) {
	sc := &mockScanner{reports: map[string]osv.Report{
		"requests": {
			PackageName:             "requests",
			VulnerabilitiesFound:    1,
			CriticalVulnerabilities: []string{"CVE-2024-0001"},
		},
	}}
	cmd := setupScanTest(t, sc, &mockStore{})

	exitCode := -1
	exit = func(code int) { exitCode = code }

	scanPackage = "requests"
	scanEcosystem = "PyPI"
	scanVersion = "2.25.0"
	scanFailOnVulns = true

	err := runScanCmd(cmd, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, exitCode)
	errOut := cmd.ErrOrStderr().(*bytes.Buffer).String()
	assert.Contains(t, errOut, "❌ Vulnerabilities found above medium severity threshold")
}

func TestScanBelowThresholdDoesNotFail(t *testing.T) {
	sc := &mockScanner{reports: map[string]osv.Report{
		"requests": {
			PackageName:           "requests",
			VulnerabilitiesFound:  1,
			MediumVulnerabilities: []string{"CVE-2024-0002"},
		},
	}}
	cmd := setupScanTest(t, sc, &mockStore{})

	exitCode := -1
	exit = func(code int) { exitCode = code }

	scanPackage = "requests"
	scanEcosystem = "PyPI"
	scanVersion = "2.25.0"
	scanFailOnVulns = true
	scanSevThreshold = "high"

	err := runScanCmd(cmd, nil)
	require.NoError(t, err)
	assert.Equal(t, -1, exitCode, "exit should not be called below the threshold")
}

func TestScanInvalidThreshold(t *testing.T) {
	cmd := setupScanTest(t, &mockScanner{}, &mockStore{})

	scanVulnID = "GHSA-xxxx"
	scanSevThreshold = "catastrophic"

	err := runScanCmd(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")
}
