package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"osvscan/internal/osv"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	ruleStyle  = lipgloss.NewStyle().Faint(true)
)

// RenderJSON renders any output value (a report, a report slice, or a
// vulnerability detail) as indented JSON.
func RenderJSON(v interface{}) (string, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode output: %w", err)
	}
	return string(b), nil
}

// RenderSingle formats one scan result as a decorated text report.
func RenderSingle(r osv.Report) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("📦 Package: %s (%s) v%s", r.PackageName, r.Ecosystem, r.Version))
	lines = append(lines, fmt.Sprintf("🔍 Vulnerabilities found: %d", r.VulnerabilitiesFound))

	if r.VulnerabilitiesFound > 0 {
		if len(r.CriticalVulnerabilities) > 0 {
			lines = append(lines, fmt.Sprintf("🚨 Critical: %s", strings.Join(r.CriticalVulnerabilities, ", ")))
		}
		if len(r.HighVulnerabilities) > 0 {
			lines = append(lines, fmt.Sprintf("⚠️  High: %s", strings.Join(r.HighVulnerabilities, ", ")))
		}
		if len(r.MediumVulnerabilities) > 0 {
			lines = append(lines, fmt.Sprintf("⚡ Medium: %s", strings.Join(r.MediumVulnerabilities, ", ")))
		}

		if len(r.Recommendations) > 0 {
			lines = append(lines, "", "💡 Recommendations:")
			for _, rec := range r.Recommendations {
				lines = append(lines, fmt.Sprintf("  • %s", rec))
			}
		}
	}

	lines = append(lines, "", fmt.Sprintf("📋 Summary: %s", r.Summary))
	return strings.Join(lines, "\n")
}

// RenderBatch formats batch scan results as a decorated text report.
func RenderBatch(reports []osv.Report) string {
	var lines []string
	lines = append(lines, titleStyle.Render("🔍 Vulnerability Scan Results"))
	lines = append(lines, ruleStyle.Render(strings.Repeat("=", 50)))

	vulnerable := 0
	for _, r := range reports {
		if r.VulnerabilitiesFound > 0 {
			vulnerable++
		}
	}
	lines = append(lines, fmt.Sprintf("📊 Summary: %d/%d packages have vulnerabilities", vulnerable, len(reports)))
	lines = append(lines, "")

	for i, r := range reports {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, RenderSingle(r)))
		if i < len(reports)-1 {
			lines = append(lines, ruleStyle.Render(strings.Repeat("-", 30)))
		}
	}

	return strings.Join(lines, "\n")
}

// RenderDetail formats a vulnerability detail lookup. The details text is
// markdown-rendered when the terminal supports it.
func RenderDetail(d osv.VulnerabilityDetail) string {
	details := d.Details
	if termenv.ColorProfile() != termenv.Ascii {
		if renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80)); err == nil {
			if out, err := renderer.Render(details); err == nil {
				details = strings.TrimSpace(out)
			}
		}
	}
	return fmt.Sprintf("Vulnerability %s:\n%s", d.VulnerabilityID, details)
}
