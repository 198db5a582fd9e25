package osv

// Package identifies one package version to scan.
type Package struct {
	Name      string `json:"package_name"`
	Ecosystem string `json:"ecosystem"` // "Go", "npm", "PyPI", etc.
	Version   string `json:"version"`
}

// Report is the structured record one scan produces. The JSON field names are
// part of the CLI contract: CI pipelines parse them.
type Report struct {
	PackageName             string   `json:"package_name"`
	Ecosystem               string   `json:"ecosystem"`
	Version                 string   `json:"version"`
	VulnerabilitiesFound    int      `json:"vulnerabilities_found"`
	CriticalVulnerabilities []string `json:"critical_vulnerabilities"`
	HighVulnerabilities     []string `json:"high_vulnerabilities"`
	MediumVulnerabilities   []string `json:"medium_vulnerabilities"`
	Recommendations         []string `json:"recommendations"`
	Summary                 string   `json:"summary"`
}

// VulnerabilityDetail wraps a detail lookup for output rendering.
type VulnerabilityDetail struct {
	VulnerabilityID string `json:"vulnerability_id"`
	Details         string `json:"details"`
}

// buckets returns the severity buckets ordered from highest to lowest.
func (r Report) buckets() map[Severity][]string {
	return map[Severity][]string{
		SeverityCritical: r.CriticalVulnerabilities,
		SeverityHigh:     r.HighVulnerabilities,
		SeverityMedium:   r.MediumVulnerabilities,
	}
}

// AboveThreshold reports whether any severity bucket at or above th is
// non-empty. The record carries no low bucket, so a low threshold is satisfied
// by the medium bucket and above.
func (r Report) AboveThreshold(th Severity) bool {
	for sev, ids := range r.buckets() {
		if sev >= th && len(ids) > 0 {
			return true
		}
	}
	return false
}

// AnyAboveThreshold reports whether any of the batch results crosses th.
func AnyAboveThreshold(reports []Report, th Severity) bool {
	for _, r := range reports {
		if r.AboveThreshold(th) {
			return true
		}
	}
	return false
}
