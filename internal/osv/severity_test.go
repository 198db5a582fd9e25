package osv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		input string
		want  Severity
	}{
		{"low", SeverityLow},
		{"medium", SeverityMedium},
		{"high", SeverityHigh},
		{"critical", SeverityCritical},
		{"CRITICAL", SeverityCritical},
		{"High", SeverityHigh},
	}

	for _, tt := range tests {
		got, err := ParseSeverity(tt.input)
		assert.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

func TestParseSeverity_Unknown(t *testing.T) {
	_, err := ParseSeverity("catastrophic")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "catastrophic")
}

func TestSeverityOrdering(t *testing.T) {
	assert.True(t, SeverityLow < SeverityMedium)
	assert.True(t, SeverityMedium < SeverityHigh)
	assert.True(t, SeverityHigh < SeverityCritical)
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "medium", SeverityMedium.String())
	assert.Equal(t, "critical", SeverityCritical.String())
}

func TestReportAboveThreshold(t *testing.T) {
	rep := Report{
		PackageName:           "lodash",
		MediumVulnerabilities: []string{"GHSA-xxx"},
	}

	assert.True(t, rep.AboveThreshold(SeverityLow))
	assert.True(t, rep.AboveThreshold(SeverityMedium))
	assert.False(t, rep.AboveThreshold(SeverityHigh))
	assert.False(t, rep.AboveThreshold(SeverityCritical))
}

func TestReportAboveThreshold_Clean(t *testing.T) {
	rep := Report{PackageName: "requests"}

	// A clean report never crosses any threshold, including low.
	assert.False(t, rep.AboveThreshold(SeverityLow))
	assert.False(t, rep.AboveThreshold(SeverityCritical))
}

func TestAnyAboveThreshold(t *testing.T) {
	reports := []Report{
		{PackageName: "safe"},
		{PackageName: "bad", CriticalVulnerabilities: []string{"CVE-2024-0001"}},
	}

	assert.True(t, AnyAboveThreshold(reports, SeverityHigh))
	assert.False(t, AnyAboveThreshold(reports[:1], SeverityLow))
	assert.False(t, AnyAboveThreshold(nil, SeverityLow))
}
