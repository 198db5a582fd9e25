package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"osvscan/internal/agent"
	"osvscan/internal/mcp"
	"osvscan/internal/osv"
	"osvscan/internal/telemetry"
)

// systemPrompt is the fixed instruction the agent runs under. It names the
// three OSV tools and the severity rubric, and pins the JSON shape of the
// answer so it can be decoded into an osv.Report.
const systemPrompt = `
You are a security vulnerability analyst assistant. You have access to OSV (Open Source Vulnerabilities) database tools:

1. query_vulnerability - Query for vulnerabilities affecting a specific package version
2. query_vulnerabilities_batch - Query for vulnerabilities affecting multiple packages at once
3. get_vulnerability - Get details for a specific vulnerability by ID

When users ask about package vulnerabilities, you should:
1. Use the appropriate OSV tool to query for vulnerabilities
2. Analyze the severity and impact of found vulnerabilities
3. Categorize vulnerabilities by severity (critical, high, medium, low)
4. Provide actionable recommendations for remediation
5. Summarize the security posture of the package

For severity classification:
- Critical: Remote code execution, privilege escalation, data exfiltration
- High: Authentication bypass, significant data exposure, DoS with high impact
- Medium: Information disclosure, moderate DoS, input validation issues
- Low: Minor information leaks, low-impact issues

Always answer with a single JSON object and nothing else, using exactly these keys:
{"package_name": string, "ecosystem": string, "version": string, "vulnerabilities_found": number, "critical_vulnerabilities": [string], "high_vulnerabilities": [string], "medium_vulnerabilities": [string], "recommendations": [string], "summary": string}
Return ONLY valid JSON, no markdown formatting, no code fences.
`

// Config holds the scanner configuration.
type Config struct {
	ServerURL string
	Provider  string
	Model     string
	APIKey    string
	Timeout   time.Duration
}

const (
	DefaultServerURL = "http://localhost:8080"
	DefaultProvider  = "anthropic"
	defaultTimeout   = 5 * time.Minute
)

// toolSession is the slice of mcp.Session the scanner needs; tests substitute
// a fake.
type toolSession interface {
	ListTools(ctx context.Context) ([]mcp.ToolDef, error)
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
	Close() error
}

// Scanner queries the OSV database through an LLM agent bound to the remote
// MCP tools.
type Scanner struct {
	cfg   Config
	agent agent.Agent

	// connect dials the MCP server for the duration of one operation.
	connect func(ctx context.Context) (toolSession, error)
}

// New creates a Scanner from config, constructing the LLM agent up front so
// credential problems surface before any scan starts.
func New(cfg Config) (*Scanner, error) {
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}
	if cfg.Provider == "" {
		cfg.Provider = DefaultProvider
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	ag, err := agent.NewAgent(cfg.Provider, cfg.APIKey, cfg.Model, systemPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize agent: %w", err)
	}

	s := &Scanner{cfg: cfg, agent: ag}
	s.connect = func(ctx context.Context) (toolSession, error) {
		return mcp.Connect(ctx, cfg.ServerURL)
	}
	return s, nil
}

// ScanPackage scans a single package version. Failures never surface as
// errors: they degrade into a report that echoes the package coordinates and
// carries the error in the recommendations and summary.
func (s *Scanner) ScanPackage(ctx context.Context, name, ecosystem, version string) osv.Report {
	telemetry.TrackScan(ecosystem)

	query := fmt.Sprintf("Scan %s version %s from %s ecosystem for vulnerabilities", name, version, ecosystem)

	answer, err := s.run(ctx, query)
	if err != nil {
		return errorReport(name, ecosystem, version, err)
	}

	report, err := coerceReport(answer)
	if err != nil {
		return errorReport(name, ecosystem, version, err)
	}
	return report
}

// ScanBatch scans packages sequentially; the result order matches the input
// order.
func (s *Scanner) ScanBatch(ctx context.Context, packages []osv.Package) []osv.Report {
	results := make([]osv.Report, 0, len(packages))
	for _, pkg := range packages {
		results = append(results, s.ScanPackage(ctx, pkg.Name, pkg.Ecosystem, pkg.Version))
	}
	return results
}

// VulnerabilityDetails looks up a single vulnerability by ID and returns the
// agent's summary. Failures come back as an error string, not an error.
func (s *Scanner) VulnerabilityDetails(ctx context.Context, id string) string {
	query := fmt.Sprintf("Get detailed information about vulnerability %s", id)

	answer, err := s.run(ctx, query)
	if err != nil {
		return fmt.Sprintf("Error retrieving vulnerability details: %v", err)
	}

	// The agent is instructed to answer in the report shape; fall back to the
	// raw text when it strays.
	if report, err := coerceReport(answer); err == nil && report.Summary != "" {
		return report.Summary
	}
	return strings.TrimSpace(answer)
}

// run connects to the MCP server, hands its tools to the agent, and awaits
// the final answer.
func (s *Scanner) run(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	session, err := s.connect(ctx)
	if err != nil {
		return "", err
	}
	defer session.Close()

	defs, err := session.ListTools(ctx)
	if err != nil {
		return "", err
	}

	tools := make([]agent.Tool, 0, len(defs))
	for _, def := range defs {
		tools = append(tools, agent.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		})
	}

	dispatch := func(ctx context.Context, name string, args map[string]any) (string, error) {
		telemetry.LogDebug("Dispatching tool call", "tool", name)
		return session.CallTool(ctx, name, args)
	}

	return s.agent.Run(ctx, query, tools, dispatch)
}

// coerceReport decodes the agent's free-form answer into the fixed record,
// stripping markdown code fences first.
func coerceReport(answer string) (osv.Report, error) {
	cleaned := stripCodeFences(answer)
	if cleaned == "" {
		return osv.Report{}, fmt.Errorf("agent returned empty response")
	}

	var report osv.Report
	if err := json.Unmarshal([]byte(cleaned), &report); err != nil {
		return osv.Report{}, fmt.Errorf("failed to parse agent response: %w", err)
	}
	return report, nil
}

// stripCodeFences removes a surrounding markdown code fence, which models add
// despite instructions.
func stripCodeFences(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx != -1 {
			content = content[idx+1:]
		} else {
			content = strings.TrimPrefix(content, "```json")
			content = strings.TrimPrefix(content, "```")
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

func errorReport(name, ecosystem, version string, err error) osv.Report {
	return osv.Report{
		PackageName:             name,
		Ecosystem:               ecosystem,
		Version:                 version,
		VulnerabilitiesFound:    0,
		CriticalVulnerabilities: []string{},
		HighVulnerabilities:     []string{},
		MediumVulnerabilities:   []string{},
		Recommendations:         []string{fmt.Sprintf("Error scanning package: %v", err)},
		Summary:                 fmt.Sprintf("Failed to scan %s@%s: %v", name, version, err),
	}
}
