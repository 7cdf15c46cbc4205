package notify

import (
	"bytes"
	"fmt"
	"text/template"

	"dqpipe/pkg/contracts/domain"
)

// BuildSubject returns the subject line for a severity level.
func BuildSubject(severity domain.Severity) string {
	switch severity {
	case domain.SeverityHigh:
		return "[ACTION REQUIRED] Data Quality Alert: High Drop Rate"
	case domain.SeverityMedium:
		return "[NOTICE] Data Quality Report: Moderate Issues"
	default:
		return "Data Quality Report: Clean Run"
	}
}

// bodyTemplate renders the plain-text report body.
var bodyTemplate = template.Must(template.New("report").Parse(`Hello {{.ClientName}},

Your data quality report for {{.SourceFile}} is ready.

  Rows seen:     {{.Metrics.RowsSeen}}
  Rows retained: {{.Metrics.RowsRetained}}
  Rows dropped:  {{.Metrics.RowsDropped}}
  Drop rate:     {{printf "%.2f%%" .DropRatePct}}
  Severity:      {{.Severity}}
{{if .Reasons}}
Drop reasons:
{{- range .Reasons}}
  {{.Reason}}: {{.Count}}
{{- end}}
{{end}}{{if .Stats}}
Numeric columns:
{{- range .Stats}}
  {{.Column}}: mean {{printf "%.2f" .Mean}}, min {{printf "%.2f" .Min}}, max {{printf "%.2f" .Max}}, sum {{printf "%.2f" .Sum}}
{{- end}}
{{end}}
The full report is attached as {{.ReportName}}.
`))

// reasonLine is one reason row in the rendered body.
type reasonLine struct {
	Reason domain.DropReason
	Count  int
}

// bodyContext is the template input for BuildBody.
type bodyContext struct {
	ClientName  string
	SourceFile  string
	Metrics     *domain.QualityMetrics
	DropRatePct float64
	Severity    string
	Reasons     []reasonLine
	Stats       []domain.ColumnStats
	ReportName  string
}

// BuildBody renders the notification body for one run.
func BuildBody(clientName, sourceFile, reportName string, metrics *domain.QualityMetrics, severity domain.Severity, orderedReasons []domain.DropReason, stats []domain.ColumnStats) (string, error) {
	if clientName == "" {
		clientName = "Customer"
	}

	reasons := make([]reasonLine, 0, len(orderedReasons))
	for _, reason := range orderedReasons {
		reasons = append(reasons, reasonLine{Reason: reason, Count: metrics.ReasonCounts[reason]})
	}

	var buf bytes.Buffer
	err := bodyTemplate.Execute(&buf, bodyContext{
		ClientName:  clientName,
		SourceFile:  sourceFile,
		Metrics:     metrics,
		DropRatePct: metrics.DropRate * 100,
		Severity:    severity.String(),
		Reasons:     reasons,
		Stats:       stats,
		ReportName:  reportName,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render notification body: %w", err)
	}
	return buf.String(), nil
}
