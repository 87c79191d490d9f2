// Filename: internal/reporting/json_reporter.go
package reporting

import (
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
	"github.com/xkilldash9x/tripwire/internal/scanner"
)

// JSONDocument is the top-level object written by JSONReporter.
type JSONDocument struct {
	Tool     string        `json:"tool"`
	Version  string        `json:"version,omitempty"`
	RunID    string        `json:"run_id,omitempty"`
	Findings []JSONFinding `json:"findings"`
}

// JSONFinding is one report.
type JSONFinding struct {
	RuleID    string         `json:"rule_id"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	CWE       []int          `json:"cwe,omitempty"`
	Location  JSONLocation   `json:"location"`
	Secondary []JSONLocation `json:"secondary,omitempty"`
}

// JSONLocation is a source span.
type JSONLocation struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"end_line"`
	EndColumn int    `json:"end_column"`
	Snippet   string `json:"snippet,omitempty"`
}

func toJSONLocation(l java.LocationInfo) JSONLocation {
	return JSONLocation{
		File:      l.File,
		Line:      l.Line,
		Column:    l.Column,
		EndLine:   l.EndLine,
		EndColumn: l.EndColumn,
		Snippet:   l.Snippet,
	}
}

// JSONReporter buffers findings and writes one JSON document on Close.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	cwe    map[string][]int

	mu  sync.Mutex
	doc JSONDocument
}

// NewJSONReporter creates a reporter writing JSON.
func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger, meta Metadata) *JSONReporter {
	cwe := make(map[string][]int, len(meta.Rules))
	for _, r := range meta.Rules {
		cwe[r.ID] = r.CWE
	}
	return &JSONReporter{
		writer: writer,
		logger: logger.Named("json_reporter"),
		cwe:    cwe,
		doc: JSONDocument{
			Tool:     ToolName,
			Version:  meta.ToolVersion,
			RunID:    meta.RunID,
			Findings: []JSONFinding{},
		},
	}
}

func (r *JSONReporter) Write(result scanner.FileResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range result.Reports {
		f := JSONFinding{
			RuleID:   rep.RuleID,
			Severity: string(rep.Severity),
			Message:  rep.Message,
			CWE:      r.cwe[rep.RuleID],
			Location: toJSONLocation(rep.Location),
		}
		for _, sec := range rep.Secondary {
			f.Secondary = append(f.Secondary, toJSONLocation(sec))
		}
		r.doc.Findings = append(r.doc.Findings, f)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger.Debug("Writing JSON report", zap.Int("findings", len(r.doc.Findings)))

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return closeAfter(r.writer, r.logger, encoder.Encode(r.doc))
}
