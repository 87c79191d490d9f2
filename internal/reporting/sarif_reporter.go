// Filename: internal/reporting/sarif_reporter.go
package reporting

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
	"github.com/xkilldash9x/tripwire/internal/reporting/sarif"
	"github.com/xkilldash9x/tripwire/internal/scanner"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName     = "tripwire"
	ToolInfoURI  = "https://github.com/xkilldash9x/tripwire"
	SARIFVersion = "2.1.0"
	SARIFSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"

	fingerprintKey = "primaryLocationLineHash"
)

// calculateFingerprint hashes what identifies a finding across runs: the
// rule, the file and the trimmed source line, but not the line number.
func calculateFingerprint(ruleID string, loc java.LocationInfo) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s", ruleID, filepath.ToSlash(loc.File), strings.TrimSpace(loc.Snippet))
	return hex.EncodeToString(h.Sum(nil))
}

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// It is thread safe.
type SARIFReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	log    *sarif.Log
	// mu protects the log structure and the maps.
	mu sync.Mutex
	// ruleIndex maps a rule id to its position in the driver's rules.
	ruleIndex map[string]int
	// fingerprints counts repeated fingerprints so each result stays unique.
	fingerprints map[string]int
}

// NewSARIFReporter creates a new reporter that writes SARIF output. Every rule
// in meta is described up front, whether or not it reports.
func NewSARIFReporter(writer io.WriteCloser, logger *zap.Logger, meta Metadata) *SARIFReporter {
	driver := &sarif.ToolComponent{
		Name:           ToolName,
		InformationURI: pString(ToolInfoURI),
		Rules:          []*sarif.ReportingDescriptor{},
	}
	if meta.ToolVersion != "" {
		driver.Version = pString(meta.ToolVersion)
	}
	run := &sarif.Run{
		Tool:    &sarif.Tool{Driver: driver},
		Results: []*sarif.Result{},
	}
	if meta.RunID != "" {
		run.AutomationDetails = &sarif.AutomationDetails{
			ID:   pString(ToolName + "/" + meta.RunID),
			GUID: pString(meta.RunID),
		}
	}

	r := &SARIFReporter{
		writer:       writer,
		logger:       logger.Named("sarif_reporter"),
		log:          &sarif.Log{Version: SARIFVersion, Schema: SARIFSchema, Runs: []*sarif.Run{run}},
		ruleIndex:    make(map[string]int),
		fingerprints: make(map[string]int),
	}
	for _, rule := range meta.Rules {
		r.ensureRule(rule.ID, rule)
	}
	return r
}

// Write converts the reports of one file into SARIF results.
func (r *SARIFReporter) Write(result scanner.FileResult) error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	for _, rep := range result.Reports {
		index := r.ensureRule(rep.RuleID, nil)
		res := &sarif.Result{
			RuleID:    rep.RuleID,
			RuleIndex: &index,
			Message:   &sarif.Message{Text: pString(rep.Message)},
			Level:     mapSeverityToSARIFLevel(rep.Severity),
			Locations: []*sarif.Location{createLocation(rep.Location, nil)},
		}
		for i, sec := range rep.Secondary {
			id := i + 1
			res.RelatedLocations = append(res.RelatedLocations, createLocation(sec, &id))
		}

		fp := calculateFingerprint(rep.RuleID, rep.Location)
		occurrence := r.fingerprints[fp]
		r.fingerprints[fp] = occurrence + 1
		res.PartialFingerprints = map[string]string{fingerprintKey: fmt.Sprintf("%s:%d", fp, occurrence+1)}

		run.Results = append(run.Results, res)
	}

	if len(result.Reports) > 0 {
		r.logger.Debug("Wrote findings to SARIF buffer",
			zap.String("file", result.Path),
			zap.Int("findings_count", len(result.Reports)),
			zap.Duration("duration_ms", time.Since(startTime)),
		)
	}
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := r.log.Runs[0]
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_results", len(run.Results)),
		zap.Int("total_rules", len(run.Tool.Driver.Rules)),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	return closeAfter(r.writer, r.logger, encoder.Encode(r.log))
}

// ensureRule returns the index of the rule's descriptor, registering it on
// first use. rule may be nil for ids outside the run's metadata.
// NOTE: Must be called while holding the mutex, or during construction.
func (r *SARIFReporter) ensureRule(id string, rule *hardening.Rule) int {
	if index, ok := r.ruleIndex[id]; ok {
		return index
	}
	driver := r.log.Runs[0].Tool.Driver
	descriptor := &sarif.ReportingDescriptor{ID: id}
	if rule != nil {
		tags := []string{"security", ToolName}
		for _, cwe := range rule.CWE {
			tags = append(tags, fmt.Sprintf("external/cwe/cwe-%d", cwe))
		}
		name := rule.Name
		if name == "" {
			name = rule.ID
		}
		descriptor.Name = pString(name)
		descriptor.ShortDescription = &sarif.MultiformatMessageString{Text: pString(name)}
		descriptor.FullDescription = &sarif.MultiformatMessageString{Text: pString(rule.Message)}
		descriptor.Help = &sarif.MultiformatMessageString{
			Text:     pString(rule.Message),
			Markdown: pString(fmt.Sprintf("**%s**\n\n%s\n\nSecured by: `%s`", name, rule.Message, rule.Securing)),
		}
		descriptor.DefaultConfiguration = &sarif.Configuration{Level: mapSeverityToSARIFLevel(rule.Severity)}
		descriptor.Properties = &sarif.PropertyBag{
			"tags":      tags,
			"precision": "medium",
			"severity":  string(rule.Severity),
		}
	} else {
		r.logger.Debug("Registering SARIF rule without metadata", zap.String("rule_id", id))
	}
	driver.Rules = append(driver.Rules, descriptor)
	r.ruleIndex[id] = len(driver.Rules) - 1
	return len(driver.Rules) - 1
}

func createLocation(loc java.LocationInfo, id *int) *sarif.Location {
	region := &sarif.Region{
		StartLine:   loc.Line,
		StartColumn: loc.Column,
		EndLine:     loc.EndLine,
		EndColumn:   loc.EndColumn,
	}
	if loc.Snippet != "" {
		region.Snippet = &sarif.ArtifactContent{Text: pString(loc.Snippet)}
	}
	return &sarif.Location{
		ID: id,
		PhysicalLocation: &sarif.PhysicalLocation{
			ArtifactLocation: &sarif.ArtifactLocation{URI: pString(filepath.ToSlash(loc.File))},
			Region:           region,
		},
	}
}

// mapSeverityToSARIFLevel converts a rule severity to the SARIF standard.
func mapSeverityToSARIFLevel(severity hardening.Severity) sarif.Level {
	switch severity {
	case hardening.SeverityCritical:
		return sarif.LevelError
	case hardening.SeverityMajor:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

// pString returns a pointer to the given string value. Helper for optional SARIF fields.
func pString(s string) *string {
	return &s
}
