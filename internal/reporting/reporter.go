// Filename: internal/reporting/reporter.go
// Package reporting renders scan results as text, JSON or SARIF.
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
	"github.com/xkilldash9x/tripwire/internal/scanner"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrUnknownFormat is returned by New for an unsupported format name.
var ErrUnknownFormat = errors.New("unsupported output format")

// Formats lists the accepted format names.
var Formats = []string{"text", "json", "sarif"}

// Reporter writes scan results to an output.
type Reporter interface {
	// Write adds the results of one file. Files arrive in path order.
	Write(result scanner.FileResult) error
	// Close finalizes the report and closes the underlying output.
	Close() error
}

// Metadata describes the run being reported.
type Metadata struct {
	ToolVersion string
	RunID       string
	// Rules are the rules the run evaluated, in catalog order.
	Rules []*hardening.Rule
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a reporter for format writing to outputPath, or to stdout when
// outputPath is empty or "stdout".
func New(format, outputPath string, logger *zap.Logger, meta Metadata) (Reporter, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	switch format {
	case "text", "json", "sarif":
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		path, err := homedir.Expand(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to expand output path %s: %w", outputPath, err)
		}
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
		}
		writer = f
	}
	return NewWithWriter(format, writer, logger, meta)
}

// NewWithWriter creates a reporter that takes ownership of writer.
func NewWithWriter(format string, writer io.WriteCloser, logger *zap.Logger, meta Metadata) (Reporter, error) {
	switch format {
	case "text":
		return NewTextReporter(writer, logger), nil
	case "json":
		return NewJSONReporter(writer, logger, meta), nil
	case "sarif":
		return NewSARIFReporter(writer, logger, meta), nil
	default:
		writer.Close()
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteRun writes every file of run and closes the reporter.
func WriteRun(r Reporter, run *scanner.Run) error {
	for _, f := range run.Files {
		if err := r.Write(f); err != nil {
			r.Close()
			return err
		}
	}
	return r.Close()
}

// closeAfter closes writer and reports the first of the write and close
// errors.
func closeAfter(writer io.Closer, logger *zap.Logger, writeErr error) error {
	closeErr := writer.Close()
	if writeErr != nil {
		logger.Error("Failed to write report", zap.Error(writeErr))
		return fmt.Errorf("failed to write report: %w", writeErr)
	}
	if closeErr != nil {
		logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	return nil
}
