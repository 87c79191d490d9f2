// Filename: internal/reporting/text_reporter.go
package reporting

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/scanner"
)

// TextReporter prints one block per report, compiler style, followed by a
// summary line.
type TextReporter struct {
	writer io.WriteCloser
	out    *bufio.Writer
	logger *zap.Logger

	mu      sync.Mutex
	reports int
	files   int
}

// NewTextReporter creates a reporter writing plain text.
func NewTextReporter(writer io.WriteCloser, logger *zap.Logger) *TextReporter {
	return &TextReporter{
		writer: writer,
		out:    bufio.NewWriter(writer),
		logger: logger.Named("text_reporter"),
	}
}

func (r *TextReporter) Write(result scanner.FileResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(result.Reports) == 0 {
		return nil
	}
	r.files++
	for _, rep := range result.Reports {
		r.reports++
		fmt.Fprintf(r.out, "%s: [%s] %s: %s\n", rep.Location, rep.Severity, rep.RuleID, rep.Message)
		if snippet := strings.TrimSpace(rep.Location.Snippet); snippet != "" {
			fmt.Fprintf(r.out, "    %s\n", snippet)
		}
		for _, sec := range rep.Secondary {
			fmt.Fprintf(r.out, "    related: %s\n", sec)
		}
	}
	return nil
}

func (r *TextReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.reports {
	case 0:
		fmt.Fprintln(r.out, "No findings.")
	case 1:
		fmt.Fprintln(r.out, "\n1 finding in 1 file.")
	default:
		fmt.Fprintf(r.out, "\n%d findings in %d %s.\n", r.reports, r.files, plural(r.files, "file", "files"))
	}
	return closeAfter(r.writer, r.logger, r.out.Flush())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
