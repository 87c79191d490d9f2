// Filename: internal/scanner/scanner.go
// Package scanner finds Java compilation units on disk and runs the hardening
// analysis over them in parallel.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// ErrNoSources is returned when discovery finds nothing to analyze.
var ErrNoSources = errors.New("no source files found")

// Analyzer evaluates one parsed unit. *hardening.Analyzer implements it.
type Analyzer interface {
	Analyze(unit *java.Unit) []hardening.Report
}

var _ Analyzer = (*hardening.Analyzer)(nil)

// Options controls discovery and scheduling.
type Options struct {
	Concurrency int
	// Extensions are matched case-insensitively, with the leading dot.
	Extensions []string
	// ExcludeDirs are directory base names never descended into.
	ExcludeDirs []string
	// MaxFileSize skips larger files. Zero disables the cap.
	MaxFileSize int64
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		Concurrency: 4,
		Extensions:  []string{".java"},
		ExcludeDirs: []string{".git", ".svn", ".hg", "node_modules", "build", "target", "out"},
		MaxFileSize: 2 << 20,
	}
}

// FileResult holds the reports of one unit.
type FileResult struct {
	Path    string
	Reports []hardening.Report
	// SyntaxErrors is set when the unit only partially parsed.
	SyntaxErrors bool
}

// Skipped records a unit that was not analyzed.
type Skipped struct {
	Path   string
	Reason string
}

// Run is the outcome of one scan. Files and Skipped are sorted by path.
type Run struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	Files    []FileResult
	Skipped  []Skipped
}

// ReportCount returns the number of reports across all files.
func (r *Run) ReportCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Reports)
	}
	return n
}

// Reports returns every report in path order.
func (r *Run) Reports() []hardening.Report {
	out := make([]hardening.Report, 0, r.ReportCount())
	for _, f := range r.Files {
		out = append(out, f.Reports...)
	}
	return out
}

// Scanner schedules units over a bounded pool of workers, each owning its own
// parser.
type Scanner struct {
	logger   *zap.Logger
	analyzer Analyzer
	hints    *java.TypeHints
	opts     Options
}

// New creates a Scanner. hints may be nil.
func New(logger *zap.Logger, analyzer Analyzer, hints *java.TypeHints, opts Options) (*Scanner, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if analyzer == nil {
		return nil, errors.New("analyzer cannot be nil")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultOptions().Concurrency
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = DefaultOptions().Extensions
	}
	return &Scanner{
		logger:   logger.With(zap.String("component", "scanner")),
		analyzer: analyzer,
		hints:    hints,
		opts:     opts,
	}, nil
}

// Discover expands roots into a sorted, de-duplicated list of unit paths.
// Files named explicitly are kept whatever their extension.
func (s *Scanner) Discover(roots []string) ([]string, []Skipped, error) {
	seen := make(map[string]bool)
	var paths []string
	var skipped []Skipped

	add := func(path string, size int64) {
		path = filepath.Clean(path)
		if seen[path] {
			return
		}
		seen[path] = true
		if s.opts.MaxFileSize > 0 && size > s.opts.MaxFileSize {
			skipped = append(skipped, Skipped{Path: path, Reason: fmt.Sprintf("larger than %d bytes", s.opts.MaxFileSize)})
			return
		}
		paths = append(paths, path)
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, nil, fmt.Errorf("could not stat %s: %w", root, err)
		}
		if !info.IsDir() {
			add(root, info.Size())
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				s.logger.Warn("Skipping unreadable path", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if path != root && s.excluded(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || !s.matchesExtension(path) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				skipped = append(skipped, Skipped{Path: path, Reason: err.Error()})
				return nil
			}
			add(path, info.Size())
			return nil
		})
		if err != nil {
			return nil, nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	slices.Sort(paths)
	sortSkipped(skipped)
	if len(paths) == 0 {
		return nil, skipped, ErrNoSources
	}
	return paths, skipped, nil
}

func (s *Scanner) excluded(name string) bool {
	return slices.Contains(s.opts.ExcludeDirs, name)
}

func (s *Scanner) matchesExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, want := range s.opts.Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

// Scan discovers and analyzes every unit under roots. Units that cannot be
// read or parsed are logged and listed in Run.Skipped; the others still run.
// Cancellation is honored between units.
func (s *Scanner) Scan(ctx context.Context, roots []string) (*Run, error) {
	run := &Run{ID: uuid.NewString(), Started: time.Now()}
	paths, skipped, err := s.Discover(roots)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("run_id", run.ID))
	workers := min(s.opts.Concurrency, len(paths))
	logger.Info("Starting scan", zap.Int("files", len(paths)), zap.Int("workers", workers))

	queue := make(chan int, len(paths))
	for i := range paths {
		queue <- i
	}
	close(queue)

	// Each slot is written by exactly one worker.
	results := make([]*FileResult, len(paths))
	failures := make([]string, len(paths))

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			parser := java.NewParser(logger, s.hints)
			defer parser.Close()
			for i := range queue {
				if err := groupCtx.Err(); err != nil {
					return err
				}
				results[i], failures[i] = s.scanFile(groupCtx, parser, paths[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("scan interrupted: %w", err)
	}

	for i, path := range paths {
		if results[i] != nil {
			run.Files = append(run.Files, *results[i])
		} else {
			skipped = append(skipped, Skipped{Path: path, Reason: failures[i]})
		}
	}
	sortSkipped(skipped)
	run.Skipped = skipped
	run.Duration = time.Since(run.Started)

	logger.Info("Scan complete",
		zap.Int("files", len(run.Files)),
		zap.Int("skipped", len(run.Skipped)),
		zap.Int("reports", run.ReportCount()),
		zap.Duration("duration", run.Duration),
	)
	return run, nil
}

func (s *Scanner) scanFile(ctx context.Context, parser *java.Parser, path string) (*FileResult, string) {
	source, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("Could not read source file", zap.String("path", path), zap.Error(err))
		return nil, err.Error()
	}
	unit, err := parser.Parse(ctx, path, source)
	if err != nil {
		s.logger.Warn("Could not parse source file", zap.String("path", path), zap.Error(err))
		return nil, err.Error()
	}
	defer unit.Close()

	return &FileResult{
		Path:         path,
		Reports:      s.analyzer.Analyze(unit),
		SyntaxErrors: unit.HasErrors,
	}, ""
}

func sortSkipped(skipped []Skipped) {
	slices.SortFunc(skipped, func(a, b Skipped) int { return strings.Compare(a.Path, b.Path) })
}
