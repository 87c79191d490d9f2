// Filename: cmd/scan.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/checks"
	"github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
	"github.com/xkilldash9x/tripwire/internal/config"
	"github.com/xkilldash9x/tripwire/internal/observability"
	"github.com/xkilldash9x/tripwire/internal/reporting"
	"github.com/xkilldash9x/tripwire/internal/scanner"
)

// scanFlagKeys maps scan flags to the configuration keys they override.
var scanFlagKeys = map[string]string{
	"format":           "report.format",
	"output":           "report.output",
	"concurrency":      "engine.worker_concurrency",
	"enable":           "rules.enable",
	"disable":          "rules.disable",
	"credentials-file": "rules.credentials_file",
	"max-unwrap":       "analysis.max_unwrap_depth",
	"exclude":          "analysis.exclude_dirs",
}

// newScanCmd creates and configures the `scan` command.
func newScanCmd() *cobra.Command {
	scanCmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Analyzes Java sources under the given paths (default: the current directory)",
		Args:  cobra.ArbitraryArgs,
		// Bind flags to their corresponding Viper keys so they override values
		// from the config file and environment variables.
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, scanFlagKeys); err != nil {
				return err
			}
			_, err := loadConfig(cmd)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFrom(cmd)
			if err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"."}
			}
			failOnFindings, _ := cmd.Flags().GetBool("fail-on-findings")
			return runScan(cmd.Context(), cmd.OutOrStdout(), cfg, args, failOnFindings)
		},
	}

	// Reporting flags
	scanCmd.Flags().StringP("format", "f", "text", "Report format: text, json or sarif. (Overrides config/env)")
	scanCmd.Flags().StringP("output", "o", "", "Report file path. Defaults to standard output.")

	// Scan configuration override flags.
	scanCmd.Flags().IntP("concurrency", "j", 4, "Number of files analyzed in parallel. (Overrides config/env)")
	scanCmd.Flags().StringSlice("enable", nil, "Only run these rule ids. (Overrides config/env)")
	scanCmd.Flags().StringSlice("disable", nil, "Skip these rule ids. (Overrides config/env)")
	scanCmd.Flags().String("credentials-file", "", "JSON or YAML list of credential-taking methods. (Overrides config/env)")
	scanCmd.Flags().Int("max-unwrap", 1, "How many wrapper constructors alias resolution looks through. (Overrides config/env)")
	scanCmd.Flags().StringSlice("exclude", nil, "Directory names never descended into. (Overrides config/env)")
	scanCmd.Flags().Bool("fail-on-findings", false, "Exit with status 1 when anything is reported.")

	return scanCmd
}

// nopWriteCloser keeps the command's output stream open after the report.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// runScan wires catalog, analyzer, scanner and reporter for one run.
func runScan(ctx context.Context, stdout io.Writer, cfg config.Interface, paths []string, failOnFindings bool) error {
	logger := observability.GetLogger()

	catalog := checks.Init(checks.Options{CredentialsFile: cfg.Rules().CredentialsFile}, logger)
	for id, reason := range catalog.Disabled() {
		logger.Warn("Rule family disabled", zap.String("rule_id", id), zap.Error(reason))
	}
	if err := checkRuleIDs(catalog, cfg.Rules()); err != nil {
		return err
	}
	rules := catalog.Select(checks.Filters(cfg.Rules().Enable, cfg.Rules().Disable)...)
	if len(rules) == 0 {
		return errors.New("no rules selected")
	}

	analyzer := hardening.NewAnalyzer(logger, rules, hardening.Options{MaxUnwrap: cfg.Analysis().MaxUnwrapDepth})
	sc, err := scanner.New(logger, analyzer, catalog.Hints(), scanner.Options{
		Concurrency: cfg.Engine().WorkerConcurrency,
		Extensions:  cfg.Analysis().IncludeExtensions,
		ExcludeDirs: cfg.Analysis().ExcludeDirs,
		MaxFileSize: cfg.Analysis().MaxFileSize,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize scanner: %w", err)
	}

	logger.Info("Starting new scan",
		zap.Strings("paths", paths),
		zap.Int("rules", len(rules)),
		zap.Int("concurrency", cfg.Engine().WorkerConcurrency),
	)
	run, err := sc.Scan(ctx, paths)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Scan aborted by user signal")
			return fmt.Errorf("scan aborted: %w", err)
		}
		return fmt.Errorf("scan failed: %w", err)
	}
	for _, s := range run.Skipped {
		logger.Info("Skipped file", zap.String("path", s.Path), zap.String("reason", s.Reason))
	}

	meta := reporting.Metadata{ToolVersion: Version, RunID: run.ID, Rules: rules}
	format := strings.ToLower(cfg.Report().Format)
	var reporter reporting.Reporter
	if out := cfg.Report().Output; out == "" || out == "stdout" {
		reporter, err = reporting.NewWithWriter(format, nopWriteCloser{stdout}, logger, meta)
	} else {
		reporter, err = reporting.New(format, out, logger, meta)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporting.WriteRun(reporter, run); err != nil {
		return err
	}

	count := run.ReportCount()
	logger.Info("Scan execution completed", zap.String("run_id", run.ID), zap.Int("findings", count))
	if failOnFindings && count > 0 {
		return fmt.Errorf("%w: %d", ErrFindings, count)
	}
	return nil
}

// checkRuleIDs rejects enable/disable entries that name no catalog rule.
func checkRuleIDs(catalog *checks.Catalog, rules config.RulesConfig) error {
	disabled := catalog.Disabled()
	var unknown []string
	for _, id := range append(append([]string(nil), rules.Enable...), rules.Disable...) {
		if _, ok := catalog.Rule(id); ok {
			continue
		}
		if _, ok := disabled[id]; ok {
			continue
		}
		unknown = append(unknown, id)
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown rule id(s): %s (see `tripwire rules`)", strings.Join(unknown, ", "))
	}
	return nil
}
