// Filename: cmd/rules.go
package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/checks"
	"github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
	"github.com/xkilldash9x/tripwire/internal/observability"
)

// ruleListing is the rules command's view of one rule.
type ruleListing struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Severity string `yaml:"severity"`
	CWE      []int  `yaml:"cwe,omitempty,flow"`
	Scope    string `yaml:"scope"`
	Triggers int    `yaml:"triggers"`
	Message  string `yaml:"message"`
	Enabled  bool   `yaml:"enabled"`
}

// disabledListing records a rule family that failed to load.
type disabledListing struct {
	ID     string `yaml:"id"`
	Reason string `yaml:"reason"`
}

type rulesDocument struct {
	Rules    []ruleListing     `yaml:"rules"`
	Disabled []disabledListing `yaml:"disabled,omitempty"`
}

func newRulesCmd() *cobra.Command {
	rulesCmd := &cobra.Command{
		Use:   "rules",
		Short: "Lists the rule catalog and which rules the current configuration enables",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := bindFlags(cmd, map[string]string{
				"enable":           "rules.enable",
				"disable":          "rules.disable",
				"credentials-file": "rules.credentials_file",
			}); err != nil {
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
			catalog := checks.Init(checks.Options{CredentialsFile: cfg.Rules().CredentialsFile}, observability.GetLogger())
			doc := buildRulesDocument(catalog, checks.Filters(cfg.Rules().Enable, cfg.Rules().Disable))

			format, _ := cmd.Flags().GetString("format")
			switch strings.ToLower(format) {
			case "yaml":
				enc := yaml.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent(2)
				if err := enc.Encode(doc); err != nil {
					return fmt.Errorf("failed to encode rules: %w", err)
				}
				return enc.Close()
			case "text":
				return writeRulesTable(cmd.OutOrStdout(), doc)
			default:
				return fmt.Errorf("unsupported rules format %q (text or yaml)", format)
			}
		},
	}
	rulesCmd.Flags().String("format", "text", "Listing format: text or yaml.")
	rulesCmd.Flags().StringSlice("enable", nil, "Only enable these rule ids. (Overrides config/env)")
	rulesCmd.Flags().StringSlice("disable", nil, "Disable these rule ids. (Overrides config/env)")
	rulesCmd.Flags().String("credentials-file", "", "JSON or YAML list of credential-taking methods. (Overrides config/env)")
	return rulesCmd
}

func buildRulesDocument(catalog *checks.Catalog, filters []checks.RuleFilter) rulesDocument {
	enabled := make(map[string]bool)
	for _, r := range catalog.Select(filters...) {
		enabled[r.ID] = true
	}
	var doc rulesDocument
	for _, r := range catalog.Rules() {
		doc.Rules = append(doc.Rules, listRule(r, enabled[r.ID]))
	}
	for id, reason := range catalog.Disabled() {
		doc.Disabled = append(doc.Disabled, disabledListing{ID: id, Reason: reason.Error()})
	}
	sort.Slice(doc.Disabled, func(i, j int) bool { return doc.Disabled[i].ID < doc.Disabled[j].ID })
	return doc
}

func listRule(r *hardening.Rule, enabled bool) ruleListing {
	return ruleListing{
		ID:       r.ID,
		Name:     r.Name,
		Severity: string(r.Severity),
		CWE:      r.CWE,
		Scope:    r.Scope.String(),
		Triggers: len(r.Triggers),
		Message:  r.Message,
		Enabled:  enabled,
	}
}

func writeRulesTable(w io.Writer, doc rulesDocument) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tCWE\tSCOPE\tENABLED\tNAME")
	for _, r := range doc.Rules {
		cwes := make([]string, len(r.CWE))
		for i, c := range r.CWE {
			cwes[i] = fmt.Sprintf("CWE-%d", c)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n", r.ID, r.Severity, strings.Join(cwes, ","), r.Scope, r.Enabled, r.Name)
	}
	for _, d := range doc.Disabled {
		fmt.Fprintf(tw, "%s\t-\t-\t-\tfalse\tnot loaded: %s\n", d.ID, d.Reason)
	}
	return tw.Flush()
}
