// Filename: cmd/version.go
package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/checks"
	"github.com/xkilldash9x/tripwire/internal/observability"
)

// Version is the application version.
// This value is intended to be set at build time using ldflags.
// Example: go build -ldflags "-X github.com/xkilldash9x/tripwire/cmd.Version=1.0.0"
var Version = "dev"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version and rule catalog size",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			catalog := checks.Init(checks.Options{CredentialsFile: cfg.Rules().CredentialsFile}, observability.GetLogger())
			fmt.Fprintf(cmd.OutOrStdout(), "tripwire %s (%s, %s/%s), %d rules\n",
				Version, runtime.Version(), runtime.GOOS, runtime.GOARCH, len(catalog.Rules()))
			return nil
		},
	}
}
