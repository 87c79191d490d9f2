// Filename: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/config"
	"github.com/xkilldash9x/tripwire/internal/observability"
)

type contextKey string

const (
	viperKey  contextKey = "viper"
	configKey contextKey = "config"
)

// Exit codes returned by Execute.
const (
	ExitOK       = 0
	ExitFindings = 1
	ExitError    = 2
)

// ErrFindings is returned by scan when --fail-on-findings is set and the run
// reported something.
var ErrFindings = errors.New("findings reported")

// newRootCmd builds the command tree. Every call returns an independent tree.
func newRootCmd() *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "tripwire",
		Short: "Tripwire finds Java code that creates security-sensitive objects without hardening them.",
		// Version is dynamically set at build time. See cmd/version.go.
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// This function runs before any command, setting up the viper instance
		// subcommands bind their flags to.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)
			config.BindEnv(v)
			if err := readConfigFile(v, cfgFile); err != nil {
				return err
			}
			if err := v.BindPFlag("logger.level", cmd.Flags().Lookup("log-level")); err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), viperKey, v))
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./tripwire.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newRulesCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	defer observability.Sync()
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrFindings):
		fmt.Fprintln(stderr, "tripwire:", err)
		return ExitFindings
	default:
		observability.GetLogger().Debug("Command execution failed", zap.Error(err))
		fmt.Fprintln(stderr, "Error:", err)
		return ExitError
	}
}

// readConfigFile reads an explicit config file, or ./tripwire.yaml when one
// exists.
func readConfigFile(v *viper.Viper, cfgFile string) error {
	if cfgFile != "" {
		path, err := homedir.Expand(cfgFile)
		if err != nil {
			return fmt.Errorf("error expanding config path: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("tripwire")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			// Config file not found; proceed with defaults/env vars
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}
	return nil
}

// bindFlags binds command flags to configuration keys.
func bindFlags(cmd *cobra.Command, bindings map[string]string) error {
	v, err := viperFrom(cmd)
	if err != nil {
		return err
	}
	for flag, key := range bindings {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("binding --%s: %w", flag, err)
		}
	}
	return nil
}

// loadConfig resolves the final configuration, initializes the global
// logger from it and stores it in the command context.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	v, err := viperFrom(cmd)
	if err != nil {
		return nil, err
	}
	cfg, err := config.NewConfigFromViper(v)
	if err != nil {
		observability.InitializeLogger(config.NewDefaultConfig().Logger())
		return nil, fmt.Errorf("failed to load or validate config: %w", err)
	}
	logger := observability.InitializeLogger(cfg.Logger())
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("Loaded configuration file", zap.String("path", used))
	}
	logger.Debug("Starting tripwire", zap.String("version", Version))
	cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
	return cfg, nil
}

func viperFrom(cmd *cobra.Command) (*viper.Viper, error) {
	if v, ok := cmd.Context().Value(viperKey).(*viper.Viper); ok {
		return v, nil
	}
	return nil, errors.New("configuration not initialized")
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	if cfg, ok := cmd.Context().Value(configKey).(*config.Config); ok {
		return cfg, nil
	}
	return nil, errors.New("configuration not loaded")
}
