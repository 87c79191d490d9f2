// Filename: internal/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix scopes environment overrides, e.g. TRIPWIRE_REPORT_FORMAT.
const EnvPrefix = "TRIPWIRE"

// Report formats understood by the reporting package.
var reportFormats = map[string]bool{"text": true, "json": true, "sarif": true}

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Engine() EngineConfig
	Analysis() AnalysisConfig
	Rules() RulesConfig
	Report() ReportConfig

	SetEngineWorkerConcurrency(int)
	SetAnalysisMaxUnwrapDepth(int)
	SetRulesFilter(enable, disable []string)
	SetReportFormat(string)
	SetReportOutput(string)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	EngineCfg   EngineConfig   `mapstructure:"engine" yaml:"engine"`
	AnalysisCfg AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	RulesCfg    RulesConfig    `mapstructure:"rules" yaml:"rules"`
	ReportCfg   ReportConfig   `mapstructure:"report" yaml:"report"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Engine() EngineConfig     { return c.EngineCfg }
func (c *Config) Analysis() AnalysisConfig { return c.AnalysisCfg }
func (c *Config) Rules() RulesConfig       { return c.RulesCfg }
func (c *Config) Report() ReportConfig     { return c.ReportCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetEngineWorkerConcurrency(w int) { c.EngineCfg.WorkerConcurrency = w }
func (c *Config) SetAnalysisMaxUnwrapDepth(d int)  { c.AnalysisCfg.MaxUnwrapDepth = d }
func (c *Config) SetReportFormat(f string)         { c.ReportCfg.Format = f }
func (c *Config) SetReportOutput(o string)         { c.ReportCfg.Output = o }

func (c *Config) SetRulesFilter(enable, disable []string) {
	c.RulesCfg.Enable = enable
	c.RulesCfg.Disable = disable
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// EngineConfig configures the scan worker pool.
type EngineConfig struct {
	WorkerConcurrency int `mapstructure:"worker_concurrency" yaml:"worker_concurrency"`
}

// AnalysisConfig controls which files are analyzed and how deep alias
// resolution goes.
type AnalysisConfig struct {
	MaxUnwrapDepth    int      `mapstructure:"max_unwrap_depth" yaml:"max_unwrap_depth"`
	IncludeExtensions []string `mapstructure:"include_extensions" yaml:"include_extensions"`
	ExcludeDirs       []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	MaxFileSize       int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// RulesConfig selects rules by id. An empty Enable list means every rule.
type RulesConfig struct {
	Enable          []string `mapstructure:"enable" yaml:"enable"`
	Disable         []string `mapstructure:"disable" yaml:"disable"`
	CredentialsFile string   `mapstructure:"credentials_file" yaml:"credentials_file"`
}

// ReportConfig selects the output format and destination. An empty output
// or "stdout" writes to standard output.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "warn")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "tripwire")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Engine --
	v.SetDefault("engine.worker_concurrency", 4)

	// -- Analysis --
	v.SetDefault("analysis.max_unwrap_depth", 1)
	v.SetDefault("analysis.include_extensions", []string{".java"})
	v.SetDefault("analysis.exclude_dirs", []string{".git", ".svn", ".hg", "node_modules", "build", "target", "out"})
	v.SetDefault("analysis.max_file_size", 2<<20)

	// -- Rules --
	v.SetDefault("rules.enable", []string{})
	v.SetDefault("rules.disable", []string{})
	v.SetDefault("rules.credentials_file", "")

	// -- Report --
	v.SetDefault("report.format", "text")
	v.SetDefault("report.output", "")
}

// BindEnv makes every key overridable as TRIPWIRE_<SECTION>_<KEY>.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.expandPaths(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// expandPaths resolves a leading "~" in user supplied paths.
func (c *Config) expandPaths() error {
	for _, p := range []*string{&c.LoggerCfg.LogFile, &c.RulesCfg.CredentialsFile, &c.ReportCfg.Output} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("error expanding path %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.EngineCfg.WorkerConcurrency <= 0 {
		return fmt.Errorf("engine.worker_concurrency must be a positive integer")
	}
	if c.AnalysisCfg.MaxUnwrapDepth < 0 {
		return fmt.Errorf("analysis.max_unwrap_depth must not be negative")
	}
	if len(c.AnalysisCfg.IncludeExtensions) == 0 {
		return fmt.Errorf("analysis.include_extensions must name at least one extension")
	}
	if c.AnalysisCfg.MaxFileSize < 0 {
		return fmt.Errorf("analysis.max_file_size must not be negative")
	}
	if !reportFormats[strings.ToLower(c.ReportCfg.Format)] {
		return fmt.Errorf("report.format %q must be one of text, json, sarif", c.ReportCfg.Format)
	}
	if f := c.LoggerCfg.Format; f != "console" && f != "json" {
		return fmt.Errorf("logger.format %q must be console or json", f)
	}
	return nil
}
