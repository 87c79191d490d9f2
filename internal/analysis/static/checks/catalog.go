// Filename: checks/catalog.go
// Package checks holds the rule catalog: the declarative trigger/secure rules
// evaluated by the hardening engine, plus the library knowledge they need.
package checks

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/hardening"
	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
	"github.com/xkilldash9x/tripwire/internal/observability"
)

// ErrCatalogLoad wraps failures to load an external part of the catalog.
var ErrCatalogLoad = errors.New("catalog load failed")

// Options configures catalog construction.
type Options struct {
	// CredentialsFile overrides the embedded credential method list. A .json,
	// .yaml or .yml file.
	CredentialsFile string
}

// Catalog is the process-wide rule table. It is built once and read-only
// afterwards, so it may be shared by any number of goroutines.
type Catalog struct {
	rules    []*hardening.Rule
	byID     map[string]*hardening.Rule
	hints    *java.TypeHints
	disabled map[string]error
}

var (
	catalogOnce sync.Once
	catalog     *Catalog
)

// Init builds the catalog on first use. Later calls return the same catalog
// and ignore their arguments.
func Init(opts Options, logger *zap.Logger) *Catalog {
	catalogOnce.Do(func() {
		catalog = build(opts, logger.Named("checks"))
	})
	return catalog
}

// Default returns the catalog, building it with default options if needed.
func Default() *Catalog {
	return Init(Options{}, observability.GetLogger())
}

// ResetForTest discards the catalog so the next Init rebuilds it.
func ResetForTest() {
	catalogOnce = sync.Once{}
	catalog = nil
}

func build(opts Options, logger *zap.Logger) *Catalog {
	c := &Catalog{
		byID:     make(map[string]*hardening.Rule),
		hints:    java.PlatformHints().Merge(libraryHints()),
		disabled: make(map[string]error),
	}

	var rules []*hardening.Rule
	rules = append(rules, cryptoRules()...)
	rules = append(rules, xmlRules()...)
	rules = append(rules, identityRules()...)
	rules = append(rules, tokenRules()...)
	rules = append(rules, passwordRules()...)
	rules = append(rules, cookieRules()...)
	rules = append(rules, cloudRules()...)
	rules = append(rules, uploadRules()...)

	methods, err := LoadCredentialMethods(opts.CredentialsFile)
	if err != nil {
		logger.Warn("Credential method list could not be loaded; hard-coded credential checks are disabled",
			zap.String("file", opts.CredentialsFile),
			zap.Error(err),
		)
		c.disabled[CredentialsRuleID] = err
	} else {
		rules = append(rules, credentialsRule(methods))
	}

	for _, r := range rules {
		if err := r.Validate(); err != nil {
			logger.Warn("Skipping invalid rule", zap.Error(err))
			c.disabled[r.ID] = err
			continue
		}
		if _, dup := c.byID[r.ID]; dup {
			logger.Warn("Skipping duplicate rule id", zap.String("rule", r.ID))
			continue
		}
		c.byID[r.ID] = r
		c.rules = append(c.rules, r)
	}
	logger.Debug("Rule catalog built", zap.Int("rules", len(c.rules)), zap.Int("disabled", len(c.disabled)))
	return c
}

// Rules returns every rule in catalog order.
func (c *Catalog) Rules() []*hardening.Rule {
	return append([]*hardening.Rule(nil), c.rules...)
}

// Rule looks up a rule by id.
func (c *Catalog) Rule(id string) (*hardening.Rule, bool) {
	r, ok := c.byID[id]
	return r, ok
}

// Hints returns the type knowledge the rules rely on, for the parser.
func (c *Catalog) Hints() *java.TypeHints { return c.hints }

// Disabled returns the ids of rule families that could not be loaded, with
// the reason.
func (c *Catalog) Disabled() map[string]error {
	out := make(map[string]error, len(c.disabled))
	for k, v := range c.disabled {
		out[k] = v
	}
	return out
}

// RuleFilter reports whether a rule id should be excluded.
type RuleFilter func(id string) bool

// NewRuleFilter excludes the listed ids when action is true, and everything
// but the listed ids when action is false.
func NewRuleFilter(action bool, ids ...string) RuleFilter {
	listed := make(map[string]bool, len(ids))
	for _, id := range ids {
		listed[id] = true
	}
	return func(id string) bool {
		if listed[id] {
			return action
		}
		return !action
	}
}

// Select returns, in catalog order, the rules no filter excludes.
func (c *Catalog) Select(filters ...RuleFilter) []*hardening.Rule {
	var out []*hardening.Rule
next:
	for _, r := range c.rules {
		for _, f := range filters {
			if f != nil && f(r.ID) {
				continue next
			}
		}
		out = append(out, r)
	}
	return out
}

// Filters builds the enable/disable filters for configured id lists. An
// empty enable list enables every rule.
func Filters(enable, disable []string) []RuleFilter {
	var filters []RuleFilter
	if len(enable) > 0 {
		filters = append(filters, NewRuleFilter(false, enable...))
	}
	if len(disable) > 0 {
		filters = append(filters, NewRuleFilter(true, disable...))
	}
	return filters
}
