// Filename: hardening/analyzer.go
package hardening

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// DefaultMaxUnwrap is the number of wrapper calls alias resolution sees
// through by default.
const DefaultMaxUnwrap = 1

// Verdict is the outcome of one analysis case.
type Verdict int

const (
	Secured Verdict = iota
	Unsecured
	// Indeterminate cases have no scope to search and are never reported.
	Indeterminate
)

func (v Verdict) String() string {
	switch v {
	case Secured:
		return "secured"
	case Unsecured:
		return "unsecured"
	case Indeterminate:
		return "indeterminate"
	}
	return "unknown"
}

// Report is one finding at a trigger site.
type Report struct {
	RuleID    string
	Severity  Severity
	Location  java.LocationInfo
	Message   string
	Secondary []java.LocationInfo
}

// Options tunes the analysis.
type Options struct {
	// MaxUnwrap bounds how many wrapper calls alias resolution follows.
	MaxUnwrap int
}

// Analyzer runs a fixed rule set over parsed units. It holds no per-unit
// state and is safe for concurrent use as long as the rules are not mutated.
type Analyzer struct {
	logger *zap.Logger
	rules  []*Rule
	opts   Options
}

// NewAnalyzer creates an analyzer for rules. A MaxUnwrap of zero or less disables
// unwrapping.
func NewAnalyzer(logger *zap.Logger, rules []*Rule, opts Options) *Analyzer {
	if opts.MaxUnwrap < 0 {
		opts.MaxUnwrap = 0
	}
	return &Analyzer{
		logger: logger.Named("hardening"),
		rules:  rules,
		opts:   opts,
	}
}

// Rules returns the rules the analyzer evaluates.
func (a *Analyzer) Rules() []*Rule { return a.rules }

// AnalysisContext is the state of analyzing one unit. It is created per
// call to Analyze and discarded afterwards.
type AnalysisContext struct {
	Unit     *java.Unit
	facts    Facts
	logger   *zap.Logger
	reports  []pendingReport
	deferred []pendingReport
	cases    int
	visited  int
}

// pendingReport carries the pre-order index of its trigger so deferred
// reports merge back in traversal order.
type pendingReport struct {
	seq       int
	ruleIndex int
	report    Report
}

// Case is one trigger site under evaluation.
type Case struct {
	Rule    *Rule
	Trigger *sitter.Node
	Object  *sitter.Node
	Scope   *sitter.Node
	Aliases *AliasSet

	facts     Facts
	fresh     *sitter.Node
	chain     map[java.NodeKey]bool
	origins   []*sitter.Node
	secondary []*sitter.Node
	leaves    []Predicate
	satisfied []bool
	escaped   bool
	unknown   bool
}

func (c *Case) addSecondary(node *sitter.Node) {
	for _, existing := range c.secondary {
		if java.SameNode(existing, node) {
			return
		}
	}
	c.secondary = append(c.secondary, node)
}

// Analyze evaluates every rule against every trigger site of unit and returns
// the reports in traversal order of their triggers, then by rule order.
func (a *Analyzer) Analyze(unit *java.Unit) []Report {
	if unit == nil || unit.Root == nil || unit.Symbols == nil {
		return nil
	}
	actx := &AnalysisContext{
		Unit:   unit,
		facts:  unit.Symbols,
		logger: a.logger.With(zap.String("file", unit.Filename)),
	}

	Walk(unit.Root, true, func(call *sitter.Node) {
		actx.visited++
		for i, rule := range a.rules {
			a.checkSite(actx, i, rule, call)
		}
	})

	// Unit-wide rules report only once all evidence has been seen.
	pending := append(actx.reports, actx.deferred...)
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].seq != pending[j].seq {
			return pending[i].seq < pending[j].seq
		}
		return pending[i].ruleIndex < pending[j].ruleIndex
	})
	reports := make([]Report, 0, len(pending))
	for _, p := range pending {
		reports = append(reports, p.report)
	}
	actx.logger.Debug("Unit analyzed", zap.Int("cases", actx.cases), zap.Int("reports", len(reports)))
	return reports
}

// checkSite evaluates each trigger of rule that matches call and records at
// most one report per rule and site.
func (a *Analyzer) checkSite(actx *AnalysisContext, ruleIndex int, rule *Rule, call *sitter.Node) {
	for _, trig := range rule.Triggers {
		if !trig.Matches(actx.facts, call) {
			continue
		}
		c := a.newCase(actx, rule, trig, call)
		verdict := a.evaluate(c)
		actx.cases++
		actx.logger.Debug("Case evaluated",
			zap.String("rule", rule.ID),
			zap.Int("line", int(call.StartPoint().Row)+1),
			zap.Stringer("verdict", verdict),
			zap.Int("aliases", c.Aliases.Len()),
			zap.Bool("escaped", c.escaped),
			zap.Bool("unknown", c.unknown),
		)
		if verdict != Unsecured {
			continue
		}
		p := pendingReport{
			seq:       actx.visited,
			ruleIndex: ruleIndex,
			report:    a.buildReport(actx, c),
		}
		if rule.Scope == CompilationUnit {
			actx.deferred = append(actx.deferred, p)
		} else {
			actx.reports = append(actx.reports, p)
		}
		return
	}
}

func (a *Analyzer) newCase(actx *AnalysisContext, rule *Rule, trig Trigger, call *sitter.Node) *Case {
	leaves := rule.Securing.flatten(nil)
	return &Case{
		Rule:      rule,
		Trigger:   call,
		Object:    trig.Object.Extract(call),
		Scope:     ScopeOf(call, rule.Scope),
		Aliases:   NewAliasSet(),
		facts:     actx.facts,
		chain:     make(map[java.NodeKey]bool),
		leaves:    leaves,
		satisfied: make([]bool, len(leaves)),
	}
}

// evaluate runs the case to a verdict: scope, aliases, seed predicates, the
// full scope walk, then the combinator.
func (a *Analyzer) evaluate(c *Case) Verdict {
	if c.Scope == nil {
		return Indeterminate
	}
	c.resolve(a.opts.MaxUnwrap)
	if c.unknown {
		return Secured
	}
	for i, leaf := range c.leaves {
		if seed, ok := leaf.(SeedPredicate); ok && seed.SatisfiedBySeed(c) {
			c.satisfied[i] = true
		}
	}

	descend := c.Rule.DescendNested || c.Rule.Scope == CompilationUnit
	Walk(c.Scope, descend, func(call *sitter.Node) {
		if java.SameNode(call, c.Trigger) {
			return
		}
		hit := false
		for i, leaf := range c.leaves {
			if leaf.Satisfied(c, call) {
				c.satisfied[i] = true
				hit = true
			}
		}
		if hit || c.Rule.IgnoreEscape || c.exempt(call) {
			return
		}
		for _, arg := range java.Arguments(call) {
			if c.Tracks(arg) {
				c.escaped = true
			}
		}
	})

	if c.escaped {
		return Secured
	}
	next := 0
	if c.Rule.Securing.decide(c.satisfied, &next) {
		return Secured
	}
	return Unsecured
}

// exempt reports whether passing the tracked object to call is not an
// escape: the rule's own trigger calls and its declared consumers.
func (c *Case) exempt(call *sitter.Node) bool {
	for _, m := range c.Rule.Exempt {
		if m.Match(c.facts, call) {
			return true
		}
	}
	for _, t := range c.Rule.Triggers {
		if t.Method.Match(c.facts, call) {
			return true
		}
	}
	return false
}

func (a *Analyzer) buildReport(actx *AnalysisContext, c *Case) Report {
	r := Report{
		RuleID:   c.Rule.ID,
		Severity: c.Rule.Severity,
		Location: actx.Unit.Location(c.Trigger),
		Message:  c.Rule.Message,
	}
	for _, node := range c.secondary {
		if within(c.Trigger, node) {
			continue
		}
		r.Secondary = append(r.Secondary, actx.Unit.Location(node))
	}
	return r
}
