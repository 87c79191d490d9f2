// Filename: hardening/rule.go
// Package hardening implements the trigger/secure reachability analysis: a
// rule names a construct that leaves an object in an insecure default state,
// and the engine decides whether the same object is hardened by a recognised
// securing call within a bounded scope around it.
package hardening

import (
	"errors"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// Severity grades the impact of a rule's finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// ScopePolicy bounds where securing evidence is looked for.
type ScopePolicy int

const (
	// EnclosingFunction searches the body of the nearest method, constructor,
	// lambda or initializer block.
	EnclosingFunction ScopePolicy = iota
	// EnclosingType searches the whole body of the nearest type, including its
	// methods but not nested types.
	EnclosingType
	// CompilationUnit accepts evidence anywhere in the unit, nested bodies
	// included. Reports are emitted once the whole unit has been analyzed.
	CompilationUnit
)

func (p ScopePolicy) String() string {
	switch p {
	case EnclosingFunction:
		return "enclosing_function"
	case EnclosingType:
		return "enclosing_type"
	case CompilationUnit:
		return "compilation_unit"
	}
	return "unknown"
}

// ExtractKind selects the object-of-interest of a trigger site.
type ExtractKind int

const (
	ExtractResult ExtractKind = iota
	ExtractReceiver
	ExtractArgument
)

// Extractor picks the expression whose security posture is judged.
type Extractor struct {
	Kind  ExtractKind
	Index int
}

// Result extracts the value produced by the trigger: the constructed object
// or the factory call result.
func Result() Extractor { return Extractor{Kind: ExtractResult} }

// ReceiverOf extracts the receiver of the triggering method call.
func ReceiverOf() Extractor { return Extractor{Kind: ExtractReceiver} }

// ArgumentAt extracts the argument at index i.
func ArgumentAt(i int) Extractor { return Extractor{Kind: ExtractArgument, Index: i} }

// Extract returns the object-of-interest expression, or nil when the trigger
// has no such part.
func (e Extractor) Extract(trigger *sitter.Node) *sitter.Node {
	switch e.Kind {
	case ExtractResult:
		return trigger
	case ExtractReceiver:
		return java.Receiver(trigger)
	case ExtractArgument:
		return java.Argument(trigger, e.Index)
	}
	return nil
}

func (e Extractor) String() string {
	switch e.Kind {
	case ExtractResult:
		return "result"
	case ExtractReceiver:
		return "receiver"
	case ExtractArgument:
		return fmt.Sprintf("argument(%d)", e.Index)
	}
	return "unknown"
}

// Trigger is one insecure-usage pattern of a rule.
type Trigger struct {
	Method MethodMatcher
	// Args must all hold, with non-constant arguments never matching.
	Args   []ArgCheck
	Object Extractor
}

// Matches reports whether node is a site of this trigger.
func (t Trigger) Matches(facts Facts, node *sitter.Node) bool {
	return t.Method.Match(facts, node) && checkAll(facts, node, t.Args, false)
}

// Wrapper is a call that derives a value from another without changing what
// it denotes for the analysis: byte conversions, builder completion, decoding.
type Wrapper struct {
	Name string
	// Arg is the index of the wrapped argument, or -1 for the receiver.
	Arg int
}

// DefaultWrappers are the conversions every rule sees through.
var DefaultWrappers = []Wrapper{
	{Name: "getBytes", Arg: -1},
	{Name: "toCharArray", Arg: -1},
	{Name: "toByteArray", Arg: -1},
	{Name: "build", Arg: -1},
	{Name: "decode", Arg: 0},
	{Name: "valueOf", Arg: 0},
}

// Rule is one trigger/secure check.
type Rule struct {
	ID       string
	Name     string
	Message  string
	Severity Severity
	CWE      []int

	Triggers []Trigger
	Scope    ScopePolicy
	Securing Requirement

	// Wrappers replaces DefaultWrappers when non-nil.
	Wrappers []Wrapper
	// Exempt calls may take the tracked object as an argument without it
	// counting as an escape.
	Exempt []MethodMatcher
	// DescendNested lets the scope walk enter lambdas and nested types.
	DescendNested bool
	// IgnoreEscape disables the escape rule.
	IgnoreEscape bool
}

func (r *Rule) wrappers() []Wrapper {
	if r.Wrappers != nil {
		return r.Wrappers
	}
	return DefaultWrappers
}

// ErrInvalidRule is returned by Validate for incomplete rules.
var ErrInvalidRule = errors.New("invalid rule")

// Validate checks that the rule can be evaluated.
func (r *Rule) Validate() error {
	var problems []string
	if r.ID == "" {
		problems = append(problems, "missing id")
	}
	if r.Message == "" {
		problems = append(problems, "missing message")
	}
	if len(r.Triggers) == 0 {
		problems = append(problems, "no triggers")
	}
	for i, t := range r.Triggers {
		if len(t.Method.Names) == 0 {
			problems = append(problems, fmt.Sprintf("trigger %d has no member names", i))
		}
	}
	if len(r.Securing.flatten(nil)) == 0 {
		problems = append(problems, "no securing predicates")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidRule, r.ID, strings.Join(problems, ", "))
	}
	return nil
}

// Requirement combines securing predicates. Leaves are predicates; inner
// nodes are AnyOf or AllOf combinators.
type Requirement struct {
	all      bool
	leaf     Predicate
	children []Requirement
}

// When makes a requirement of a single predicate.
func When(p Predicate) Requirement { return Requirement{leaf: p} }

// AnyOf is satisfied when at least one child is satisfied.
func AnyOf(children ...Requirement) Requirement { return Requirement{children: children} }

// AllOf is satisfied only when every child is satisfied.
func AllOf(children ...Requirement) Requirement {
	return Requirement{all: true, children: children}
}

// flatten appends the leaf predicates in evaluation order.
func (r Requirement) flatten(out []Predicate) []Predicate {
	if r.leaf != nil {
		return append(out, r.leaf)
	}
	for _, c := range r.children {
		out = c.flatten(out)
	}
	return out
}

// decide folds the per-leaf results, consuming them in flatten order.
func (r Requirement) decide(satisfied []bool, next *int) bool {
	if r.leaf != nil {
		ok := *next < len(satisfied) && satisfied[*next]
		*next++
		return ok
	}
	result := r.all
	for _, c := range r.children {
		// Every child is folded so leaf positions stay aligned.
		v := c.decide(satisfied, next)
		if r.all {
			result = result && v
		} else {
			result = result || v
		}
	}
	if len(r.children) == 0 {
		return false
	}
	return result
}

func (r Requirement) String() string {
	if r.leaf != nil {
		return r.leaf.String()
	}
	parts := make([]string, 0, len(r.children))
	for _, c := range r.children {
		parts = append(parts, c.String())
	}
	op := "AnyOf"
	if r.all {
		op = "AllOf"
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}
