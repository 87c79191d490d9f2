// Filename: hardening/predicates.go
package hardening

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// Predicate tests one candidate invocation of the scope walk against a
// hardening condition. Implementations must treat unexpected node shapes as
// "not satisfied".
type Predicate interface {
	Satisfied(c *Case, call *sitter.Node) bool
	String() string
}

// SeedPredicate is decided once from the tracked object's origin, before
// the scope is walked.
type SeedPredicate interface {
	Predicate
	SatisfiedBySeed(c *Case) bool
}

// CallOn is satisfied by a call to Method on the tracked object: its receiver
// is an alias or the call is part of the trigger's fluent chain.
type CallOn struct {
	Method MethodMatcher
	Args   []ArgCheck
}

func (p CallOn) Satisfied(c *Case, call *sitter.Node) bool {
	if java.KindOf(call) != java.KindInvocation {
		return false
	}
	if !p.Method.Match(c.facts, call) || !c.onTracked(call) {
		return false
	}
	return checkAll(c.facts, call, p.Args, true)
}

func (p CallOn) String() string { return fmt.Sprintf("CallOn(%s %v)", p.Method, p.Args) }

// PassedTo is satisfied when the tracked object is argument Index of a call to
// Method, such as a buffer filled by SecureRandom.nextBytes.
type PassedTo struct {
	Method MethodMatcher
	Index  int
	Args   []ArgCheck
}

func (p PassedTo) Satisfied(c *Case, call *sitter.Node) bool {
	if !p.Method.Match(c.facts, call) {
		return false
	}
	if !c.Tracks(java.Argument(call, p.Index)) {
		return false
	}
	return checkAll(c.facts, call, p.Args, true)
}

func (p PassedTo) String() string {
	return fmt.Sprintf("PassedTo(%s arg%d %v)", p.Method, p.Index, p.Args)
}

// AnyCall is satisfied by any call to Method, whatever its receiver. It suits
// configuration that is global to the unit.
type AnyCall struct {
	Method MethodMatcher
	Args   []ArgCheck
}

func (p AnyCall) Satisfied(c *Case, call *sitter.Node) bool {
	return p.Method.Match(c.facts, call) && checkAll(c.facts, call, p.Args, true)
}

func (p AnyCall) String() string { return fmt.Sprintf("AnyCall(%s %v)", p.Method, p.Args) }

// DynamicSeed is satisfied unless the tracked value originates from a
// non-empty compile-time constant. The constant's origin is attached to the
// report as a secondary location.
type DynamicSeed struct{}

func (DynamicSeed) Satisfied(*Case, *sitter.Node) bool { return false }

func (DynamicSeed) SatisfiedBySeed(c *Case) bool {
	if c.unknown || len(c.origins) == 0 {
		return true
	}
	hardcoded := false
	for _, origin := range c.origins {
		v, ok := c.facts.ConstantValueOf(origin)
		if !ok {
			continue
		}
		if s, isString := v.(string); !isString || s == "" {
			continue
		}
		hardcoded = true
		if lit := c.facts.ConstantOrigin(origin); lit != nil {
			c.addSecondary(lit)
		}
	}
	return !hardcoded
}

func (DynamicSeed) String() string { return "DynamicSeed" }
