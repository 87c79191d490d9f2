// Filename: hardening/matcher.go
package hardening

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// Facts is the symbol-resolution service the engine consumes. It is
// implemented by *java.SymbolTable.
type Facts interface {
	SymbolOf(node *sitter.Node) *java.Symbol
	DeclarationOf(node *sitter.Node) *sitter.Node
	UsesOf(sym *java.Symbol) []*sitter.Node
	WritesOf(sym *java.Symbol) []java.Write
	TypeOf(node *sitter.Node) string
	ReceiverType(node *sitter.Node) string
	IsSubtypeOf(typeName, super string) bool
	ConstantValueOf(node *sitter.Node) (any, bool)
	ConstantOrigin(node *sitter.Node) *sitter.Node
	EnclosingTypeName(node *sitter.Node) string
	Content(node *sitter.Node) string
}

var _ Facts = (*java.SymbolTable)(nil)

// MethodMatcher is a signature predicate over invocations and constructions.
type MethodMatcher struct {
	// Types are the declaring types, fully qualified. Empty matches any type.
	Types []string
	// Subtypes also accepts receivers that extend or implement one of Types.
	Subtypes bool
	// Names are the member names; java.ConstructorName matches constructions.
	Names []string
	// Params are the parameter types in order. Ignored when AnyParams is set.
	Params []string
	// AnyParams accepts any argument list with at least MinArgs arguments.
	AnyParams bool
	MinArgs   int
}

// Constructor matches constructions of the given types.
func Constructor(types ...string) MethodMatcher {
	return MethodMatcher{Types: types, Names: []string{java.ConstructorName}, AnyParams: true}
}

// Method matches methods by name declared on, or inherited by, one of types.
func Method(types []string, names ...string) MethodMatcher {
	return MethodMatcher{Types: types, Subtypes: true, Names: names, AnyParams: true}
}

// Named matches calls by member name only.
func Named(names ...string) MethodMatcher {
	return MethodMatcher{Names: names, AnyParams: true}
}

// WithParams returns a copy of m that requires exactly the given parameter types.
func (m MethodMatcher) WithParams(params ...string) MethodMatcher {
	m.Params = params
	m.AnyParams = false
	return m
}

// WithMinArgs returns a copy of m that accepts any argument list of at least n.
func (m MethodMatcher) WithMinArgs(n int) MethodMatcher {
	m.AnyParams = true
	m.MinArgs = n
	return m
}

func (m MethodMatcher) String() string {
	types := strings.Join(m.Types, "|")
	if types == "" {
		types = "*"
	}
	params := "..."
	if !m.AnyParams {
		params = strings.Join(m.Params, ",")
	}
	return fmt.Sprintf("%s#%s(%s)", types, strings.Join(m.Names, "|"), params)
}

// Match reports whether node is a call to the described member. A call with
// a different number of arguments than the signature expects does not match.
// Arguments whose type cannot be determined are accepted.
func (m MethodMatcher) Match(facts Facts, node *sitter.Node) bool {
	if !java.IsCall(node) {
		return false
	}
	if !m.matchName(methodName(facts, node)) {
		return false
	}
	args := java.Arguments(node)
	if m.AnyParams {
		if len(args) < m.MinArgs {
			return false
		}
	} else {
		if len(args) != len(m.Params) {
			return false
		}
		for i, p := range m.Params {
			if !paramAccepts(facts, p, facts.TypeOf(args[i])) {
				return false
			}
		}
	}
	if len(m.Types) == 0 {
		return true
	}
	owner := facts.ReceiverType(node)
	if owner == "" {
		return false
	}
	for _, t := range m.Types {
		if java.SameType(owner, t) || (m.Subtypes && facts.IsSubtypeOf(owner, t)) {
			return true
		}
	}
	return false
}

func (m MethodMatcher) matchName(name string) bool {
	if name == "" {
		return false
	}
	for _, n := range m.Names {
		if n == name {
			return true
		}
	}
	return false
}

func methodName(facts Facts, node *sitter.Node) string {
	switch java.KindOf(node) {
	case java.KindInvocation:
		return facts.Content(node.ChildByFieldName("name"))
	case java.KindConstruction:
		return java.ConstructorName
	}
	return ""
}

var numericTypes = map[string]bool{
	"byte": true, "short": true, "int": true, "long": true, "char": true,
	"java.lang.Byte": true, "java.lang.Short": true, "java.lang.Integer": true,
	"java.lang.Long": true,
}

var boxed = map[string]string{
	"boolean": "java.lang.Boolean", "int": "java.lang.Integer", "long": "java.lang.Long",
	"char": "java.lang.Character", "double": "java.lang.Double", "float": "java.lang.Float",
	"byte": "java.lang.Byte", "short": "java.lang.Short",
}

func paramAccepts(facts Facts, param, arg string) bool {
	if arg == "" || param == "" || param == "java.lang.Object" {
		return true
	}
	if java.SameType(param, arg) || boxed[arg] == param || boxed[param] == arg {
		return true
	}
	if numericTypes[param] && numericTypes[arg] {
		return true
	}
	return facts.IsSubtypeOf(arg, param)
}

// Op is the comparison an ArgCheck applies to a constant argument.
type Op int

const (
	OpEquals Op = iota
	OpNotEquals
	OpAtLeast
	OpAtMost
)

// ArgCheck constrains the compile-time value of one argument.
type ArgCheck struct {
	Index    int
	Op       Op
	Values   []any
	FoldCase bool
}

// Equals requires argument i to equal one of values.
func Equals(i int, values ...any) ArgCheck {
	return ArgCheck{Index: i, Op: OpEquals, Values: values}
}

// EqualsFold is Equals with case-insensitive string comparison.
func EqualsFold(i int, values ...any) ArgCheck {
	return ArgCheck{Index: i, Op: OpEquals, Values: values, FoldCase: true}
}

// NotEquals requires argument i to differ from every value.
func NotEquals(i int, values ...any) ArgCheck {
	return ArgCheck{Index: i, Op: OpNotEquals, Values: values}
}

// AtLeast requires numeric argument i to be >= n.
func AtLeast(i int, n int64) ArgCheck {
	return ArgCheck{Index: i, Op: OpAtLeast, Values: []any{n}}
}

// AtMost requires numeric argument i to be <= n.
func AtMost(i int, n int64) ArgCheck {
	return ArgCheck{Index: i, Op: OpAtMost, Values: []any{n}}
}

func (a ArgCheck) String() string {
	ops := map[Op]string{OpEquals: "==", OpNotEquals: "!=", OpAtLeast: ">=", OpAtMost: "<="}
	return fmt.Sprintf("arg%d %s %v", a.Index, ops[a.Op], a.Values)
}

// Check evaluates the constraint against call. When lenient is set, a
// boolean check on a non-constant argument is assumed to hold; otherwise a
// non-constant argument never satisfies the check. A missing argument never
// does.
func (a ArgCheck) Check(facts Facts, call *sitter.Node, lenient bool) bool {
	arg := java.Argument(call, a.Index)
	if arg == nil {
		return false
	}
	v, ok := facts.ConstantValueOf(arg)
	if !ok {
		return lenient && a.expectsBool()
	}
	switch a.Op {
	case OpEquals:
		for _, want := range a.Values {
			if constEqual(v, want, a.FoldCase) {
				return true
			}
		}
		return false
	case OpNotEquals:
		for _, want := range a.Values {
			if constEqual(v, want, a.FoldCase) {
				return false
			}
		}
		return true
	case OpAtLeast, OpAtMost:
		got, ok := toFloat(v)
		if !ok || len(a.Values) == 0 {
			return false
		}
		bound, ok := toFloat(a.Values[0])
		if !ok {
			return false
		}
		if a.Op == OpAtLeast {
			return got >= bound
		}
		return got <= bound
	}
	return false
}

func (a ArgCheck) expectsBool() bool {
	if (a.Op != OpEquals && a.Op != OpNotEquals) || len(a.Values) == 0 {
		return false
	}
	for _, v := range a.Values {
		if _, ok := v.(bool); !ok {
			return false
		}
	}
	return true
}

func checkAll(facts Facts, call *sitter.Node, checks []ArgCheck, lenient bool) bool {
	for _, c := range checks {
		if !c.Check(facts, call, lenient) {
			return false
		}
	}
	return true
}

func constEqual(got, want any, fold bool) bool {
	switch w := want.(type) {
	case string:
		g, ok := got.(string)
		if !ok {
			return false
		}
		if fold {
			return strings.EqualFold(g, w)
		}
		return g == w
	case bool:
		g, ok := got.(bool)
		return ok && g == w
	}
	gf, gok := toFloat(got)
	wf, wok := toFloat(want)
	return gok && wok && gf == wf
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
