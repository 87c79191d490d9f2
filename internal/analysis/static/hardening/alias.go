// Filename: hardening/alias.go
package hardening

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// AliasSet is the set of symbols believed to denote one logical object within
// one scope. The Unknown symbol is never a member.
type AliasSet struct {
	order []*java.Symbol
	ids   map[int]bool
}

// NewAliasSet returns an empty set.
func NewAliasSet() *AliasSet {
	return &AliasSet{ids: make(map[int]bool)}
}

// Add inserts sym and reports whether it was new. Unknown symbols are ignored.
func (s *AliasSet) Add(sym *java.Symbol) bool {
	if sym == nil || s.ids[sym.ID()] {
		return false
	}
	s.ids[sym.ID()] = true
	s.order = append(s.order, sym)
	return true
}

// Contains reports membership. The Unknown symbol is never contained.
func (s *AliasSet) Contains(sym *java.Symbol) bool {
	return sym != nil && s.ids[sym.ID()]
}

// Len returns the number of symbols.
func (s *AliasSet) Len() int { return len(s.order) }

// Symbols returns the members in insertion order.
func (s *AliasSet) Symbols() []*java.Symbol {
	return append([]*java.Symbol(nil), s.order...)
}

// resolve seeds the case from its object-of-interest and expands the alias
// set by one hop. An object that cannot be tracked marks the case unknown.
func (c *Case) resolve(maxUnwrap int) {
	obj := java.Unparen(c.Object)
	if obj == nil {
		c.unknown = true
		return
	}

	switch {
	case isName(obj):
		sym := c.facts.SymbolOf(obj)
		if sym == nil {
			if _, ok := c.facts.ConstantValueOf(obj); ok {
				c.origins = append(c.origins, obj)
				c.fresh = obj
				return
			}
			c.unknown = true
			return
		}
		c.Aliases.Add(sym)
		if decl := sym.Declaration(); decl != nil {
			c.addSecondary(decl)
		}
		c.seedFromSymbol(sym, maxUnwrap)

	case java.SameNode(obj, c.Trigger) || isFresh(c.facts, obj):
		c.fresh = obj
		c.origins = append(c.origins, obj)
		c.bindChain(obj)

	case c.wrappedBy(obj) != nil:
		c.fresh = obj
		c.origins = append(c.origins, obj)
		c.unwrap(obj, maxUnwrap)
		c.bindChain(obj)

	default:
		// A value produced by an arbitrary call cannot be tracked.
		c.unknown = true
		return
	}

	c.expandAliases()
}

// seedFromSymbol follows the single write of sym through at most budget
// wrapper calls.
func (c *Case) seedFromSymbol(sym *java.Symbol, budget int) {
	w, ok := sym.SingleWrite()
	if !ok || w.Compound || w.Value == nil {
		return
	}
	value := java.Unparen(w.Value)
	if value == nil {
		return
	}
	c.origins = append(c.origins, value)
	if budget > 0 {
		c.unwrap(value, budget)
	}
}

// unwrap re-seeds from the expression a wrapper call was applied to.
func (c *Case) unwrap(call *sitter.Node, budget int) {
	if budget <= 0 {
		return
	}
	inner := c.wrappedBy(call)
	if inner == nil {
		return
	}
	inner = java.Unparen(inner)
	if inner == nil {
		return
	}
	c.origins = append(c.origins, inner)
	if isName(inner) {
		if sym := c.facts.SymbolOf(inner); c.Aliases.Add(sym) {
			c.seedFromSymbol(sym, budget-1)
		}
		return
	}
	c.unwrap(inner, budget-1)
}

// wrappedBy returns the expression call wraps when call is a known wrapper.
func (c *Case) wrappedBy(call *sitter.Node) *sitter.Node {
	if java.KindOf(call) != java.KindInvocation {
		return nil
	}
	name := methodName(c.facts, call)
	for _, w := range c.Rule.wrappers() {
		if w.Name != name {
			continue
		}
		if w.Arg < 0 {
			return java.Receiver(call)
		}
		return java.Argument(call, w.Arg)
	}
	return nil
}

// bindChain records the fluent chain hanging off a fresh value and the
// variable that finally receives it. Conditional branches and switch arms
// pass the value through; a merged value that reaches no variable, call or
// return cannot be tracked.
func (c *Case) bindChain(node *sitter.Node) {
	cur := node
	c.chain[java.KeyOf(cur)] = true
	merged := false
	parent := skipWrapping(cur.Parent())
	for parent != nil {
		if parent.Type() == "method_invocation" &&
			java.SameNode(java.Unparen(parent.ChildByFieldName("object")), cur) {
			cur = parent
		} else if sel := selectedBy(parent, cur); sel != nil {
			cur = sel
			merged = true
		} else {
			break
		}
		c.chain[java.KeyOf(cur)] = true
		parent = skipWrapping(cur.Parent())
	}
	if parent == nil {
		return
	}
	switch parent.Type() {
	case "variable_declarator":
		if java.SameNode(java.Unparen(parent.ChildByFieldName("value")), cur) {
			name := parent.ChildByFieldName("name")
			if c.Aliases.Add(c.facts.SymbolOf(name)) {
				c.addSecondary(name)
			}
		}
	case "assignment_expression":
		if java.SameNode(java.Unparen(parent.ChildByFieldName("right")), cur) {
			left := java.Unparen(parent.ChildByFieldName("left"))
			if sym := c.facts.SymbolOf(left); sym != nil {
				c.Aliases.Add(sym)
			} else if !c.Rule.IgnoreEscape {
				// Stored into an array slot or another object's field.
				c.escaped = true
			}
		}
	case "argument_list", "return_statement", "lambda_expression":
	default:
		if merged {
			c.unknown = true
		}
	}
}

// selectedBy returns the conditional or switch expression that yields value
// unchanged from parent, or nil when parent consumes it.
func selectedBy(parent, value *sitter.Node) *sitter.Node {
	switch parent.Type() {
	case "ternary_expression":
		if java.SameNode(java.Unparen(parent.ChildByFieldName("consequence")), value) ||
			java.SameNode(java.Unparen(parent.ChildByFieldName("alternative")), value) {
			return parent
		}
	case "expression_statement":
		// case L -> value;
		rule := parent.Parent()
		if rule == nil || rule.Type() != "switch_rule" || !java.SameNode(java.Unparen(parent.NamedChild(0)), value) {
			return nil
		}
		return switchOf(rule)
	case "yield_statement":
		if java.SameNode(java.Unparen(parent.NamedChild(0)), value) {
			return switchOf(parent)
		}
	}
	return nil
}

// switchOf returns the switch expression an arm or yield belongs to, without
// leaving the enclosing body.
func switchOf(node *sitter.Node) *sitter.Node {
	for n := node.Parent(); n != nil; n = n.Parent() {
		switch n.Type() {
		case "switch_expression":
			return n
		case "lambda_expression", "method_declaration", "constructor_declaration",
			"class_body", "interface_body", "enum_body", "record_declaration":
			return nil
		}
	}
	return nil
}

// expandAliases adds, once, the variables that copy a tracked symbol inside
// the scope: single-write aliases and reassignment targets.
func (c *Case) expandAliases() {
	for _, sym := range c.Aliases.Symbols() {
		for _, use := range c.facts.UsesOf(sym) {
			if !within(c.Scope, use) {
				continue
			}
			value := use
			parent := skipWrapping(use.Parent())
			for parent != nil {
				sel := selectedBy(parent, value)
				if sel == nil {
					break
				}
				value, parent = sel, skipWrapping(sel.Parent())
			}
			if parent == nil {
				continue
			}
			switch parent.Type() {
			case "variable_declarator":
				if !java.SameNode(java.Unparen(parent.ChildByFieldName("value")), value) {
					continue
				}
				target := c.facts.SymbolOf(parent.ChildByFieldName("name"))
				if _, single := target.SingleWrite(); single {
					c.Aliases.Add(target)
				}
			case "assignment_expression":
				if !java.SameNode(java.Unparen(parent.ChildByFieldName("right")), value) {
					continue
				}
				c.Aliases.Add(c.facts.SymbolOf(parent.ChildByFieldName("left")))
			}
		}
	}
}

// Tracks reports whether expr denotes the tracked object: an alias, the
// fresh value itself or a call of its fluent chain.
func (c *Case) Tracks(expr *sitter.Node) bool {
	expr = java.Unparen(expr)
	if expr == nil || c.unknown {
		return false
	}
	if isName(expr) {
		return c.Aliases.Contains(c.facts.SymbolOf(expr))
	}
	if c.fresh != nil && java.SameNode(expr, c.fresh) {
		return true
	}
	return c.chain[java.KeyOf(expr)]
}

// onTracked reports whether call is invoked on the tracked object.
func (c *Case) onTracked(call *sitter.Node) bool {
	if c.chain[java.KeyOf(call)] {
		return true
	}
	return c.Tracks(java.Receiver(call))
}

func isName(node *sitter.Node) bool {
	switch node.Type() {
	case "identifier":
		return true
	case "field_access":
		object := node.ChildByFieldName("object")
		return object != nil && object.Type() == "this"
	}
	return false
}

// isFresh reports whether node creates a new value on the spot.
func isFresh(facts Facts, node *sitter.Node) bool {
	switch node.Type() {
	case "object_creation_expression", "array_creation_expression", "array_initializer",
		"string_literal", "text_block", "character_literal":
		return true
	}
	_, constant := facts.ConstantValueOf(node)
	return constant
}

func skipWrapping(node *sitter.Node) *sitter.Node {
	for node != nil && (node.Type() == "parenthesized_expression" || node.Type() == "cast_expression") {
		node = node.Parent()
	}
	return node
}

func within(scope, node *sitter.Node) bool {
	if scope == nil || node == nil {
		return false
	}
	return node.StartByte() >= scope.StartByte() && node.EndByte() <= scope.EndByte()
}
