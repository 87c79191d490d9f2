// Filename: hardening/walker.go
package hardening

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/xkilldash9x/tripwire/internal/analysis/static/java"
)

// Walk visits every invocation and construction under root in document
// order, pre-order. Unless descendNested is set it does not enter lambdas,
// nested type declarations or anonymous class bodies below root. The walk
// always runs to completion.
func Walk(root *sitter.Node, descendNested bool, visit func(call *sitter.Node)) {
	var rec func(node *sitter.Node, isRoot bool)
	rec = func(node *sitter.Node, isRoot bool) {
		if node == nil || node.IsNull() {
			return
		}
		if !isRoot && !descendNested && isFenced(node) {
			return
		}
		if java.IsCall(node) {
			visit(node)
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			rec(node.NamedChild(i), false)
		}
	}
	rec(root, true)
}

func isFenced(node *sitter.Node) bool {
	switch java.KindOf(node) {
	case java.KindLambda, java.KindTypeDecl:
		return true
	}
	if node.Type() == "class_body" {
		parent := node.Parent()
		return parent != nil && java.KindOf(parent) == java.KindConstruction
	}
	return false
}

// ScopeOf returns the region searched for securing evidence around trigger,
// or nil when the policy finds no bounding scope, as for a trigger in a field
// initializer under EnclosingFunction.
func ScopeOf(trigger *sitter.Node, policy ScopePolicy) *sitter.Node {
	if trigger == nil {
		return nil
	}
	switch policy {
	case EnclosingFunction:
		for cur := trigger.Parent(); cur != nil; cur = cur.Parent() {
			if java.IsFunctionBoundary(cur) {
				return java.FunctionBody(cur)
			}
			if java.KindOf(cur) == java.KindTypeBody {
				return nil
			}
		}
		return nil

	case EnclosingType:
		for cur := trigger.Parent(); cur != nil; cur = cur.Parent() {
			if java.KindOf(cur) == java.KindTypeBody && cur.Type() != "enum_body_declarations" {
				return cur
			}
		}
		return nil

	case CompilationUnit:
		cur := trigger
		for cur.Parent() != nil {
			cur = cur.Parent()
		}
		return cur
	}
	return nil
}
