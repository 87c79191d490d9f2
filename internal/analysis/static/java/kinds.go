// Filename: java/kinds.go
// Package java provides the Java frontend used by the hardening engine: a
// tree-sitter parse of one source unit plus the lexical symbol facts needed
// to reason about the objects created and configured inside it.
package java

import sitter "github.com/smacker/go-tree-sitter"

// ConstructorName is the member name used for constructor signatures.
const ConstructorName = "<init>"

// Kind is the engine-level classification of a syntax node.
type Kind int

const (
	KindOther Kind = iota
	KindInvocation
	KindConstruction
	KindIdentifier
	KindMemberAccess
	KindAssignment
	KindVarDecl
	KindReturn
	KindThrow
	KindBlock
	KindLambda
	KindMethod
	KindTypeDecl
	KindTypeBody
	KindUnit
)

var kindNames = map[Kind]string{
	KindOther:        "other",
	KindInvocation:   "invocation",
	KindConstruction: "construction",
	KindIdentifier:   "identifier",
	KindMemberAccess: "member_access",
	KindAssignment:   "assignment",
	KindVarDecl:      "variable_declaration",
	KindReturn:       "return",
	KindThrow:        "throw",
	KindBlock:        "block",
	KindLambda:       "lambda",
	KindMethod:       "method",
	KindTypeDecl:     "type_declaration",
	KindTypeBody:     "type_body",
	KindUnit:         "unit",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf classifies a tree-sitter Java node.
func KindOf(node *sitter.Node) Kind {
	if node == nil || node.IsNull() {
		return KindOther
	}
	switch node.Type() {
	case "method_invocation":
		return KindInvocation
	case "object_creation_expression":
		return KindConstruction
	case "identifier":
		return KindIdentifier
	case "field_access":
		return KindMemberAccess
	case "assignment_expression":
		return KindAssignment
	case "local_variable_declaration", "field_declaration", "variable_declarator":
		return KindVarDecl
	case "return_statement":
		return KindReturn
	case "throw_statement":
		return KindThrow
	case "block", "constructor_body":
		return KindBlock
	case "lambda_expression":
		return KindLambda
	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		return KindMethod
	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		return KindTypeDecl
	case "class_body", "interface_body", "enum_body", "enum_body_declarations",
		"annotation_type_body":
		return KindTypeBody
	case "program":
		return KindUnit
	}
	return KindOther
}

// IsCall reports whether the node is an invocation or a construction.
func IsCall(node *sitter.Node) bool {
	k := KindOf(node)
	return k == KindInvocation || k == KindConstruction
}

// IsFunctionBoundary reports whether the node opens a new function body:
// methods, constructors, lambdas and initializer blocks.
func IsFunctionBoundary(node *sitter.Node) bool {
	switch KindOf(node) {
	case KindMethod, KindLambda:
		return true
	}
	if node == nil {
		return false
	}
	if node.Type() == "static_initializer" {
		return true
	}
	// Instance initializer: a bare block directly inside a class body.
	if node.Type() == "block" {
		if parent := node.Parent(); parent != nil && KindOf(parent) == KindTypeBody {
			return true
		}
	}
	return false
}

// FunctionBody returns the body node of a function boundary.
func FunctionBody(node *sitter.Node) *sitter.Node {
	if node == nil {
		return nil
	}
	switch node.Type() {
	case "method_declaration", "constructor_declaration", "compact_constructor_declaration", "lambda_expression":
		return node.ChildByFieldName("body")
	case "static_initializer":
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if child := node.NamedChild(i); child.Type() == "block" {
				return child
			}
		}
		return nil
	case "block":
		return node
	}
	return nil
}

// AnonymousClassBody returns the class body of an anonymous class creation
// (new Foo() { ... }), or nil.
func AnonymousClassBody(node *sitter.Node) *sitter.Node {
	if KindOf(node) != KindConstruction {
		return nil
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == "class_body" {
			return child
		}
	}
	return nil
}
