// Filename: java/helpers.go
package java

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// LocationInfo holds the detailed location and snippet of a node.
type LocationInfo struct {
	File      string
	Line      int
	Column    int
	EndLine   int
	EndColumn int
	Snippet   string
}

func (l LocationInfo) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// NodeKey identifies a node within one tree independently of the *sitter.Node
// wrapper that was handed out for it.
type NodeKey struct {
	Start uint32
	End   uint32
	Type  string
}

// KeyOf returns the identity key of a node. A nil node yields the zero key.
func KeyOf(node *sitter.Node) NodeKey {
	if node == nil {
		return NodeKey{}
	}
	return NodeKey{Start: node.StartByte(), End: node.EndByte(), Type: node.Type()}
}

// SameNode reports whether a and b denote the same syntax node.
func SameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return KeyOf(a) == KeyOf(b)
}

// NodeContent extracts the string content of a node from the source byte slice.
func NodeContent(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return node.Content(source)
}

// Unparen strips parentheses and casts around an expression.
func Unparen(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Type() {
		case "parenthesized_expression":
			node = firstNamedChild(node)
		case "cast_expression":
			node = node.ChildByFieldName("value")
		default:
			return node
		}
	}
	return nil
}

// Arguments returns the argument expressions of an invocation or construction,
// in source order. Nodes of any other kind have no arguments.
func Arguments(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	switch KindOf(node) {
	case KindInvocation, KindConstruction:
	default:
		return nil
	}
	list := node.ChildByFieldName("arguments")
	if list == nil {
		return nil
	}
	args := make([]*sitter.Node, 0, list.NamedChildCount())
	for i := 0; i < int(list.NamedChildCount()); i++ {
		child := list.NamedChild(i)
		if isComment(child) {
			continue
		}
		args = append(args, child)
	}
	return args
}

// Argument returns the argument at index i, or nil when the call has fewer arguments.
func Argument(node *sitter.Node, i int) *sitter.Node {
	args := Arguments(node)
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}

// MethodName returns the simple name of an invoked method. Constructions
// report ConstructorName.
func MethodName(node *sitter.Node, source []byte) string {
	switch KindOf(node) {
	case KindInvocation:
		return NodeContent(node.ChildByFieldName("name"), source)
	case KindConstruction:
		return ConstructorName
	}
	return ""
}

// Receiver returns the receiver expression of a method invocation, or nil for
// unqualified calls and constructions.
func Receiver(node *sitter.Node) *sitter.Node {
	if KindOf(node) != KindInvocation {
		return nil
	}
	return node.ChildByFieldName("object")
}

// FlattenName flattens a chain of identifiers and field accesses
// (javax.xml.XMLConstants.ACCESS_EXTERNAL_DTD) into its dotted segments.
// It returns nil for anything that is not a plain name chain.
func FlattenName(node *sitter.Node, source []byte) []string {
	var path []string
	current := node

	for {
		if current == nil {
			return nil
		}

		switch current.Type() {
		case "identifier", "type_identifier":
			return append([]string{NodeContent(current, source)}, path...)
		case "this":
			return append([]string{"this"}, path...)

		case "field_access":
			object := current.ChildByFieldName("object")
			field := current.ChildByFieldName("field")
			if object == nil || field == nil || field.Type() != "identifier" {
				return nil
			}
			path = append([]string{NodeContent(field, source)}, path...)
			current = object

		case "scoped_identifier", "scoped_type_identifier":
			scope := current.ChildByFieldName("scope")
			name := current.ChildByFieldName("name")
			if scope == nil || name == nil {
				// Older grammars expose scoped_type_identifier without fields.
				if current.NamedChildCount() < 2 {
					return nil
				}
				scope = current.NamedChild(0)
				name = current.NamedChild(int(current.NamedChildCount()) - 1)
			}
			path = append([]string{NodeContent(name, source)}, path...)
			current = scope

		default:
			return nil
		}
	}
}

// FormatLocation converts a Tree-sitter Node location to detailed LocationInfo.
func FormatLocation(filename string, node *sitter.Node, source []byte) LocationInfo {
	if node == nil {
		return LocationInfo{File: filename, Snippet: "N/A"}
	}

	startByte := node.StartByte()
	endByte := node.EndByte()
	startPoint := node.StartPoint()
	endPoint := node.EndPoint()

	snippet := "N/A"
	if int(endByte) <= len(source) && int(startByte) < int(endByte) {
		lineStart := findLineStart(source, int(startByte))
		lineEnd := findLineEnd(source, int(startByte))
		if lineStart >= 0 && lineEnd > lineStart {
			snippet = strings.TrimSpace(string(source[lineStart:lineEnd]))
		} else {
			snippet = node.Content(source)
		}
	}

	return LocationInfo{
		File:      filename,
		Line:      int(startPoint.Row) + 1,
		Column:    int(startPoint.Column) + 1,
		EndLine:   int(endPoint.Row) + 1,
		EndColumn: int(endPoint.Column) + 1,
		Snippet:   snippet,
	}
}

func findLineStart(source []byte, idx int) int {
	if idx >= len(source) {
		if len(source) == 0 {
			return 0
		}
		idx = len(source) - 1
	}
	if idx < 0 {
		return 0
	}

	for i := idx; i >= 0; i-- {
		if source[i] == '\n' {
			return i + 1
		}
	}
	return 0
}

func findLineEnd(source []byte, idx int) int {
	for i := idx; i < len(source); i++ {
		if source[i] == '\n' {
			return i
		}
	}
	return len(source)
}

func firstNamedChild(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if !isComment(child) {
			return child
		}
	}
	return nil
}

func isComment(node *sitter.Node) bool {
	if node == nil {
		return false
	}
	switch node.Type() {
	case "line_comment", "block_comment", "comment":
		return true
	}
	return false
}
