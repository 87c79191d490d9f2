// Filename: java/constants.go
package java

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxConstantDepth bounds how many variable hops constant folding follows.
const maxConstantDepth = 8

// ConstantValueOf folds an expression to a compile-time value. The value is a
// string, bool, int64 or float64. Variables fold through their single
// initializer when the variable is final, or is a local or parameter that is
// never reassigned.
func (t *SymbolTable) ConstantValueOf(node *sitter.Node) (any, bool) {
	v, _, ok := t.fold(node, 0)
	return v, ok
}

// ConstantOrigin returns the literal node a constant expression folds from,
// following variable initializers. It returns nil when node is not constant.
func (t *SymbolTable) ConstantOrigin(node *sitter.Node) *sitter.Node {
	_, origin, ok := t.fold(node, 0)
	if !ok {
		return nil
	}
	return origin
}

func (t *SymbolTable) fold(node *sitter.Node, depth int) (any, *sitter.Node, bool) {
	if node == nil || depth > maxConstantDepth {
		return nil, nil, false
	}
	switch node.Type() {
	case "parenthesized_expression":
		return t.fold(firstNamedChild(node), depth)
	case "cast_expression":
		return t.fold(node.ChildByFieldName("value"), depth)

	case "string_literal":
		text := NodeContent(node, t.source)
		if strings.HasPrefix(text, `"""`) {
			return textBlockValue(text), node, true
		}
		s, ok := unquoteString(text)
		return s, node, ok
	case "text_block":
		return textBlockValue(NodeContent(node, t.source)), node, true
	case "character_literal":
		s, ok := unquoteString(NodeContent(node, t.source))
		return s, node, ok
	case "true":
		return true, node, true
	case "false":
		return false, node, true
	case "null_literal":
		return nil, nil, false
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		n, ok := parseIntLiteral(NodeContent(node, t.source))
		return n, node, ok
	case "decimal_floating_point_literal":
		text := strings.TrimRight(strings.ReplaceAll(NodeContent(node, t.source), "_", ""), "dDfF")
		f, err := strconv.ParseFloat(text, 64)
		return f, node, err == nil

	case "unary_expression":
		return t.foldUnary(node, depth)
	case "binary_expression":
		return t.foldBinary(node, depth)

	case "identifier":
		if sym := t.SymbolOf(node); sym != nil {
			return t.foldSymbol(sym, depth)
		}
		name := NodeContent(node, t.source)
		if fqn, ok := t.staticImports[name]; ok {
			if sym, ok := t.staticConst[fqn]; ok {
				return t.foldSymbol(sym, depth)
			}
			if v, ok := t.hints.Constants[fqn]; ok {
				return v, node, true
			}
		}
		return nil, nil, false

	case "field_access":
		if sym := t.SymbolOf(node); sym != nil {
			return t.foldSymbol(sym, depth)
		}
		path := FlattenName(node, t.source)
		if len(path) < 2 || path[0] == "this" || t.SymbolOf(leftmost(node)) != nil {
			return nil, nil, false
		}
		owner := t.ResolveTypeName(strings.Join(path[:len(path)-1], "."))
		key := owner + "." + path[len(path)-1]
		if sym, ok := t.staticConst[key]; ok {
			return t.foldSymbol(sym, depth)
		}
		if v, ok := t.hints.Constants[key]; ok {
			return v, node, true
		}
		return nil, nil, false
	}
	return nil, nil, false
}

func (t *SymbolTable) foldSymbol(sym *Symbol, depth int) (any, *sitter.Node, bool) {
	if sym.Kind == SymbolField && !sym.Final {
		return nil, nil, false
	}
	w, ok := sym.SingleWrite()
	if !ok || w.Compound || w.Value == nil {
		return nil, nil, false
	}
	return t.fold(w.Value, depth+1)
}

func (t *SymbolTable) foldUnary(node *sitter.Node, depth int) (any, *sitter.Node, bool) {
	op := NodeContent(node.ChildByFieldName("operator"), t.source)
	v, origin, ok := t.fold(node.ChildByFieldName("operand"), depth)
	if !ok {
		return nil, nil, false
	}
	switch op {
	case "-":
		switch n := v.(type) {
		case int64:
			return -n, node, true
		case float64:
			return -n, node, true
		}
	case "+":
		switch v.(type) {
		case int64, float64:
			return v, origin, true
		}
	case "!":
		if b, isBool := v.(bool); isBool {
			return !b, node, true
		}
	}
	return nil, nil, false
}

func (t *SymbolTable) foldBinary(node *sitter.Node, depth int) (any, *sitter.Node, bool) {
	op := NodeContent(node.ChildByFieldName("operator"), t.source)
	left, _, lok := t.fold(node.ChildByFieldName("left"), depth)
	if !lok {
		return nil, nil, false
	}
	right, _, rok := t.fold(node.ChildByFieldName("right"), depth)
	if !rok {
		return nil, nil, false
	}
	ls, lIsString := left.(string)
	rs, rIsString := right.(string)
	if op == "+" && (lIsString || rIsString) {
		if !lIsString {
			ls = formatConstant(left)
		}
		if !rIsString {
			rs = formatConstant(right)
		}
		return ls + rs, node, true
	}
	ln, lIsInt := left.(int64)
	rn, rIsInt := right.(int64)
	if lIsInt && rIsInt {
		switch op {
		case "+":
			return ln + rn, node, true
		case "-":
			return ln - rn, node, true
		case "*":
			return ln * rn, node, true
		}
	}
	lb, lIsBool := left.(bool)
	rb, rIsBool := right.(bool)
	if lIsBool && rIsBool {
		switch op {
		case "&&":
			return lb && rb, node, true
		case "||":
			return lb || rb, node, true
		}
	}
	return nil, nil, false
}

func formatConstant(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return ""
}

func unquoteString(text string) (string, bool) {
	if len(text) < 2 {
		return "", false
	}
	quote := text[0]
	if (quote != '"' && quote != '\'') || text[len(text)-1] != quote {
		return "", false
	}
	body := text[1 : len(text)-1]
	if !strings.Contains(body, `\`) {
		return body, true
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 's':
			b.WriteByte(' ')
		case '0':
			b.WriteByte(0)
		case 'u':
			j := i + 1
			for j < len(body) && body[j] == 'u' {
				j++
			}
			if j+4 <= len(body) {
				if r, err := strconv.ParseUint(body[j:j+4], 16, 32); err == nil {
					b.WriteRune(rune(r))
					i = j + 3
					continue
				}
			}
			b.WriteString(`\u`)
		default:
			b.WriteByte(body[i])
		}
	}
	return b.String(), true
}

func textBlockValue(text string) string {
	text = strings.TrimPrefix(text, `"""`)
	text = strings.TrimSuffix(text, `"""`)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.Join(lines, "\n")
}

func parseIntLiteral(text string) (int64, bool) {
	text = strings.ReplaceAll(text, "_", "")
	text = strings.TrimRight(text, "lL")
	base := 10
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		base, text = 16, text[2:]
	case strings.HasPrefix(text, "0b") || strings.HasPrefix(text, "0B"):
		base, text = 2, text[2:]
	case len(text) > 1 && text[0] == '0':
		base, text = 8, text[1:]
	}
	u, err := strconv.ParseUint(text, base, 64)
	if err != nil {
		return 0, false
	}
	return int64(u), true
}
