// Filename: java/types.go
package java

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// TypeHints is the library knowledge the symbol table cannot derive from a
// single unit: supertypes of platform and third-party types, result types of
// factory methods, builder types whose methods return the receiver, and the
// values of well-known constants. Hints are read-only once handed to a table.
type TypeHints struct {
	// Supertypes maps a fully qualified type to its direct supertypes.
	Supertypes map[string][]string
	// Returns maps "owner.method" to the fully qualified result type.
	Returns map[string]string
	// Fluent marks types whose methods return the receiver type unless
	// Returns says otherwise.
	Fluent map[string]bool
	// Constants maps "owner.FIELD" to a string, bool, int64 or float64.
	Constants map[string]any

	bySimple map[string][]string
}

// Merge returns a new TypeHints holding the entries of h and other. Entries
// of other win on conflict.
func (h *TypeHints) Merge(other *TypeHints) *TypeHints {
	out := &TypeHints{
		Supertypes: make(map[string][]string),
		Returns:    make(map[string]string),
		Fluent:     make(map[string]bool),
		Constants:  make(map[string]any),
	}
	for _, src := range []*TypeHints{h, other} {
		if src == nil {
			continue
		}
		for k, v := range src.Supertypes {
			out.Supertypes[k] = append(append([]string(nil), out.Supertypes[k]...), v...)
		}
		for k, v := range src.Returns {
			out.Returns[k] = v
		}
		for k, v := range src.Fluent {
			out.Fluent[k] = v
		}
		for k, v := range src.Constants {
			out.Constants[k] = v
		}
	}
	out.index()
	return out
}

func (h *TypeHints) index() {
	h.bySimple = make(map[string][]string)
	add := func(fqn string) {
		simple := SimpleName(fqn)
		for _, existing := range h.bySimple[simple] {
			if existing == fqn {
				return
			}
		}
		h.bySimple[simple] = append(h.bySimple[simple], fqn)
	}
	for k, supers := range h.Supertypes {
		add(k)
		for _, s := range supers {
			add(s)
		}
	}
	for k := range h.Fluent {
		add(k)
	}
}

// PlatformHints describes the JDK types and constants the catalog relies on.
func PlatformHints() *TypeHints {
	h := &TypeHints{
		Supertypes: map[string][]string{
			"java.util.Properties":                          {"java.util.Hashtable"},
			"java.util.Hashtable":                           {"java.util.Map"},
			"java.util.HashMap":                             {"java.util.Map"},
			"java.security.SecureRandom":                    {"java.util.Random"},
			"javax.xml.transform.sax.SAXTransformerFactory": {"javax.xml.transform.TransformerFactory"},
			"javax.net.ssl.HttpsURLConnection":              {"java.net.HttpURLConnection"},
			"java.net.HttpURLConnection":                    {"java.net.URLConnection"},
		},
		Returns: map[string]string{
			"java.lang.String.getBytes":                                   "byte[]",
			"java.lang.String.toCharArray":                                "char[]",
			"java.lang.String.valueOf":                                    "java.lang.String",
			"java.util.Base64.getDecoder":                                 "java.util.Base64.Decoder",
			"java.util.Base64.Decoder.decode":                             "byte[]",
			"javax.xml.parsers.DocumentBuilderFactory.newInstance":        "javax.xml.parsers.DocumentBuilderFactory",
			"javax.xml.parsers.DocumentBuilderFactory.newDefaultInstance": "javax.xml.parsers.DocumentBuilderFactory",
			"javax.xml.parsers.DocumentBuilderFactory.newNSInstance":      "javax.xml.parsers.DocumentBuilderFactory",
			"javax.xml.parsers.SAXParserFactory.newInstance":              "javax.xml.parsers.SAXParserFactory",
			"javax.xml.parsers.SAXParserFactory.newDefaultInstance":       "javax.xml.parsers.SAXParserFactory",
			"javax.xml.parsers.SAXParserFactory.newSAXParser":             "javax.xml.parsers.SAXParser",
			"javax.xml.parsers.SAXParser.getXMLReader":                    "org.xml.sax.XMLReader",
			"javax.xml.stream.XMLInputFactory.newInstance":                "javax.xml.stream.XMLInputFactory",
			"javax.xml.stream.XMLInputFactory.newFactory":                 "javax.xml.stream.XMLInputFactory",
			"javax.xml.stream.XMLInputFactory.newDefaultFactory":          "javax.xml.stream.XMLInputFactory",
			"javax.xml.transform.TransformerFactory.newInstance":          "javax.xml.transform.TransformerFactory",
			"javax.xml.transform.TransformerFactory.newDefaultInstance":   "javax.xml.transform.TransformerFactory",
			"javax.xml.validation.SchemaFactory.newInstance":              "javax.xml.validation.SchemaFactory",
			"javax.xml.validation.SchemaFactory.newDefaultInstance":       "javax.xml.validation.SchemaFactory",
			"javax.xml.validation.SchemaFactory.newSchema":                "javax.xml.validation.Schema",
			"javax.xml.validation.Schema.newValidator":                    "javax.xml.validation.Validator",
			"org.xml.sax.helpers.XMLReaderFactory.createXMLReader":        "org.xml.sax.XMLReader",
			"java.security.SecureRandom.getInstance":                      "java.security.SecureRandom",
			"java.security.SecureRandom.getInstanceStrong":                "java.security.SecureRandom",
		},
		Fluent: map[string]bool{
			"java.lang.StringBuilder": true,
		},
		Constants: map[string]any{
			"java.lang.Boolean.TRUE":                                           true,
			"java.lang.Boolean.FALSE":                                          false,
			"javax.xml.XMLConstants.ACCESS_EXTERNAL_DTD":                       "http://javax.xml.XMLConstants/property/accessExternalDTD",
			"javax.xml.XMLConstants.ACCESS_EXTERNAL_SCHEMA":                    "http://javax.xml.XMLConstants/property/accessExternalSchema",
			"javax.xml.XMLConstants.ACCESS_EXTERNAL_STYLESHEET":                "http://javax.xml.XMLConstants/property/accessExternalStylesheet",
			"javax.xml.XMLConstants.FEATURE_SECURE_PROCESSING":                 "http://javax.xml.XMLConstants/feature/secure-processing",
			"javax.xml.stream.XMLInputFactory.SUPPORT_DTD":                     "javax.xml.stream.supportDTD",
			"javax.xml.stream.XMLInputFactory.IS_SUPPORTING_EXTERNAL_ENTITIES": "javax.xml.stream.isSupportingExternalEntities",
			"javax.xml.stream.XMLInputFactory.IS_VALIDATING":                   "javax.xml.stream.isValidating",
		},
	}
	h.index()
	return h
}

var primitiveTypes = map[string]bool{
	"byte": true, "short": true, "int": true, "long": true, "float": true,
	"double": true, "boolean": true, "char": true, "void": true,
}

var javaLangTypes = map[string]bool{
	"String": true, "Object": true, "System": true, "Boolean": true, "Integer": true,
	"Long": true, "Math": true, "StringBuilder": true, "Thread": true, "Class": true,
	"Character": true, "Byte": true, "Short": true, "Double": true, "Float": true,
	"Exception": true, "RuntimeException": true, "Throwable": true, "Runnable": true,
}

// SimpleName returns the last dotted segment of a type name.
func SimpleName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}

func isQualified(name string) bool { return strings.Contains(name, ".") }

// stripGenerics removes type arguments and annotations from a type's text,
// keeping array dimensions.
func stripGenerics(text string) string {
	text = strings.TrimSpace(text)
	for strings.HasPrefix(text, "@") {
		i := 1
		for i < len(text) && (text[i] == '.' || isIdentRune(rune(text[i]))) {
			i++
		}
		text = strings.TrimSpace(text[i:])
	}
	var b strings.Builder
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0 && r != ' ' && r != '\t' && r != '\n' && r != '\r':
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// ResolveTypeName maps a type as written in the unit to its fully qualified
// name using the unit's imports and declarations. Names that cannot be
// resolved are returned in simple form.
func (t *SymbolTable) ResolveTypeName(text string) string {
	text = stripGenerics(text)
	if text == "" {
		return ""
	}
	dims := ""
	if i := strings.Index(text, "["); i >= 0 {
		dims = text[i:]
		text = text[:i]
	}
	if strings.HasSuffix(text, "...") {
		text = strings.TrimSuffix(text, "...")
		dims += "[]"
	}
	return t.resolveBase(text) + dims
}

func (t *SymbolTable) resolveBase(base string) string {
	if primitiveTypes[base] {
		return base
	}
	if isQualified(base) {
		first, rest, _ := strings.Cut(base, ".")
		if resolved := t.resolveSimple(first); isQualified(resolved) {
			return resolved + "." + rest
		}
		return base
	}
	return t.resolveSimple(base)
}

func (t *SymbolTable) resolveSimple(name string) string {
	if fqn, ok := t.imports[name]; ok {
		return fqn
	}
	if fqn, ok := t.declared[name]; ok {
		return fqn
	}
	if javaLangTypes[name] {
		return "java.lang." + name
	}
	return name
}

// EnclosingTypeName returns the fully qualified name of the type declaring
// node. Code inside an anonymous class reports the instantiated type.
func (t *SymbolTable) EnclosingTypeName(node *sitter.Node) string {
	for cur := node; cur != nil; cur = cur.Parent() {
		if KindOf(cur) == KindTypeDecl {
			return t.typeNodes[KeyOf(cur)]
		}
		if cur.Type() == "class_body" {
			if parent := cur.Parent(); parent != nil && KindOf(parent) == KindConstruction {
				return t.ResolveTypeName(NodeContent(parent.ChildByFieldName("type"), t.source))
			}
		}
	}
	return ""
}

// TypeOf returns the best-effort static type of an expression, or "" when it
// cannot be determined.
func (t *SymbolTable) TypeOf(node *sitter.Node) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "cast_expression":
		return t.ResolveTypeName(NodeContent(node.ChildByFieldName("type"), t.source))
	case "parenthesized_expression":
		return t.TypeOf(Unparen(node))
	case "identifier":
		if sym := t.SymbolOf(node); sym != nil {
			return sym.TypeName
		}
		return t.constantType(node)
	case "field_access":
		if sym := t.SymbolOf(node); sym != nil {
			return sym.TypeName
		}
		return t.constantType(node)
	case "this":
		return t.EnclosingTypeName(node)
	case "string_literal", "text_block":
		return "java.lang.String"
	case "true", "false":
		return "boolean"
	case "character_literal":
		return "char"
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal", "binary_integer_literal":
		if strings.HasSuffix(strings.ToLower(NodeContent(node, t.source)), "l") {
			return "long"
		}
		return "int"
	case "decimal_floating_point_literal", "hex_floating_point_literal":
		return "double"
	case "object_creation_expression":
		return t.ResolveTypeName(NodeContent(node.ChildByFieldName("type"), t.source))
	case "array_creation_expression":
		return t.ResolveTypeName(NodeContent(node.ChildByFieldName("type"), t.source)) + "[]"
	case "method_invocation":
		return t.invocationType(node)
	case "binary_expression":
		if NodeContent(node.ChildByFieldName("operator"), t.source) == "+" {
			if t.TypeOf(node.ChildByFieldName("left")) == "java.lang.String" ||
				t.TypeOf(node.ChildByFieldName("right")) == "java.lang.String" {
				return "java.lang.String"
			}
		}
		return ""
	case "ternary_expression":
		return t.TypeOf(node.ChildByFieldName("consequence"))
	}
	return ""
}

func (t *SymbolTable) constantType(node *sitter.Node) string {
	v, ok := t.ConstantValueOf(node)
	if !ok {
		return ""
	}
	switch v.(type) {
	case string:
		return "java.lang.String"
	case bool:
		return "boolean"
	case int64:
		return "int"
	case float64:
		return "double"
	}
	return ""
}

func (t *SymbolTable) invocationType(node *sitter.Node) string {
	owner := t.ReceiverType(node)
	if owner == "" {
		return ""
	}
	name := MethodName(node, t.source)
	for _, candidate := range t.selfAndSupertypes(owner) {
		if ret, ok := t.hints.Returns[candidate+"."+name]; ok {
			return ret
		}
	}
	for _, candidate := range t.selfAndSupertypes(owner) {
		if t.hints.Fluent[candidate] {
			return owner
		}
	}
	return ""
}

// ReceiverType returns the declaring type a call is dispatched on: the
// instantiated type for constructions, the receiver's static type for
// qualified invocations, the named type for static calls and the enclosing
// type for unqualified calls.
func (t *SymbolTable) ReceiverType(node *sitter.Node) string {
	switch KindOf(node) {
	case KindConstruction:
		return t.ResolveTypeName(NodeContent(node.ChildByFieldName("type"), t.source))
	case KindInvocation:
	default:
		return ""
	}

	object := node.ChildByFieldName("object")
	if object == nil {
		return t.EnclosingTypeName(node)
	}
	object = Unparen(object)
	if object == nil {
		return ""
	}
	switch object.Type() {
	case "super":
		if supers := t.supertypes[t.EnclosingTypeName(node)]; len(supers) > 0 {
			return supers[0]
		}
		return ""
	case "identifier":
		if sym := t.SymbolOf(object); sym != nil {
			return sym.TypeName
		}
		// An unresolved name in receiver position is a type reference.
		return t.ResolveTypeName(NodeContent(object, t.source))
	case "field_access", "scoped_identifier":
		if sym := t.SymbolOf(object); sym != nil {
			return sym.TypeName
		}
		if typ := t.constantType(object); typ != "" {
			return typ
		}
		if path := FlattenName(object, t.source); path != nil && path[0] != "this" {
			if t.SymbolOf(leftmost(object)) == nil {
				return t.ResolveTypeName(strings.Join(path, "."))
			}
		}
		return ""
	}
	return t.TypeOf(object)
}

func leftmost(node *sitter.Node) *sitter.Node {
	for node != nil && node.Type() == "field_access" {
		node = node.ChildByFieldName("object")
	}
	return node
}

// IsSubtypeOf reports whether typeName equals super or transitively extends
// or implements it. Unresolved simple names match by simple name.
func (t *SymbolTable) IsSubtypeOf(typeName, super string) bool {
	typeName = stripGenerics(typeName)
	super = stripGenerics(super)
	if typeName == "" || super == "" {
		return false
	}
	if super == "java.lang.Object" && !primitiveTypes[typeName] {
		return true
	}
	for _, candidate := range t.selfAndSupertypes(typeName) {
		if SameType(candidate, super) {
			return true
		}
	}
	return false
}

// selfAndSupertypes lists typeName followed by all of its known supertypes,
// breadth first, without repetition.
func (t *SymbolTable) selfAndSupertypes(typeName string) []string {
	seen := map[string]bool{typeName: true}
	out := []string{typeName}
	for i := 0; i < len(out) && i < 64; i++ {
		cur := out[i]
		var supers []string
		supers = append(supers, t.supertypes[cur]...)
		supers = append(supers, t.hints.Supertypes[cur]...)
		if !isQualified(cur) && t.hints.bySimple != nil {
			for _, fqn := range t.hints.bySimple[cur] {
				supers = append(supers, t.hints.Supertypes[fqn]...)
			}
		}
		for _, s := range supers {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

// SameType reports whether two type names denote the same type. Names that
// are not fully qualified compare by simple name.
func SameType(a, b string) bool {
	if a == b {
		return true
	}
	if isQualified(a) && isQualified(b) {
		return false
	}
	return SimpleName(a) == SimpleName(b)
}
