// Filename: java/symbols.go
// Lexical symbol resolution for a single Java source unit. This is the
// minimal symbol facts provider the hardening engine runs against: locals,
// parameters and fields resolved by scope, with their uses and writes.
package java

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// SymbolKind distinguishes the declaration forms a symbol can come from.
type SymbolKind int

const (
	SymbolLocal SymbolKind = iota + 1
	SymbolParameter
	SymbolField
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolLocal:
		return "local"
	case SymbolParameter:
		return "parameter"
	case SymbolField:
		return "field"
	}
	return "unknown"
}

// Symbol is the stable identity of one declared name. A nil *Symbol is the
// Unknown symbol: the name could not be resolved to a declaration.
type Symbol struct {
	id       int
	Name     string
	Kind     SymbolKind
	TypeName string
	Final    bool
	Static   bool

	decl   *sitter.Node
	uses   []*sitter.Node
	writes []Write
}

// Write is one assignment to a symbol: a declarator with an initializer, an
// assignment expression, or an implicit binding (parameters, for-each and
// catch variables) whose Value is nil.
type Write struct {
	Node     *sitter.Node
	Value    *sitter.Node
	Compound bool
}

// Known reports whether the symbol resolved to a declaration.
func (s *Symbol) Known() bool { return s != nil }

// ID returns the unit-local identifier of the symbol.
func (s *Symbol) ID() int {
	if s == nil {
		return -1
	}
	return s.id
}

// Declaration returns the declaring name node.
func (s *Symbol) Declaration() *sitter.Node {
	if s == nil {
		return nil
	}
	return s.decl
}

// Uses returns the reference sites of the symbol in document order.
func (s *Symbol) Uses() []*sitter.Node {
	if s == nil {
		return nil
	}
	return s.uses
}

// Writes returns every write to the symbol in document order.
func (s *Symbol) Writes() []Write {
	if s == nil {
		return nil
	}
	return s.writes
}

// SingleWrite returns the only write to the symbol, if there is exactly one.
func (s *Symbol) SingleWrite() (Write, bool) {
	if s == nil || len(s.writes) != 1 {
		return Write{}, false
	}
	return s.writes[0], true
}

func (s *Symbol) String() string {
	if s == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("%s#%d(%s)", s.Name, s.id, s.Kind)
}

// SymbolTable holds every symbol declared in a unit and the resolution of
// each reference node. It is immutable once built.
type SymbolTable struct {
	source []byte
	hints  *TypeHints

	pkg           string
	imports       map[string]string
	staticImports map[string]string
	declared      map[string]string
	supertypes    map[string][]string
	typeNodes     map[NodeKey]string

	symbols     []*Symbol
	refs        map[NodeKey]*Symbol
	decls       map[NodeKey]*Symbol
	staticConst map[string]*Symbol
}

// frame is one lexical scope during resolution.
type frame struct {
	names     map[string]*Symbol
	typeScope bool
}

type resolver struct {
	table  *SymbolTable
	frames []*frame
}

// BuildSymbolTable resolves every declaration and reference under root.
func BuildSymbolTable(root *sitter.Node, source []byte, hints *TypeHints) *SymbolTable {
	if hints == nil {
		hints = &TypeHints{}
	}
	t := &SymbolTable{
		source:        source,
		hints:         hints,
		imports:       make(map[string]string),
		staticImports: make(map[string]string),
		declared:      make(map[string]string),
		supertypes:    make(map[string][]string),
		typeNodes:     make(map[NodeKey]string),
		refs:          make(map[NodeKey]*Symbol),
		decls:         make(map[NodeKey]*Symbol),
		staticConst:   make(map[string]*Symbol),
	}
	if root == nil {
		return t
	}

	t.collectHeader(root)
	t.collectTypes(root, "")

	r := &resolver{table: t}
	r.push(false)
	r.walk(root)
	r.pop()
	return t
}

// Symbols returns all declared symbols in declaration order.
func (t *SymbolTable) Symbols() []*Symbol { return t.symbols }

// Package returns the declared package of the unit.
func (t *SymbolTable) Package() string { return t.pkg }

// SymbolOf resolves an identifier, a this-qualified field access or a
// declaring name node to its symbol. Anything else yields the Unknown symbol.
func (t *SymbolTable) SymbolOf(node *sitter.Node) *Symbol {
	node = Unparen(node)
	if node == nil {
		return nil
	}
	key := KeyOf(node)
	if sym, ok := t.refs[key]; ok {
		return sym
	}
	if sym, ok := t.decls[key]; ok {
		return sym
	}
	return nil
}

// DeclarationOf returns the declaring name node of the symbol referenced by node.
func (t *SymbolTable) DeclarationOf(node *sitter.Node) *sitter.Node {
	return t.SymbolOf(node).Declaration()
}

// UsesOf returns the reference sites of a symbol.
func (t *SymbolTable) UsesOf(sym *Symbol) []*sitter.Node { return sym.Uses() }

// WritesOf returns the writes of a symbol.
func (t *SymbolTable) WritesOf(sym *Symbol) []Write { return sym.Writes() }

// Content returns the source text of a node.
func (t *SymbolTable) Content(node *sitter.Node) string { return NodeContent(node, t.source) }

// -- header and type collection --

func (t *SymbolTable) collectHeader(root *sitter.Node) {
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				if path := FlattenName(child.NamedChild(j), t.source); path != nil {
					t.pkg = strings.Join(path, ".")
				}
			}
		case "import_declaration":
			t.collectImport(child)
		}
	}
}

func (t *SymbolTable) collectImport(node *sitter.Node) {
	static := false
	wildcard := false
	var path []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "static":
			static = true
		case "asterisk", "*":
			wildcard = true
		case "identifier", "scoped_identifier":
			path = FlattenName(child, t.source)
		}
	}
	if len(path) == 0 || wildcard {
		return
	}
	fqn := strings.Join(path, ".")
	simple := path[len(path)-1]
	if static {
		t.staticImports[simple] = fqn
		return
	}
	t.imports[simple] = fqn
}

func (t *SymbolTable) collectTypes(node *sitter.Node, outer string) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if KindOf(child) != KindTypeDecl {
			t.collectTypes(child, outer)
			continue
		}
		name := NodeContent(child.ChildByFieldName("name"), t.source)
		if name == "" {
			continue
		}
		qualified := outer + name
		fqn := qualified
		if t.pkg != "" {
			fqn = t.pkg + "." + qualified
		}
		if _, exists := t.declared[name]; !exists {
			t.declared[name] = fqn
		}
		t.typeNodes[KeyOf(child)] = fqn
		if body := child.ChildByFieldName("body"); body != nil {
			t.collectTypes(body, qualified+".")
		}
	}
}

// recordSupertypes runs during resolution, after imports and declarations
// are known, so extends/implements clauses resolve against both.
func (t *SymbolTable) recordSupertypes(decl *sitter.Node, fqn string) {
	var supers []string
	for i := 0; i < int(decl.NamedChildCount()); i++ {
		child := decl.NamedChild(i)
		switch child.Type() {
		case "superclass":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				supers = append(supers, t.ResolveTypeName(NodeContent(child.NamedChild(j), t.source)))
			}
		case "super_interfaces", "extends_interfaces":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				list := child.NamedChild(j)
				if list.Type() != "type_list" {
					supers = append(supers, t.ResolveTypeName(NodeContent(list, t.source)))
					continue
				}
				for k := 0; k < int(list.NamedChildCount()); k++ {
					supers = append(supers, t.ResolveTypeName(NodeContent(list.NamedChild(k), t.source)))
				}
			}
		}
	}
	if len(supers) > 0 {
		t.supertypes[fqn] = supers
	}
}

// -- resolution walk --

func (r *resolver) push(typeScope bool) {
	r.frames = append(r.frames, &frame{names: make(map[string]*Symbol), typeScope: typeScope})
}

func (r *resolver) pop() {
	r.frames = r.frames[:len(r.frames)-1]
}

func (r *resolver) lookup(name string) *Symbol {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if sym, ok := r.frames[i].names[name]; ok {
			return sym
		}
	}
	return nil
}

// lookupField resolves this.name against the innermost type scope only.
func (r *resolver) lookupField(name string) *Symbol {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if r.frames[i].typeScope {
			return r.frames[i].names[name]
		}
	}
	return nil
}

func (r *resolver) declare(nameNode *sitter.Node, kind SymbolKind, typeText string, final, static bool) *Symbol {
	if nameNode == nil {
		return nil
	}
	t := r.table
	sym := &Symbol{
		id:     len(t.symbols),
		Name:   NodeContent(nameNode, t.source),
		Kind:   kind,
		Final:  final,
		Static: static,
		decl:   nameNode,
	}
	if typeText != "" && typeText != "var" {
		sym.TypeName = t.ResolveTypeName(typeText)
	}
	t.symbols = append(t.symbols, sym)
	t.decls[KeyOf(nameNode)] = sym
	r.frames[len(r.frames)-1].names[sym.Name] = sym
	return sym
}

func (r *resolver) reference(node *sitter.Node, sym *Symbol) {
	if sym == nil {
		return
	}
	r.table.refs[KeyOf(node)] = sym
	sym.uses = append(sym.uses, node)
}

func (r *resolver) walkChildren(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		r.walk(node.NamedChild(i))
	}
}

func (r *resolver) walk(node *sitter.Node) {
	if node == nil || node.IsNull() {
		return
	}
	t := r.table

	switch node.Type() {
	case "package_declaration", "import_declaration", "line_comment", "block_comment",
		"marker_annotation", "annotation", "type_identifier", "scoped_type_identifier",
		"generic_type", "break_statement", "continue_statement":
		return

	case "class_declaration", "interface_declaration", "enum_declaration",
		"record_declaration", "annotation_type_declaration":
		r.walkTypeDecl(node)

	case "object_creation_expression":
		if outer := node.ChildByFieldName("object"); outer != nil {
			r.walk(outer)
		}
		r.walk(node.ChildByFieldName("arguments"))
		if body := AnonymousClassBody(node); body != nil {
			r.walkTypeBody(body, nil)
		}

	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		r.push(false)
		r.declareParameters(node.ChildByFieldName("parameters"))
		r.walk(node.ChildByFieldName("body"))
		r.pop()

	case "lambda_expression":
		r.push(false)
		r.declareLambdaParameters(node.ChildByFieldName("parameters"))
		r.walk(node.ChildByFieldName("body"))
		r.pop()

	case "block", "constructor_body", "switch_block", "switch_block_statement_group",
		"for_statement", "static_initializer":
		r.push(false)
		r.walkChildren(node)
		r.pop()

	case "enhanced_for_statement":
		r.walk(node.ChildByFieldName("value"))
		r.push(false)
		nameNode := node.ChildByFieldName("name")
		sym := r.declare(nameNode, SymbolLocal, NodeContent(node.ChildByFieldName("type"), t.source), hasModifier(node, "final", t.source), false)
		if sym != nil {
			sym.writes = append(sym.writes, Write{Node: node})
		}
		r.walk(node.ChildByFieldName("body"))
		r.pop()

	case "catch_clause":
		r.push(false)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			if child.Type() == "catch_formal_parameter" {
				nameNode := child.ChildByFieldName("name")
				if nameNode == nil {
					nameNode = lastNamedOfType(child, "identifier")
				}
				sym := r.declare(nameNode, SymbolParameter, "java.lang.Throwable", false, false)
				if sym != nil {
					sym.writes = append(sym.writes, Write{Node: child})
				}
				continue
			}
			r.walk(child)
		}
		r.pop()

	case "try_with_resources_statement":
		r.push(false)
		r.walkChildren(node)
		r.pop()

	case "resource":
		nameNode := node.ChildByFieldName("name")
		value := node.ChildByFieldName("value")
		if nameNode == nil {
			// Plain reference to an existing effectively final variable.
			r.walkChildren(node)
			return
		}
		r.walk(value)
		sym := r.declare(nameNode, SymbolLocal, NodeContent(node.ChildByFieldName("type"), t.source), true, false)
		if sym != nil {
			sym.writes = append(sym.writes, Write{Node: node, Value: value})
			r.inferType(sym, NodeContent(node.ChildByFieldName("type"), t.source), value)
		}

	case "local_variable_declaration":
		typeText := NodeContent(node.ChildByFieldName("type"), t.source)
		final := hasModifier(node, "final", t.source)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			decl := node.NamedChild(i)
			if decl.Type() != "variable_declarator" {
				continue
			}
			value := decl.ChildByFieldName("value")
			r.walk(value)
			sym := r.declare(decl.ChildByFieldName("name"), SymbolLocal, typeText+dimensionsOf(decl, t.source), final, false)
			if sym != nil && value != nil {
				sym.writes = append(sym.writes, Write{Node: decl, Value: value})
				r.inferType(sym, typeText, value)
			}
		}

	case "field_declaration":
		// Fields are declared up front by walkTypeBody; only initializers remain.
		for i := 0; i < int(node.NamedChildCount()); i++ {
			decl := node.NamedChild(i)
			if decl.Type() == "variable_declarator" {
				r.walk(decl.ChildByFieldName("value"))
			}
		}

	case "assignment_expression":
		left := Unparen(node.ChildByFieldName("left"))
		right := node.ChildByFieldName("right")
		r.walk(right)
		r.walk(left)
		if sym := t.SymbolOf(left); sym != nil {
			op := NodeContent(node.ChildByFieldName("operator"), t.source)
			w := Write{Node: node, Value: right, Compound: op != "" && op != "="}
			if w.Compound {
				w.Value = nil
			}
			sym.writes = append(sym.writes, w)
		}

	case "update_expression":
		r.walkChildren(node)
		for i := 0; i < int(node.NamedChildCount()); i++ {
			if sym := t.SymbolOf(node.NamedChild(i)); sym != nil {
				sym.writes = append(sym.writes, Write{Node: node, Compound: true})
			}
		}

	case "identifier":
		r.reference(node, r.lookup(NodeContent(node, t.source)))

	case "field_access":
		object := node.ChildByFieldName("object")
		field := node.ChildByFieldName("field")
		if object != nil && object.Type() == "this" && field != nil && field.Type() == "identifier" {
			r.reference(node, r.lookupField(NodeContent(field, t.source)))
			return
		}
		r.walk(object)

	case "method_invocation":
		r.walk(node.ChildByFieldName("object"))
		r.walk(node.ChildByFieldName("arguments"))

	case "method_reference":
		if node.NamedChildCount() > 0 {
			r.walk(node.NamedChild(0))
		}

	case "labeled_statement":
		for i := 1; i < int(node.NamedChildCount()); i++ {
			r.walk(node.NamedChild(i))
		}

	default:
		r.walkChildren(node)
	}
}

func (r *resolver) walkTypeDecl(node *sitter.Node) {
	t := r.table
	fqn := t.typeNodes[KeyOf(node)]
	if fqn != "" {
		t.recordSupertypes(node, fqn)
	}
	body := node.ChildByFieldName("body")
	if body == nil {
		return
	}
	r.walkTypeBody(body, func() {
		// Record components behave like final fields.
		if node.Type() != "record_declaration" {
			return
		}
		params := node.ChildByFieldName("parameters")
		if params == nil {
			return
		}
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			sym := r.declare(p.ChildByFieldName("name"), SymbolField, NodeContent(p.ChildByFieldName("type"), t.source), true, false)
			if sym != nil {
				sym.writes = append(sym.writes, Write{Node: p})
			}
		}
	})
	if fqn != "" {
		r.registerStaticConstants(fqn)
	}
}

// walkTypeBody opens a type scope, declares all fields up front (forward
// references from methods are legal), then resolves the members.
func (r *resolver) walkTypeBody(body *sitter.Node, extra func()) {
	r.push(true)
	if extra != nil {
		extra()
	}
	r.declareFields(body)
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		if child.Type() == "enum_body_declarations" {
			r.walkChildren(child)
			continue
		}
		r.walk(child)
	}
	r.pop()
}

func (r *resolver) declareFields(body *sitter.Node) {
	t := r.table
	for i := 0; i < int(body.NamedChildCount()); i++ {
		child := body.NamedChild(i)
		switch child.Type() {
		case "enum_body_declarations":
			r.declareFields(child)
		case "enum_constant":
			sym := r.declare(child.ChildByFieldName("name"), SymbolField, "", true, true)
			if sym != nil {
				sym.writes = append(sym.writes, Write{Node: child})
			}
		case "field_declaration", "constant_declaration":
			typeText := NodeContent(child.ChildByFieldName("type"), t.source)
			final := hasModifier(child, "final", t.source) || child.Type() == "constant_declaration"
			static := hasModifier(child, "static", t.source) || child.Type() == "constant_declaration"
			for j := 0; j < int(child.NamedChildCount()); j++ {
				decl := child.NamedChild(j)
				if decl.Type() != "variable_declarator" {
					continue
				}
				value := decl.ChildByFieldName("value")
				sym := r.declare(decl.ChildByFieldName("name"), SymbolField, typeText+dimensionsOf(decl, t.source), final, static)
				if sym != nil && value != nil {
					sym.writes = append(sym.writes, Write{Node: decl, Value: value})
				}
			}
		}
	}
}

// registerStaticConstants makes Type.NAME references to static final fields
// of unit-declared types resolvable by qualified name.
func (r *resolver) registerStaticConstants(fqn string) {
	for _, sym := range r.table.symbols {
		if sym.Kind == SymbolField && sym.Static && sym.Final {
			key := fqn + "." + sym.Name
			if _, exists := r.table.staticConst[key]; !exists && r.ownedBy(sym, fqn) {
				r.table.staticConst[key] = sym
			}
		}
	}
}

func (r *resolver) ownedBy(sym *Symbol, fqn string) bool {
	return r.table.EnclosingTypeName(sym.decl) == fqn
}

func (r *resolver) declareParameters(params *sitter.Node) {
	if params == nil {
		return
	}
	t := r.table
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "formal_parameter":
			sym := r.declare(p.ChildByFieldName("name"), SymbolParameter, NodeContent(p.ChildByFieldName("type"), t.source)+dimensionsOf(p, t.source), hasModifier(p, "final", t.source), false)
			if sym != nil {
				sym.writes = append(sym.writes, Write{Node: p})
			}
		case "spread_parameter":
			nameNode := lastNamedOfType(p, "variable_declarator")
			if nameNode != nil {
				nameNode = nameNode.ChildByFieldName("name")
			} else {
				nameNode = lastNamedOfType(p, "identifier")
			}
			typeNode := firstNamedChild(p)
			typeText := ""
			if typeNode != nil && typeNode.Type() != "modifiers" {
				typeText = NodeContent(typeNode, t.source) + "[]"
			}
			sym := r.declare(nameNode, SymbolParameter, typeText, false, false)
			if sym != nil {
				sym.writes = append(sym.writes, Write{Node: p})
			}
		}
	}
}

func (r *resolver) declareLambdaParameters(params *sitter.Node) {
	if params == nil {
		return
	}
	switch params.Type() {
	case "identifier":
		if sym := r.declare(params, SymbolParameter, "", false, false); sym != nil {
			sym.writes = append(sym.writes, Write{Node: params})
		}
	case "inferred_parameters":
		for i := 0; i < int(params.NamedChildCount()); i++ {
			p := params.NamedChild(i)
			if sym := r.declare(p, SymbolParameter, "", false, false); sym != nil {
				sym.writes = append(sym.writes, Write{Node: p})
			}
		}
	default:
		r.declareParameters(params)
	}
}

func (r *resolver) inferType(sym *Symbol, typeText string, value *sitter.Node) {
	if typeText != "var" || value == nil {
		return
	}
	sym.TypeName = r.table.TypeOf(value)
}

func hasModifier(node *sitter.Node, modifier string, source []byte) bool {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			if NodeContent(child.Child(j), source) == modifier {
				return true
			}
		}
	}
	return false
}

func dimensionsOf(node *sitter.Node, source []byte) string {
	dims := node.ChildByFieldName("dimensions")
	if dims == nil {
		return ""
	}
	return strings.ReplaceAll(NodeContent(dims, source), " ", "")
}

func lastNamedOfType(node *sitter.Node, typ string) *sitter.Node {
	var found *sitter.Node
	for i := 0; i < int(node.NamedChildCount()); i++ {
		if child := node.NamedChild(i); child.Type() == typ {
			found = child
		}
	}
	return found
}
