// Filename: java/parser.go
package java

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"go.uber.org/zap"
)

// Unit is one parsed Java compilation unit with its symbol facts. The Tree is
// owned by the Unit; call Close when done with it.
type Unit struct {
	Filename  string
	Source    []byte
	Tree      *sitter.Tree
	Root      *sitter.Node
	Symbols   *SymbolTable
	HasErrors bool
}

// Close releases the syntax tree.
func (u *Unit) Close() {
	if u != nil && u.Tree != nil {
		u.Tree.Close()
		u.Tree = nil
	}
}

// Location formats the position of a node within the unit.
func (u *Unit) Location(node *sitter.Node) LocationInfo {
	return FormatLocation(u.Filename, node, u.Source)
}

// Parser turns Java source into Units. A Parser wraps a tree-sitter parser and
// is not safe for concurrent use; create one per goroutine.
type Parser struct {
	logger *zap.Logger
	hints  *TypeHints
	parser *sitter.Parser
}

// NewParser creates a Java parser. hints may be nil.
func NewParser(logger *zap.Logger, hints *TypeHints) *Parser {
	if hints == nil {
		hints = PlatformHints()
	}
	p := sitter.NewParser()
	p.SetLanguage(java.GetLanguage())
	return &Parser{
		logger: logger.Named("java_parser"),
		hints:  hints,
		parser: p,
	}
}

// Parse parses a single unit and builds its symbol table. Syntax errors do
// not fail the parse: tree-sitter recovers and the unit is still analyzed.
func (p *Parser) Parse(ctx context.Context, filename string, source []byte) (*Unit, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("tree-sitter failed to parse %s: %w", filename, err)
	}
	root := tree.RootNode()
	unit := &Unit{
		Filename:  filename,
		Source:    source,
		Tree:      tree,
		Root:      root,
		HasErrors: root.HasError(),
	}
	if unit.HasErrors {
		p.logger.Warn("Tree-sitter detected syntax errors; analysis may be incomplete", zap.String("file", filename))
	}
	unit.Symbols = BuildSymbolTable(root, source, p.hints)
	p.logger.Debug("Parsed compilation unit",
		zap.String("file", filename),
		zap.Int("size_bytes", len(source)),
		zap.Int("symbols", len(unit.Symbols.Symbols())),
	)
	return unit, nil
}

// Close releases the underlying tree-sitter parser.
func (p *Parser) Close() {
	if p.parser != nil {
		p.parser.Close()
	}
}
