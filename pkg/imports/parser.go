// Package imports extracts the import statements of Python sources and
// builds the project's import graph.
package imports

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// Import is one imported module reference. Module is the dotted name without
// the leading dots of a relative import, which are counted by Level. Names
// lists what a from-import binds, "*" for a wildcard.
type Import struct {
	Module string   `json:"module"`
	Names  []string `json:"names,omitempty"`
	IsFrom bool     `json:"is_from"`
	Level  int      `json:"level,omitempty"`
	Line   int      `json:"line"`
}

// IsRelative reports whether the import is resolved against the importing
// package rather than the search path.
func (i Import) IsRelative() bool {
	return i.Level > 0
}

// TopLevel returns the first component of the imported module.
func (i Import) TopLevel() string {
	if j := strings.IndexByte(i.Module, '.'); j >= 0 {
		return i.Module[:j]
	}
	return i.Module
}

// Parser parses Python import statements using tree-sitter. A Parser is not
// safe for concurrent use.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new Python import parser.
func NewParser() *Parser {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())
	return &Parser{parser: parser}
}

// Parse extracts every import statement of a Python source, including those
// nested in functions and conditionals.
func (p *Parser) Parse(ctx context.Context, content []byte) ([]Import, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing failed: %w", err)
	}
	if tree == nil {
		return nil, fmt.Errorf("parsing failed")
	}
	defer tree.Close()

	var imports []Import
	walkNode(tree.RootNode(), content, &imports)
	return imports, nil
}

func walkNode(node *sitter.Node, content []byte, imports *[]Import) {
	if node == nil {
		return
	}

	switch node.Type() {
	case "import_statement":
		*imports = append(*imports, parseImportStatement(node, content)...)
		return
	case "import_from_statement", "future_import_statement":
		if imp, ok := parseImportFrom(node, content); ok {
			*imports = append(*imports, imp)
		}
		return
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		walkNode(node.NamedChild(i), content, imports)
	}
}

// parseImportStatement turns "import a.b, c as d" into one Import per module.
func parseImportStatement(node *sitter.Node, content []byte) []Import {
	var out []Import
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.NamedChildCount()); i++ {
		name := moduleName(node.NamedChild(i), content)
		if name != "" {
			out = append(out, Import{Module: name, Line: line})
		}
	}
	return out
}

// parseImportFrom handles "from x import y", "from . import y" and
// "from __future__ import y".
func parseImportFrom(node *sitter.Node, content []byte) (Import, bool) {
	imp := Import{IsFrom: true, Line: int(node.StartPoint().Row) + 1}

	source := node.ChildByFieldName("module_name")
	switch {
	case node.Type() == "future_import_statement":
		imp.Module = "__future__"
	case source == nil:
		return imp, false
	case source.Type() == "relative_import":
		imp.Level, imp.Module = parseRelativeImport(source, content)
	default:
		imp.Module = source.Content(content)
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil || sameNode(child, source) {
			continue
		}
		switch child.Type() {
		case "wildcard_import":
			imp.Names = append(imp.Names, "*")
		case "dotted_name", "aliased_import":
			if name := moduleName(child, content); name != "" {
				imp.Names = append(imp.Names, name)
			}
		}
	}
	return imp, true
}

func sameNode(a, b *sitter.Node) bool {
	return b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// moduleName returns the dotted name of a dotted_name or aliased_import,
// ignoring the alias.
func moduleName(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}
	switch node.Type() {
	case "dotted_name":
		return node.Content(content)
	case "aliased_import":
		return moduleName(node.ChildByFieldName("name"), content)
	default:
		return ""
	}
}

// parseRelativeImport splits "..pkg.mod" into its level and module.
func parseRelativeImport(node *sitter.Node, content []byte) (int, string) {
	var level int
	var module string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "import_prefix":
			level = strings.Count(child.Content(content), ".")
		case "dotted_name":
			module = child.Content(content)
		}
	}
	return level, module
}
