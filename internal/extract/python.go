package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/codeatlas/codeatlas/internal/index"
)

// PythonExtractor parses Python source with tree-sitter.
type PythonExtractor struct{}

// NewPythonExtractor creates a Python extractor.
func NewPythonExtractor() *PythonExtractor {
	return &PythonExtractor{}
}

// Language returns the language this extractor handles.
func (e *PythonExtractor) Language() string {
	return "python"
}

// Node types contributing one decision point each to cyclomatic complexity.
var pythonDecisionTypes = map[string]bool{
	"if_statement":             true,
	"elif_clause":              true,
	"for_statement":            true,
	"while_statement":          true,
	"except_clause":            true,
	"boolean_operator":         true,
	"conditional_expression":   true,
	"list_comprehension":       true,
	"dictionary_comprehension": true,
	"set_comprehension":        true,
	"generator_expression":     true,
}

// parse returns the root node, or an error for unparseable input.
// tree-sitter is error-tolerant, so a tree containing ERROR or missing
// nodes is reported as a syntax error with the first offending line.
func (e *PythonExtractor) parse(src []byte) (*sitter.Tree, *sitter.Node, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing source: %w", err)
	}

	root := tree.RootNode()
	if root.HasError() {
		line := firstErrorLine(root)
		tree.Close()
		return nil, nil, fmt.Errorf("SyntaxError: invalid syntax at line %d", line)
	}

	return tree, root, nil
}

// firstErrorLine finds the 1-based line of the first ERROR or missing node.
func firstErrorLine(root *sitter.Node) int {
	line := int(root.StartPoint().Row) + 1
	var walk func(n *sitter.Node) bool
	walk = func(n *sitter.Node) bool {
		if n.Type() == "ERROR" || n.IsMissing() {
			line = int(n.StartPoint().Row) + 1
			return true
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			if walk(n.Child(i)) {
				return true
			}
		}
		return false
	}
	walk(root)
	return line
}

// Extract returns top-level entities and per-function complexity.
func (e *PythonExtractor) Extract(src []byte) (*Structure, error) {
	tree, root, err := e.parse(src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	st := &Structure{
		Entities:   []index.Entity{},
		Complexity: []index.Complexity{},
	}

	// Top-level declarations only. Decorated definitions wrap the real
	// class/function node.
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := unwrapDecorated(root.NamedChild(i))
		switch node.Type() {
		case "class_definition":
			st.Entities = append(st.Entities, e.classEntity(node, src))
		case "function_definition":
			st.Entities = append(st.Entities, e.functionEntity(node, src))
		}
	}

	collectPythonComplexity(root, src, &st.Complexity)

	return st, nil
}

// unwrapDecorated returns the definition inside a decorated_definition,
// or the node itself.
func unwrapDecorated(node *sitter.Node) *sitter.Node {
	if node.Type() == "decorated_definition" {
		if def := node.ChildByFieldName("definition"); def != nil {
			return def
		}
	}
	return node
}

func (e *PythonExtractor) classEntity(node *sitter.Node, src []byte) index.Entity {
	ent := index.Entity{
		Type:      index.EntityClass,
		Lineno:    int(node.StartPoint().Row) + 1,
		EndLineno: int(node.EndPoint().Row) + 1,
		Methods:   []string{},
		Bases:     []string{},
	}
	if name := node.ChildByFieldName("name"); name != nil {
		ent.Name = nodeText(name, src)
	}
	ent.Docstring = blockDocstring(node.ChildByFieldName("body"), src)

	// Base expressions, skipping keyword arguments (metaclass=... etc).
	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := 0; i < int(supers.NamedChildCount()); i++ {
			arg := supers.NamedChild(i)
			if arg.Type() == "keyword_argument" {
				continue
			}
			ent.Bases = append(ent.Bases, nodeText(arg, src))
		}
	}

	// Direct methods only, one level; nested defs are not walked.
	if body := node.ChildByFieldName("body"); body != nil {
		for i := 0; i < int(body.NamedChildCount()); i++ {
			member := unwrapDecorated(body.NamedChild(i))
			if member.Type() == "function_definition" {
				if name := member.ChildByFieldName("name"); name != nil {
					ent.Methods = append(ent.Methods, nodeText(name, src))
				}
			}
		}
	}

	return ent
}

func (e *PythonExtractor) functionEntity(node *sitter.Node, src []byte) index.Entity {
	kind := index.EntityFunction
	if isAsyncDef(node) {
		kind = index.EntityAsyncFunction
	}
	ent := index.Entity{
		Type:      kind,
		Lineno:    int(node.StartPoint().Row) + 1,
		EndLineno: int(node.EndPoint().Row) + 1,
	}
	if name := node.ChildByFieldName("name"); name != nil {
		ent.Name = nodeText(name, src)
	}
	ent.Docstring = blockDocstring(node.ChildByFieldName("body"), src)
	return ent
}

// isAsyncDef reports whether a function_definition carries the async keyword.
func isAsyncDef(node *sitter.Node) bool {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "async" {
			return true
		}
		if child.Type() == "def" {
			break
		}
	}
	return false
}

// blockDocstring returns the docstring of a class or function body, or nil.
func blockDocstring(body *sitter.Node, src []byte) *string {
	if body == nil || body.NamedChildCount() == 0 {
		return nil
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return nil
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return nil
	}
	doc := cleanDocstring(nodeText(str, src))
	return &doc
}

// cleanDocstring strips string prefixes, quote delimiters, and surrounding
// whitespace from a docstring literal.
func cleanDocstring(raw string) string {
	s := strings.TrimLeft(raw, "rRbBuUfF")
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}

// collectPythonComplexity appends a measurement for every function
// definition in the tree, methods and nested functions included.
func collectPythonComplexity(node *sitter.Node, src []byte, out *[]index.Complexity) {
	if node.Type() == "function_definition" {
		name := ""
		if n := node.ChildByFieldName("name"); n != nil {
			name = nodeText(n, src)
		}
		*out = append(*out, index.Complexity{
			Function:   name,
			Complexity: pythonComplexity(node.ChildByFieldName("body")),
			Lineno:     int(node.StartPoint().Row) + 1,
		})
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		collectPythonComplexity(node.NamedChild(i), src, out)
	}
}

// pythonComplexity counts decision points + 1 within a function body,
// without descending into nested function definitions (those are measured
// on their own).
func pythonComplexity(body *sitter.Node) int {
	count := 1
	if body == nil {
		return count
	}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if child.Type() == "function_definition" {
				continue
			}
			if pythonDecisionTypes[child.Type()] {
				count++
			}
			walk(child)
		}
	}
	walk(body)
	return count
}

// Imports returns the dotted module names referenced by import statements.
// Both plain imports and from-imports count; only the module name is kept,
// not imported symbol names.
func (e *PythonExtractor) Imports(src []byte) []string {
	tree, root, err := e.parse(src)
	if err != nil {
		return []string{}
	}
	defer tree.Close()

	imports := []string{}
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				switch child.Type() {
				case "dotted_name":
					imports = append(imports, nodeText(child, src))
				case "aliased_import":
					if name := child.ChildByFieldName("name"); name != nil {
						imports = append(imports, nodeText(name, src))
					}
				}
			}
		case "import_from_statement":
			if module := n.ChildByFieldName("module_name"); module != nil {
				switch module.Type() {
				case "dotted_name":
					imports = append(imports, nodeText(module, src))
				case "relative_import":
					// "from .mod import x" keeps "mod"; "from . import x"
					// names no module and is skipped.
					for i := 0; i < int(module.NamedChildCount()); i++ {
						if module.NamedChild(i).Type() == "dotted_name" {
							imports = append(imports, nodeText(module.NamedChild(i), src))
						}
					}
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)

	return imports
}

// CallGraph maps each function to the names it calls. Every function gets
// an entry, even with no calls; same-named functions share one entry.
func (e *PythonExtractor) CallGraph(src []byte) map[string][]string {
	calls := map[string][]string{}

	tree, root, err := e.parse(src)
	if err != nil {
		return calls
	}
	defer tree.Close()

	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_definition":
			if name := n.ChildByFieldName("name"); name != nil {
				fn := nodeText(name, src)
				if _, ok := calls[fn]; !ok {
					calls[fn] = []string{}
				}
			}
		case "call":
			if fn := enclosingFunctionName(n, src); fn != "" {
				if called := calledName(n, src); called != "" {
					calls[fn] = appendUnique(calls[fn], called)
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)

	return calls
}

// enclosingFunctionName walks up to the nearest function_definition.
func enclosingFunctionName(node *sitter.Node, src []byte) string {
	for cur := node.Parent(); cur != nil; cur = cur.Parent() {
		if cur.Type() == "function_definition" {
			if name := cur.ChildByFieldName("name"); name != nil {
				return nodeText(name, src)
			}
			return ""
		}
	}
	return ""
}

// calledName extracts the called name from a call node: the identifier for
// plain calls, the attribute name for method calls.
func calledName(call *sitter.Node, src []byte) string {
	fn := call.ChildByFieldName("function")
	if fn == nil {
		return ""
	}
	switch fn.Type() {
	case "identifier":
		return nodeText(fn, src)
	case "attribute":
		if attr := fn.ChildByFieldName("attribute"); attr != nil {
			return nodeText(attr, src)
		}
	}
	return ""
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

// RawMetrics computes line metrics for Python source.
func (e *PythonExtractor) RawMetrics(src []byte) index.RawMetrics {
	return pythonRawMetrics(src)
}

// HasTests checks the src/ -> tests/test_ path convention: a file under a
// src/ directory has tests when the rewritten candidate path exists.
func (e *PythonExtractor) HasTests(root, relPath string) bool {
	full := filepath.ToSlash(filepath.Join(root, relPath))
	candidate := strings.ReplaceAll(full, "src/", "tests/test_")
	if candidate == full {
		return false
	}
	_, err := os.Stat(filepath.FromSlash(candidate))
	return err == nil
}

// nodeText returns the source text of a tree-sitter node.
func nodeText(node *sitter.Node, src []byte) string {
	return string(src[node.StartByte():node.EndByte()])
}
