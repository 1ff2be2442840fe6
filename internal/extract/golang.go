package extract

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/scanner"
	"go/token"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fzipp/gocyclo"

	"github.com/codeatlas/codeatlas/internal/index"
)

// GoExtractor parses Go source with go/ast and measures complexity with
// gocyclo.
type GoExtractor struct{}

// NewGoExtractor creates a Go extractor.
func NewGoExtractor() *GoExtractor {
	return &GoExtractor{}
}

// Language returns the language this extractor handles.
func (e *GoExtractor) Language() string {
	return "go"
}

func (e *GoExtractor) parse(src []byte) (*token.FileSet, *ast.File, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.ParseComments)
	if err != nil {
		if list, ok := err.(scanner.ErrorList); ok && len(list) > 0 {
			return nil, nil, fmt.Errorf("SyntaxError: %s at line %d", list[0].Msg, list[0].Pos.Line)
		}
		return nil, nil, fmt.Errorf("SyntaxError: %v", err)
	}
	return fset, f, nil
}

// Extract returns top-level entities and per-function complexity.
// Struct and interface type declarations map to class entities; their
// methods are the receiver functions declared in the same file.
func (e *GoExtractor) Extract(src []byte) (*Structure, error) {
	fset, f, err := e.parse(src)
	if err != nil {
		return nil, err
	}

	st := &Structure{
		Entities:   []index.Entity{},
		Complexity: []index.Complexity{},
	}

	methods := map[string][]string{}
	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || len(fn.Recv.List) == 0 {
			continue
		}
		if recv := receiverTypeName(fn.Recv.List[0].Type); recv != "" {
			methods[recv] = append(methods[recv], fn.Name.Name)
		}
	}

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				ent, ok := e.typeEntity(fset, d, ts, methods)
				if ok {
					st.Entities = append(st.Entities, ent)
				}
			}
		case *ast.FuncDecl:
			if d.Recv != nil {
				continue
			}
			st.Entities = append(st.Entities, index.Entity{
				Type:      index.EntityFunction,
				Name:      d.Name.Name,
				Lineno:    fset.Position(d.Pos()).Line,
				EndLineno: fset.Position(d.End()).Line,
				Docstring: docText(d.Doc),
			})
		}
	}

	for _, stat := range gocyclo.AnalyzeASTFile(f, fset, nil) {
		st.Complexity = append(st.Complexity, index.Complexity{
			Function:   stat.FuncName,
			Complexity: stat.Complexity,
			Lineno:     stat.Pos.Line,
		})
	}

	return st, nil
}

func (e *GoExtractor) typeEntity(fset *token.FileSet, decl *ast.GenDecl, ts *ast.TypeSpec, methods map[string][]string) (index.Entity, bool) {
	var bases []string
	switch t := ts.Type.(type) {
	case *ast.StructType:
		for _, field := range t.Fields.List {
			if len(field.Names) == 0 {
				bases = append(bases, exprName(field.Type))
			}
		}
	case *ast.InterfaceType:
		for _, field := range t.Methods.List {
			if len(field.Names) == 0 {
				bases = append(bases, exprName(field.Type))
			}
		}
	default:
		return index.Entity{}, false
	}

	doc := ts.Doc
	if doc == nil {
		doc = decl.Doc
	}

	ms := methods[ts.Name.Name]
	if ms == nil {
		ms = []string{}
	}
	if bases == nil {
		bases = []string{}
	}

	return index.Entity{
		Type:      index.EntityClass,
		Name:      ts.Name.Name,
		Lineno:    fset.Position(ts.Pos()).Line,
		EndLineno: fset.Position(ts.End()).Line,
		Docstring: docText(doc),
		Methods:   ms,
		Bases:     bases,
	}, true
}

// receiverTypeName unwraps pointer and generic receivers to the type name.
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	default:
		return ""
	}
}

// exprName renders a type expression for base lists (Ident, pkg.Sel, *T).
func exprName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return exprName(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + exprName(t.X)
	case *ast.IndexExpr:
		return exprName(t.X)
	default:
		return ""
	}
}

func docText(group *ast.CommentGroup) *string {
	if group == nil {
		return nil
	}
	text := strings.TrimSpace(group.Text())
	if text == "" {
		return nil
	}
	return &text
}

// Imports returns the import paths declared in the file.
func (e *GoExtractor) Imports(src []byte) []string {
	_, f, err := e.parse(src)
	if err != nil {
		return []string{}
	}
	imports := []string{}
	for _, spec := range f.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		imports = append(imports, path)
	}
	return imports
}

// CallGraph maps each declared function to the names it calls.
func (e *GoExtractor) CallGraph(src []byte) map[string][]string {
	calls := map[string][]string{}

	_, f, err := e.parse(src)
	if err != nil {
		return calls
	}

	for _, decl := range f.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		name := fn.Name.Name
		if _, seen := calls[name]; !seen {
			calls[name] = []string{}
		}
		if fn.Body == nil {
			continue
		}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			switch fun := call.Fun.(type) {
			case *ast.Ident:
				calls[name] = appendUnique(calls[name], fun.Name)
			case *ast.SelectorExpr:
				calls[name] = appendUnique(calls[name], fun.Sel.Name)
			}
			return true
		})
	}

	return calls
}

// RawMetrics computes line metrics for Go source.
func (e *GoExtractor) RawMetrics(src []byte) index.RawMetrics {
	return goRawMetrics(src)
}

// HasTests checks for a sibling _test.go file.
func (e *GoExtractor) HasTests(root, relPath string) bool {
	if strings.HasSuffix(relPath, "_test.go") {
		return false
	}
	candidate := strings.TrimSuffix(relPath, ".go") + "_test.go"
	_, err := os.Stat(filepath.Join(root, filepath.FromSlash(candidate)))
	return err == nil
}
