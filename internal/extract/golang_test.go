package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/codeatlas/internal/index"
)

func TestGoExtractor_Extract(t *testing.T) {
	t.Parallel()

	ex := NewGoExtractor()

	t.Run("StructWithMethods", func(t *testing.T) {
		src := []byte(`package demo

// Server handles requests.
type Server struct {
	Base
	addr string
}

func (s *Server) Start() error { return nil }

func (s *Server) Stop() {}
`)
		st, err := ex.Extract(src)
		require.NoError(t, err)
		require.Len(t, st.Entities, 1)

		ent := st.Entities[0]
		assert.Equal(t, index.EntityClass, ent.Type)
		assert.Equal(t, "Server", ent.Name)
		assert.Equal(t, []string{"Start", "Stop"}, ent.Methods)
		assert.Equal(t, []string{"Base"}, ent.Bases)
		require.NotNil(t, ent.Docstring)
		assert.Equal(t, "Server handles requests.", *ent.Docstring)
	})

	t.Run("InterfaceEmbeds", func(t *testing.T) {
		src := []byte(`package demo

import "io"

type ReadCloser interface {
	io.Reader
	Close() error
}
`)
		st, err := ex.Extract(src)
		require.NoError(t, err)
		require.Len(t, st.Entities, 1)
		assert.Equal(t, []string{"io.Reader"}, st.Entities[0].Bases)
	})

	t.Run("PlainFunction", func(t *testing.T) {
		src := []byte(`package demo

func Add(a, b int) int {
	return a + b
}
`)
		st, err := ex.Extract(src)
		require.NoError(t, err)
		require.Len(t, st.Entities, 1)
		assert.Equal(t, index.EntityFunction, st.Entities[0].Type)
		assert.Equal(t, "Add", st.Entities[0].Name)
		assert.Nil(t, st.Entities[0].Docstring)
	})

	t.Run("ComplexityFromBranches", func(t *testing.T) {
		src := []byte(`package demo

func classify(n int) string {
	if n > 0 {
		return "pos"
	}
	if n < 0 {
		return "neg"
	}
	return "zero"
}
`)
		st, err := ex.Extract(src)
		require.NoError(t, err)
		require.Len(t, st.Complexity, 1)
		assert.Equal(t, "classify", st.Complexity[0].Function)
		assert.Equal(t, 3, st.Complexity[0].Complexity)
	})

	t.Run("SyntaxError", func(t *testing.T) {
		_, err := ex.Extract([]byte("package demo\n\nfunc broken( {\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SyntaxError")
	})
}

func TestGoExtractor_Imports(t *testing.T) {
	t.Parallel()

	ex := NewGoExtractor()
	src := []byte(`package demo

import (
	"fmt"
	"net/http"
)

var _ = fmt.Sprint
var _ = http.Get
`)
	assert.Equal(t, []string{"fmt", "net/http"}, ex.Imports(src))
}

func TestGoExtractor_CallGraph(t *testing.T) {
	t.Parallel()

	ex := NewGoExtractor()
	src := []byte(`package demo

import "fmt"

func helper() {}

func run() {
	helper()
	fmt.Println("x")
}
`)
	calls := ex.CallGraph(src)
	require.Contains(t, calls, "run")
	assert.Equal(t, []string{"helper", "Println"}, calls["run"])
	assert.Empty(t, calls["helper"])
}

func TestGoExtractor_HasTests(t *testing.T) {
	t.Parallel()

	ex := NewGoExtractor()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "server.go"), []byte("package demo\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "server_test.go"), []byte("package demo\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "client.go"), []byte("package demo\n"), 0o644))

	assert.True(t, ex.HasTests(root, "server.go"))
	assert.False(t, ex.HasTests(root, "client.go"))
	assert.False(t, ex.HasTests(root, "server_test.go"))
}

func TestLanguageForPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "python", LanguageForPath("src/app.py"))
	assert.Equal(t, "go", LanguageForPath("main.go"))
	assert.Equal(t, "", LanguageForPath("README.md"))

	assert.NotNil(t, ForPath("a.py"))
	assert.NotNil(t, ForPath("a.go"))
	assert.Nil(t, ForPath("a.txt"))
}
