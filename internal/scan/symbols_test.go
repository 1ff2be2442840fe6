package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeatlas/codeatlas/internal/index"
)

func TestBuildSymbolIndex(t *testing.T) {
	t.Parallel()

	files := []index.SourceFile{
		{
			Path: "a.py",
			Entities: []index.Entity{
				{Type: index.EntityFunction, Name: "run", Lineno: 3},
				{Type: index.EntityClass, Name: "App", Lineno: 10},
			},
		},
		{
			Path: "b.py",
			Entities: []index.Entity{
				{Type: index.EntityFunction, Name: "run", Lineno: 7},
			},
		},
	}

	symbols := BuildSymbolIndex(files)

	assert.Equal(t, "a.py:10", symbols["App"])
	// Later file wins on collision.
	assert.Equal(t, "b.py:7", symbols["run"])
	assert.Len(t, symbols, 2)
}

func TestBuildSymbolIndexEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, BuildSymbolIndex(nil))
	assert.NotNil(t, BuildSymbolIndex(nil))
}
