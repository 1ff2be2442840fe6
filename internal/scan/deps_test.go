package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pyEntry(relPath, content string) FileEntry {
	return FileEntry{
		RelPath:  relPath,
		Language: "python",
		Content:  []byte(content),
	}
}

func TestBuildDependencies(t *testing.T) {
	t.Parallel()

	t.Run("DottedImportResolvesToPath", func(t *testing.T) {
		entries := []FileEntry{
			pyEntry("pkg/mod.py", "x = 1\n"),
			pyEntry("app.py", "import pkg.mod\n"),
		}

		deps := BuildDependencies(entries)

		require.Contains(t, deps, "pkg/mod.py")
		assert.Equal(t, []string{"app.py"}, deps["pkg/mod.py"].ImportedBy)
		assert.Equal(t, []string{"pkg.mod"}, deps["app.py"].Imports)
	})

	t.Run("SubstringMatch", func(t *testing.T) {
		entries := []FileEntry{
			pyEntry("src/utils.py", "x = 1\n"),
			pyEntry("main.py", "import utils\n"),
		}

		deps := BuildDependencies(entries)
		assert.Equal(t, []string{"main.py"}, deps["src/utils.py"].ImportedBy)
	})

	t.Run("UnresolvedImportKeptInImports", func(t *testing.T) {
		entries := []FileEntry{
			pyEntry("app.py", "import requests\n"),
		}

		deps := BuildDependencies(entries)
		assert.Equal(t, []string{"requests"}, deps["app.py"].Imports)
		assert.Empty(t, deps["app.py"].ImportedBy)
	})

	t.Run("EveryFileGetsAnEdge", func(t *testing.T) {
		entries := []FileEntry{
			pyEntry("lonely.py", "x = 1\n"),
		}

		deps := BuildDependencies(entries)
		require.Contains(t, deps, "lonely.py")
		assert.NotNil(t, deps["lonely.py"].Imports)
		assert.NotNil(t, deps["lonely.py"].ImportedBy)
	})

	t.Run("MalformedFileHasEmptyImports", func(t *testing.T) {
		entries := []FileEntry{
			pyEntry("broken.py", "def broken(:\n"),
		}

		deps := BuildDependencies(entries)
		assert.Empty(t, deps["broken.py"].Imports)
	})
}

func TestResolvesTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		target    string
		candidate string
		want      bool
	}{
		{"pkg.mod", "pkg/mod.py", true},
		{"utils", "src/utils.py", true},
		{"app", "app.py", true},
		{"mod", "pkg/mod.py", true},
		{"other", "pkg/mod.py", false},
		{"pkg.mod", "pkg/other.py", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, resolvesTo(tt.target, tt.candidate),
			"resolvesTo(%q, %q)", tt.target, tt.candidate)
	}
}
