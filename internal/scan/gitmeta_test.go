package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codeatlas/codeatlas/internal/index"
)

func TestFileGitMetaOutsideRepo(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n"})

	// No repository means every git call fails; the metadata degrades to
	// the zero value instead of failing the scan.
	assert.Equal(t, index.GitMeta{}, FileGitMeta(root, "a.py"))
}
