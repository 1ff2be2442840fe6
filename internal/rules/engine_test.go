package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeatlas/codeatlas/internal/index"
)

func writeRules(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func complexFile() *index.SourceFile {
	return &index.SourceFile{
		Path: "src/app.py",
		Complexity: []index.Complexity{
			{Function: "a", Complexity: 10},
			{Function: "b", Complexity: 14},
		},
		Raw:          index.RawMetrics{LOC: 600, Comments: 3},
		CommentRatio: 0.005,
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("ValidConfig", func(t *testing.T) {
		path := writeRules(t, `
metrics:
  max_complexity: 8
actions:
  - id: too-complex
    condition: complexity > max_complexity
    message: Average complexity too high
    action: refactor
`)
		engine, err := Load(path)
		require.NoError(t, err)
		require.NotNil(t, engine)

		violations := engine.Evaluate(complexFile())
		require.Len(t, violations, 1)
		assert.Equal(t, "too-complex", violations[0].ID)
		assert.Equal(t, "src/app.py", violations[0].File)
		assert.Equal(t, "refactor", violations[0].Action)
	})

	t.Run("MissingFileIsFatal", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("UnparsableYAMLIsFatal", func(t *testing.T) {
		path := writeRules(t, "metrics: [unclosed\n")
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestEngineEvaluate(t *testing.T) {
	t.Parallel()

	t.Run("MeanComplexityBinding", func(t *testing.T) {
		engine := NewEngine(Config{
			Actions: []Rule{
				{ID: "mean-is-five", Condition: "complexity == 5", Message: "m"},
			},
		})

		file := &index.SourceFile{
			Path: "a.py",
			Complexity: []index.Complexity{
				{Function: "x", Complexity: 4},
				{Function: "y", Complexity: 6},
			},
		}
		assert.Len(t, engine.Evaluate(file), 1)
	})

	t.Run("NoFunctionsScoreZero", func(t *testing.T) {
		engine := NewEngine(Config{
			Actions: []Rule{
				{ID: "zero", Condition: "complexity == 0", Message: "m"},
			},
		})
		assert.Len(t, engine.Evaluate(&index.SourceFile{Path: "a.py"}), 1)
	})

	t.Run("DefaultThresholds", func(t *testing.T) {
		engine := NewEngine(Config{
			Actions: []Rule{
				{ID: "long", Condition: "loc > max_loc", Message: "m"},
				{ID: "sparse", Condition: "comment_ratio < min_comment_ratio", Message: "m"},
				{ID: "complex", Condition: "complexity > max_complexity", Message: "m"},
			},
		})

		violations := engine.Evaluate(complexFile())
		ids := make([]string, 0, len(violations))
		for _, v := range violations {
			ids = append(ids, v.ID)
		}
		// loc 600 > 500, ratio 0.005 < 0.1, mean 12 > 10. Order follows
		// the config.
		assert.Equal(t, []string{"long", "sparse", "complex"}, ids)
	})

	t.Run("MetricsOverrideDefaults", func(t *testing.T) {
		engine := NewEngine(Config{
			Metrics: map[string]float64{"max_loc": 1000},
			Actions: []Rule{
				{ID: "long", Condition: "loc > max_loc", Message: "m"},
			},
		})
		assert.Empty(t, engine.Evaluate(complexFile()))
	})

	t.Run("EvalErrorNeverTriggers", func(t *testing.T) {
		engine := NewEngine(Config{
			Actions: []Rule{
				{ID: "bad-name", Condition: "undefined_var > 1", Message: "m"},
				{ID: "bad-syntax", Condition: "loc >", Message: "m"},
				{ID: "non-boolean", Condition: "loc + 1", Message: "m"},
				{ID: "good", Condition: "loc > 0", Message: "m"},
			},
		})

		violations := engine.Evaluate(complexFile())
		require.Len(t, violations, 1)
		assert.Equal(t, "good", violations[0].ID)
	})

	t.Run("EvaluateAllConcatenatesInFileOrder", func(t *testing.T) {
		engine := NewEngine(Config{
			Actions: []Rule{
				{ID: "any", Condition: "loc >= 0", Message: "m"},
			},
		})

		files := []index.SourceFile{{Path: "a.py"}, {Path: "b.py"}}
		violations := engine.EvaluateAll(files)
		require.Len(t, violations, 2)
		assert.Equal(t, "a.py", violations[0].File)
		assert.Equal(t, "b.py", violations[1].File)
	})
}
