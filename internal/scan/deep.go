package scan

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/codeatlas/codeatlas/internal/extract"
	"github.com/codeatlas/codeatlas/internal/index"
)

// typeCheckTimeout bounds one external type-checker invocation.
const typeCheckTimeout = 10 * time.Second

// DeepAnalyze produces the optional deep-analysis block for a file: an
// approximate intraprocedural call graph plus type-checking results from
// an external analyzer. The analyzer is a black box; any failure degrades
// to zero results rather than aborting the scan.
func DeepAnalyze(absPath string, src []byte, ex extract.Extractor) *index.DeepAnalysis {
	deep := &index.DeepAnalysis{
		CallGraph: ex.CallGraph(src),
	}

	if ex.Language() == "python" {
		deep.TypeCoverage, deep.TypeErrors = runTypeChecker(absPath, src)
	}

	return deep
}

// runTypeChecker invokes mypy on one file and derives an error count and a
// rough coverage estimate: 1.0 on a clean exit, otherwise scaled down by
// error density over non-blank lines.
func runTypeChecker(absPath string, src []byte) (coverage float64, errors int) {
	if _, err := exec.LookPath("mypy"); err != nil {
		return 0.0, 0
	}

	ctx, cancel := context.WithTimeout(context.Background(), typeCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "mypy", absPath, "--show-error-codes", "--no-error-summary")
	out, err := cmd.Output()

	errors = strings.Count(string(out), "error:")
	if err == nil {
		return 1.0, errors
	}

	loc := 0
	for _, line := range strings.Split(string(src), "\n") {
		if strings.TrimSpace(line) != "" {
			loc++
		}
	}
	if loc == 0 {
		return 0.0, errors
	}

	ratio := float64(errors) / float64(loc)
	if ratio > 1.0 {
		ratio = 1.0
	}
	coverage = 1.0 - ratio
	if coverage < 0.0 {
		coverage = 0.0
	}
	return coverage, errors
}
