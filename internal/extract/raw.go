package extract

import (
	"strings"

	"github.com/codeatlas/codeatlas/internal/index"
)

// splitLines splits source into lines without counting a trailing newline
// as an extra line.
func splitLines(src []byte) []string {
	s := string(src)
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}

// pythonRawMetrics classifies each line as blank, comment, multi-line
// string, or source. This is a line-based approximation of token-level
// analysis: inline trailing comments count as source, and only
// triple-quoted blocks starting a line are tracked as multi.
func pythonRawMetrics(src []byte) index.RawMetrics {
	lines := splitLines(src)
	raw := index.RawMetrics{LOC: len(lines)}

	inMulti := false
	var delim string

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inMulti {
			raw.Multi++
			if strings.Contains(trimmed, delim) {
				inMulti = false
			}
			continue
		}

		if trimmed == "" {
			raw.Blank++
			continue
		}
		if strings.HasPrefix(trimmed, "#") {
			raw.Comments++
			continue
		}

		if d, rest, ok := tripleQuoteStart(trimmed); ok {
			raw.Multi++
			if !strings.Contains(rest, d) {
				inMulti = true
				delim = d
			}
			continue
		}

		raw.SLOC++
	}

	return raw
}

// tripleQuoteStart reports whether a line opens a triple-quoted string,
// returning the delimiter and the remainder after it. String prefixes
// (r, b, f, u) are tolerated.
func tripleQuoteStart(trimmed string) (delim, rest string, ok bool) {
	s := strings.TrimLeft(trimmed, "rRbBuUfF")
	for _, d := range []string{`"""`, "'''"} {
		if strings.HasPrefix(s, d) {
			return d, s[len(d):], true
		}
	}
	return "", "", false
}

// goRawMetrics classifies Go source lines. Lines inside block comments
// count as comments; multi is always zero for Go.
func goRawMetrics(src []byte) index.RawMetrics {
	lines := splitLines(src)
	raw := index.RawMetrics{LOC: len(lines)}

	inBlock := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if inBlock {
			raw.Comments++
			if strings.Contains(trimmed, "*/") {
				inBlock = false
			}
			continue
		}

		if trimmed == "" {
			raw.Blank++
			continue
		}
		if strings.HasPrefix(trimmed, "//") {
			raw.Comments++
			continue
		}
		if strings.HasPrefix(trimmed, "/*") {
			raw.Comments++
			if !strings.Contains(trimmed[2:], "*/") {
				inBlock = true
			}
			continue
		}

		raw.SLOC++
	}

	return raw
}
