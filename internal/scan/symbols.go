package scan

import (
	"fmt"

	"github.com/codeatlas/codeatlas/internal/index"
)

// BuildSymbolIndex consolidates entity locations into a flat name-to-location
// map. Files are visited in discovery order and entities in extraction
// order; on a name collision the later write wins, silently. The walk
// order is deterministic, so the winner is too.
func BuildSymbolIndex(files []index.SourceFile) map[string]string {
	symbols := map[string]string{}
	for _, file := range files {
		for _, entity := range file.Entities {
			symbols[entity.Name] = fmt.Sprintf("%s:%d", file.Path, entity.Lineno)
		}
	}
	return symbols
}
