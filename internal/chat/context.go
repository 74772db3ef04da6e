package chat

import (
	"fmt"
	"strings"

	"github.com/54b3r/tenantrag-go/internal/rag"
)

// contextSeparator joins the rendered chunk blocks inside the prompt.
const contextSeparator = "\n\n---\n\n"

// Citation formats a chunk's provenance as "<source> (Page <n>)". Chunks
// without page information cite "Page N/A".
func Citation(c rag.Chunk) string {
	if c.Page <= 0 {
		return fmt.Sprintf("%s (Page N/A)", c.Source)
	}
	return fmt.Sprintf("%s (Page %d)", c.Source, c.Page)
}

// AssembleContext renders retrieved chunks into the prompt context block and
// the citation list for the response. Citations are deduplicated while
// preserving first-seen order, so the list reads in relevance order.
func AssembleContext(chunks []rag.Chunk) (string, []string) {
	if len(chunks) == 0 {
		return "", nil
	}

	blocks := make([]string, 0, len(chunks))
	citations := make([]string, 0, len(chunks))
	seen := make(map[string]struct{}, len(chunks))

	for _, c := range chunks {
		cite := Citation(c)
		blocks = append(blocks, fmt.Sprintf("Source: %s\nContent: %s", cite, c.Text))
		if _, ok := seen[cite]; !ok {
			seen[cite] = struct{}{}
			citations = append(citations, cite)
		}
	}
	return strings.Join(blocks, contextSeparator), citations
}
