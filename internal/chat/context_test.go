package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/tenantrag-go/internal/rag"
)

func TestCitationFormatting(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "report.pdf (Page 3)", Citation(rag.Chunk{Source: "report.pdf", Page: 3}))
	assert.Equal(t, "notes.txt (Page N/A)", Citation(rag.Chunk{Source: "notes.txt", Page: 0}))
}

func TestAssembleContextEmpty(t *testing.T) {
	t.Parallel()

	text, citations := AssembleContext(nil)
	assert.Empty(t, text)
	assert.Empty(t, citations)
}

func TestAssembleContextBlocksAndSeparator(t *testing.T) {
	t.Parallel()

	chunks := []rag.Chunk{
		{Source: "a.pdf", Page: 1, Text: "first passage"},
		{Source: "b.txt", Page: 0, Text: "second passage"},
	}
	text, citations := AssembleContext(chunks)

	require.Equal(t, []string{"a.pdf (Page 1)", "b.txt (Page N/A)"}, citations)
	blocks := strings.Split(text, "\n\n---\n\n")
	require.Len(t, blocks, 2)
	assert.Equal(t, "Source: a.pdf (Page 1)\nContent: first passage", blocks[0])
	assert.Equal(t, "Source: b.txt (Page N/A)\nContent: second passage", blocks[1])
}

func TestAssembleContextDeduplicatesCitationsInOrder(t *testing.T) {
	t.Parallel()

	chunks := []rag.Chunk{
		{Source: "a.pdf", Page: 2, Text: "one"},
		{Source: "b.pdf", Page: 5, Text: "two"},
		{Source: "a.pdf", Page: 2, Text: "three"},
		{Source: "a.pdf", Page: 7, Text: "four"},
	}
	text, citations := AssembleContext(chunks)

	assert.Equal(t, []string{"a.pdf (Page 2)", "b.pdf (Page 5)", "a.pdf (Page 7)"}, citations)
	// Duplicate citations still contribute their content to the prompt.
	assert.Equal(t, 4, strings.Count(text, "Content: "))
}
