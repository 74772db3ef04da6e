package ingestion

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitEmptyInput(t *testing.T) {
	t.Parallel()

	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n  "))
}

func TestSplitShortTextIsSingleChunk(t *testing.T) {
	t.Parallel()

	s := NewSplitter(DefaultChunkSize, DefaultChunkOverlap)
	chunks := s.Split("a short paragraph that fits in one chunk")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short paragraph that fits in one chunk", chunks[0])
}

func TestSplitRespectsChunkSize(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	s := NewSplitter(1000, 200)
	chunks := s.Split(b.String())
	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqualf(t, len(c), 1000, "chunk %d exceeds size", i)
		assert.NotEmpty(t, c)
	}
}

func TestSplitConsecutiveChunksOverlap(t *testing.T) {
	t.Parallel()

	var b strings.Builder
	for i := 0; i < 300; i++ {
		b.WriteString("Sentence number goes here with a bit of padding text. ")
	}
	s := NewSplitter(1000, 200)
	chunks := s.Split(b.String())
	require.Greater(t, len(chunks), 1)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		// The start of each chunk revisits the tail of its predecessor.
		probe := cur
		if len(probe) > 40 {
			probe = probe[:40]
		}
		assert.Containsf(t, prev, strings.TrimSpace(probe),
			"chunk %d does not overlap its predecessor", i)
	}
}

func TestSplitSizeHeldWhenLargeSentenceFollowsFullChunk(t *testing.T) {
	t.Parallel()

	// A near-chunk-size sentence arriving right after a full chunk must not
	// be glued onto the carried overlap tail.
	sentence := strings.Repeat("n", 98) + ". "
	long := strings.Repeat("y", 948) + ". "

	cases := map[string]string{
		"long sentence after full chunk":    strings.Repeat(sentence, 10) + long,
		"long sentence between full chunks": strings.Repeat(sentence, 10) + long + strings.Repeat(sentence, 10),
		"mid-size sentence after overlap":   strings.Repeat(sentence, 10) + strings.Repeat("y", 898) + ". ",
	}

	s := NewSplitter(1000, 200)
	for name, text := range cases {
		chunks := s.Split(text)
		require.NotEmptyf(t, chunks, "%s: no chunks", name)
		for i, c := range chunks {
			assert.LessOrEqualf(t, len(c), 1000, "%s: chunk %d exceeds size", name, i)
		}
	}
}

func TestSplitOverlapQuantity(t *testing.T) {
	t.Parallel()

	// Uniform 50-char sentences fill a 1000-char chunk exactly; the carried
	// tail is then the configured 200 characters (199 shared after the
	// trailing space is trimmed from the emitted chunk).
	sentence := strings.Repeat("v", 48) + ". "
	s := NewSplitter(1000, 200)
	chunks := s.Split(strings.Repeat(sentence, 60))
	require.Greater(t, len(chunks), 2)

	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1], chunks[i]
		if i == len(chunks)-1 && len(cur) < 199 {
			continue
		}
		tail := prev[len(prev)-199:]
		assert.Truef(t, strings.HasPrefix(cur, tail),
			"chunk %d does not start with the 199-char tail of its predecessor", i)
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	t.Parallel()

	para := strings.Repeat("word ", 150) // ~750 chars
	text := strings.TrimSpace(para) + "\n\n" + strings.TrimSpace(para)
	s := NewSplitter(1000, 200)
	chunks := s.Split(text)
	require.Len(t, chunks, 2)
	assert.NotContains(t, chunks[0], "\n\n")
}

func TestSplitHandlesSeparatorFreeText(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("x", 2500)
	s := NewSplitter(1000, 200)
	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	total := 0
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000)
		total += len(c)
	}
	// Overlap means the chunks together cover at least the original length.
	assert.GreaterOrEqual(t, total, 2500)
}
