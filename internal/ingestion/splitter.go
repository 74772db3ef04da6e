// Package ingestion turns source files into tagged, embedded chunks in the
// vector store. It owns the split/tag/embed/upsert pipeline and the upload
// staging rules for the HTTP document endpoint.
package ingestion

import "strings"

// Default splitter geometry. A 200-character overlap keeps sentences that
// straddle a boundary retrievable from both neighbouring chunks.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// defaultSeparators is ordered from most to least structural. The empty
// string is the terminal fallback: a hard character cut.
var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// Splitter divides text into overlapping chunks, preferring to break at
// paragraph, line, sentence and word boundaries before cutting mid-word.
type Splitter struct {
	chunkSize int
	overlap   int
}

// NewSplitter returns a splitter with the given geometry. Non-positive size
// falls back to DefaultChunkSize; a negative overlap or one that is not
// smaller than the size falls back to DefaultChunkOverlap.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 5
		}
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}
}

// Split divides text into chunks of at most the configured size. Whitespace
// is trimmed from each chunk and empty chunks are dropped, so empty input
// yields an empty slice.
func (s *Splitter) Split(text string) []string {
	raw := s.split(text, defaultSeparators)
	chunks := make([]string, 0, len(raw))
	for _, c := range raw {
		c = strings.TrimSpace(c)
		if c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func (s *Splitter) split(text string, separators []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	// Pick the first separator that actually occurs in the text.
	sep := ""
	rest := []string{}
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.hardCut(text)
	}

	parts := strings.SplitAfter(text, sep)
	var out []string
	var pending []string
	pendingLen := 0

	// flush emits the accumulated parts as one chunk and keeps a tail of at
	// most overlap characters. The tail shrinks further when it would not
	// leave room for the incoming part within the chunk size.
	flush := func(incoming int) {
		if pendingLen == 0 {
			return
		}
		out = append(out, strings.Join(pending, ""))
		for len(pending) > 0 && (pendingLen > s.overlap || pendingLen+incoming > s.chunkSize) {
			pendingLen -= len(pending[0])
			pending = pending[1:]
		}
	}

	for _, part := range parts {
		if len(part) > s.chunkSize {
			flush(0)
			pending, pendingLen = nil, 0
			out = append(out, s.split(part, rest)...)
			continue
		}
		if pendingLen+len(part) > s.chunkSize {
			flush(len(part))
		}
		pending = append(pending, part)
		pendingLen += len(part)
	}
	if pendingLen > 0 {
		out = append(out, strings.Join(pending, ""))
	}
	return out
}

// hardCut slices text into fixed windows on rune boundaries. Last resort for
// text with no usable separators.
func (s *Splitter) hardCut(text string) []string {
	runes := []rune(text)
	if len(runes) <= s.chunkSize {
		return []string{text}
	}
	step := s.chunkSize - s.overlap
	if step <= 0 {
		step = s.chunkSize
	}
	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + s.chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
