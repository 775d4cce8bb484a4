package knowledge

const (
	// DefaultChunkWindow is the chunk size in characters.
	DefaultChunkWindow = 1000
	// DefaultChunkOverlap is how many characters consecutive chunks share.
	DefaultChunkOverlap = 100
)

// ChunkText splits text into overlapping windows. Consecutive chunks share
// overlap characters so sentences spanning a boundary stay retrievable. The
// final chunk may be shorter than the window. Counting is rune-based so a
// boundary never lands inside a multi-byte character. Empty input yields no
// chunks: there is nothing to embed, so it never reaches the store.
func ChunkText(text string, window, overlap int) []string {
	if window <= 0 {
		window = DefaultChunkWindow
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= window {
		overlap = window - 1
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= window {
		return []string{text}
	}

	stride := window - overlap
	chunks := make([]string, 0, (len(runes)+stride-1)/stride)
	for start := 0; start < len(runes); start += stride {
		end := start + window
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
