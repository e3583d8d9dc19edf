package indexer

import "strings"

const (
	// ChunkSize is the window length in characters.
	ChunkSize = 800
	// ChunkOverlap is the number of characters shared by consecutive windows.
	ChunkOverlap = 100
	// MinChunkChars drops trimmed windows of this length or shorter.
	MinChunkChars = 50
)

// Chunk splits text into overlapping character windows. Lengths count runes, so accented text
// is never cut inside a character. Windows are trimmed, and short ones are dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	step := size - overlap
	if step <= 0 {
		step = size
	}

	runes := []rune(text)
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := min(start+size, len(runes))
		c := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(c)) > MinChunkChars {
			chunks = append(chunks, c)
		}
	}
	return chunks
}
