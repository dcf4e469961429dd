package rag

import "strings"

// Default chunking geometry, measured in whitespace-delimited tokens.
const (
	DefaultChunkSize = 500
	DefaultOverlap   = 50
)

// SplitText splits text into chunks of at most chunkSize tokens where each
// chunk after the first repeats the last overlap tokens of its predecessor.
// The final chunk may be shorter than chunkSize. Concatenating the chunks
// with the overlaps dropped reconstructs the whitespace-normalized input.
func SplitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize - 1
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	step := chunkSize - overlap
	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
