// Package chunk splits article text into overlapping windows for embedding.
package chunk

import "strings"

const (
	defaultMin     = 800
	defaultMax     = 1200
	defaultOverlap = 100

	// sentenceSearchWindow is how far back from the window end a sentence
	// break is considered.
	sentenceSearchWindow = 200
)

var sentenceMarks = [][2]rune{{'.', ' '}, {'!', ' '}, {'?', ' '}}

// Chunk is one piece of a split text. Index starts at 0 and is dense.
type Chunk struct {
	Text  string
	Index int
}

// Chunker carves text into chunks of Min..Max characters with Overlap
// characters shared between neighbors. Sizes are in runes.
type Chunker struct {
	Min     int
	Max     int
	Overlap int
}

// New returns a Chunker with the standard 800/1200/100 parameters.
func New() *Chunker {
	return &Chunker{Min: defaultMin, Max: defaultMax, Overlap: defaultOverlap}
}

// Split chunks text. Texts no longer than Max come back as a single chunk
// equal to the input. Longer texts break preferentially at sentence ends
// within the last 200 characters of each window, then at the latest space
// past Min, then hard at Max. Consecutive chunks share Overlap characters;
// the cursor always moves forward.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	runes := []rune(text)
	if len(runes) <= c.Max {
		return []Chunk{{Text: text, Index: 0}}
	}

	var chunks []Chunk
	lastStart := -1
	start := 0
	index := 0

	for start < len(runes) {
		end := start + c.Max
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			window := runes[start:end]
			searchFrom := len(window) - sentenceSearchWindow
			if searchFrom < 0 {
				searchFrom = 0
			}

			if breakAt := lastSentenceBreak(window); breakAt >= searchFrom && breakAt > c.Min {
				end = start + breakAt + 1 // keep the terminator, drop the space
			} else if spaceAt := lastSpace(window); spaceAt > c.Min {
				end = start + spaceAt
			}
		}

		piece := strings.TrimSpace(string(runes[start:end]))
		if piece != "" {
			chunks = append(chunks, Chunk{Text: piece, Index: index})
			lastStart = start
			index++
		}

		if end >= len(runes) {
			break
		}
		next := end - c.Overlap
		if len(chunks) > 0 && next <= lastStart {
			next = end
		}
		start = next
	}
	return chunks
}

// lastSentenceBreak returns the index of the latest sentence terminator
// followed by a space, or -1.
func lastSentenceBreak(window []rune) int {
	for i := len(window) - 2; i >= 0; i-- {
		for _, mark := range sentenceMarks {
			if window[i] == mark[0] && window[i+1] == mark[1] {
				return i
			}
		}
	}
	return -1
}

func lastSpace(window []rune) int {
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == ' ' {
			return i
		}
	}
	return -1
}
