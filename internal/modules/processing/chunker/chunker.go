// Package chunker splits long transcript text into AI-request-sized pieces
// without cutting semantic units where avoidable.
package chunker

import (
	"fmt"
	"regexp"
	"strings"
)

// charsPerToken is the cheap chars→tokens approximation ratio. Budgeting
// only; billing truth always comes from provider-reported usage.
const charsPerToken = 4

// boundarySearchWindow bounds how far back from the naive cut point the
// splitter looks for a natural break.
const boundarySearchWindow = 200

// Chunk is a bounded slice of text sized to fit one AI request.
type Chunk struct {
	Title    string `json:"title,omitempty"`
	Content  string `json:"content"`
	Sequence int    `json:"sequence"`
}

// EstimateTokenCount approximates the token count of text.
func EstimateTokenCount(text string) int {
	n := len([]rune(text))
	if n == 0 {
		return 0
	}
	return (n + charsPerToken - 1) / charsPerToken
}

// SplitByCharacterBudget splits text into pieces of at most maxChunkSize
// characters, preferring paragraph, line, sentence, clause, and word
// boundaries in that order. Consecutive chunks overlap by up to `overlap`
// characters for cross-chunk context. Hard cuts (no boundary in the search
// window) carry no overlap, so pathological input (no whitespace at all)
// splits into exact pieces and always terminates.
func SplitByCharacterBudget(text string, maxChunkSize, overlap int) []string {
	if maxChunkSize <= 0 {
		return []string{text}
	}
	runes := []rune(text)
	if len(runes) <= maxChunkSize {
		return []string{text}
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + maxChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}

		cut, found := findBreakPoint(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))

		next := cut
		if found {
			next = cut - overlap
			if next <= start {
				next = cut
			}
		}
		start = next
	}
	return chunks
}

// SplitByTokenBudget converts token budgets to character budgets and
// delegates to the character splitter.
func SplitByTokenBudget(text string, maxTokens, overlapTokens int) []string {
	return SplitByCharacterBudget(text, maxTokens*charsPerToken, overlapTokens*charsPerToken)
}

// SplitByChapterMarkers locates markerPattern occurrences and emits at least
// one chunk per marker. Oversized chapters are further token-split with a
// part index suffixed to their title; markers with no body still produce an
// empty-content chunk so the chapter list stays aligned with the markers.
// When no markers match, or the pattern does not compile, the whole text
// falls back to token-budget splitting with synthetic "Part N" titles. The
// result is never empty for non-empty input.
func SplitByChapterMarkers(text, markerPattern string, maxTokensPerChunk int) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if maxTokensPerChunk <= 0 {
		maxTokensPerChunk = 1000
	}

	re, err := regexp.Compile(markerPattern)
	if err != nil || markerPattern == "" {
		return splitWithSyntheticTitles(text, maxTokensPerChunk)
	}
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return splitWithSyntheticTitles(text, maxTokensPerChunk)
	}

	var chunks []Chunk
	for i, m := range matches {
		title := strings.TrimSpace(text[m[0]:m[1]])
		bodyEnd := len(text)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:bodyEnd])
		chunks = append(chunks, splitChapter(title, body, maxTokensPerChunk, len(chunks))...)
	}
	return chunks
}

func splitChapter(title, body string, maxTokensPerChunk, seqBase int) []Chunk {
	if EstimateTokenCount(body) <= maxTokensPerChunk {
		return []Chunk{{Title: title, Content: body, Sequence: seqBase}}
	}
	parts := SplitByTokenBudget(body, maxTokensPerChunk, maxTokensPerChunk/20)
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, Chunk{
			Title:    fmt.Sprintf("%s (part %d)", title, i+1),
			Content:  part,
			Sequence: seqBase + i,
		})
	}
	return chunks
}

func splitWithSyntheticTitles(text string, maxTokensPerChunk int) []Chunk {
	parts := SplitByTokenBudget(text, maxTokensPerChunk, maxTokensPerChunk/20)
	if len(parts) == 0 {
		return []Chunk{{Content: text, Sequence: 0}}
	}
	chunks := make([]Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, Chunk{
			Title:    fmt.Sprintf("Part %d", i+1),
			Content:  part,
			Sequence: i,
		})
	}
	return chunks
}

// breakCandidates in descending priority. Each candidate breaks after its
// marker so sentence punctuation stays with the preceding chunk.
var breakCandidates = []string{"\n\n", "\n", ". ", "? ", "! ", ";", ",", " "}

// findBreakPoint searches backward from the naive boundary for the best
// available break. The second return reports whether a boundary was found;
// false means the caller must hard-cut at naiveEnd.
func findBreakPoint(runes []rune, start, naiveEnd int) (int, bool) {
	windowStart := naiveEnd - boundarySearchWindow
	if windowStart < start+1 {
		windowStart = start + 1
	}
	window := string(runes[windowStart:naiveEnd])

	for _, marker := range breakCandidates {
		if idx := strings.LastIndex(window, marker); idx >= 0 {
			// LastIndex is a byte offset into the window; convert back to runes
			breakAt := windowStart + len([]rune(window[:idx])) + len([]rune(marker))
			if breakAt > start && breakAt <= naiveEnd {
				return breakAt, true
			}
		}
	}
	return naiveEnd, false
}
