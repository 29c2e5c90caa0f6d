package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokenCount(t *testing.T) {
	assert.Equal(t, 0, EstimateTokenCount(""))
	assert.Equal(t, 1, EstimateTokenCount("abc"))
	assert.Equal(t, 1, EstimateTokenCount("abcd"))
	assert.Equal(t, 2, EstimateTokenCount("abcde"))
	assert.Equal(t, 1000, EstimateTokenCount(strings.Repeat("x", 4000)))
}

func TestSplitByCharacterBudgetShortInput(t *testing.T) {
	chunks := SplitByCharacterBudget("short text", 100, 10)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0])
}

func TestSplitByCharacterBudgetRespectsBudget(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 500; i++ {
		sb.WriteString("The quick brown fox jumps over the lazy dog. ")
	}
	text := sb.String()

	chunks := SplitByCharacterBudget(text, 4000, 200)
	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqualf(t, len([]rune(chunk)), 4000, "chunk %d exceeds budget", i)
		assert.NotEmpty(t, chunk)
	}
}

func TestSplitByCharacterBudgetPrefersSentenceBoundaries(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString("This is sentence number one. ")
	}
	text := sb.String()

	chunks := SplitByCharacterBudget(text, 1000, 0)
	require.Greater(t, len(chunks), 1)
	// every non-final chunk should end right after sentence punctuation
	for _, chunk := range chunks[:len(chunks)-1] {
		assert.True(t, strings.HasSuffix(chunk, ". "), "chunk should break after a sentence: %q", chunk[len(chunk)-10:])
	}
}

func TestSplitByCharacterBudgetOverlap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 250; i++ {
		sb.WriteString("alpha beta gamma delta epsilon zeta eta. ")
	}
	text := sb.String()

	chunks := SplitByCharacterBudget(text, 4000, 200)
	require.GreaterOrEqual(t, len(chunks), 3)

	// each successor starts inside its predecessor's tail
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1]
		if len(tail) > 250 {
			tail = tail[len(tail)-250:]
		}
		head := chunks[i]
		if len(head) > 50 {
			head = head[:50]
		}
		assert.Containsf(t, tail, head, "chunk %d should overlap the previous chunk", i)
	}
}

func TestSplitByCharacterBudgetNoWhitespaceTerminates(t *testing.T) {
	text := strings.Repeat("a", 10000)
	chunks := SplitByCharacterBudget(text, 1000, 100)

	require.NotEmpty(t, chunks)
	var total int
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 1000)
		total += len(chunk)
	}
	// hard cuts yield zero overlap, so the pieces reassemble exactly
	assert.Len(t, chunks, 10)
	assert.Equal(t, text, strings.Join(chunks, ""))
	assert.Equal(t, len(text), total)
}

func TestSplitByCharacterBudgetOverlapClamped(t *testing.T) {
	text := strings.Repeat("word ", 500)
	// overlap >= budget would never make progress; it must be clamped
	chunks := SplitByCharacterBudget(text, 100, 100)
	require.NotEmpty(t, chunks)
	assert.Greater(t, len(chunks), 1)
}

func TestSplitByTokenBudget(t *testing.T) {
	text := strings.Repeat("some words here. ", 1000)
	chunks := SplitByTokenBudget(text, 1000, 50)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, EstimateTokenCount(chunk), 1000)
	}
}

func TestSplitByChapterMarkers(t *testing.T) {
	text := "## Intro\nWelcome to the show.\n## Deep Dive\nThe main content goes here.\n## Outro\nThanks for watching."

	chunks := SplitByChapterMarkers(text, `## .+`, 1000)
	require.Len(t, chunks, 3)
	assert.Equal(t, "## Intro", chunks[0].Title)
	assert.Equal(t, "Welcome to the show.", chunks[0].Content)
	assert.Equal(t, "## Deep Dive", chunks[1].Title)
	assert.Equal(t, "## Outro", chunks[2].Title)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Sequence)
	}
}

func TestSplitByChapterMarkersOversizedChapter(t *testing.T) {
	body := strings.Repeat("A sentence inside a very long chapter. ", 500)
	text := "## Only Chapter\n" + body

	chunks := SplitByChapterMarkers(text, `## .+`, 1000)
	require.Greater(t, len(chunks), 1)
	for i, ch := range chunks {
		assert.Contains(t, ch.Title, "Only Chapter")
		assert.Contains(t, ch.Title, "part")
		assert.LessOrEqual(t, EstimateTokenCount(ch.Content), 1000)
		assert.Equal(t, i, ch.Sequence)
	}
}

func TestSplitByChapterMarkersNoMatchFallsBack(t *testing.T) {
	text := strings.Repeat("Plain text with no markers at all. ", 300)

	chunks := SplitByChapterMarkers(text, `## .+`, 1000)
	require.NotEmpty(t, chunks)
	for i, ch := range chunks {
		assert.Contains(t, ch.Title, "Part")
		assert.Equal(t, i, ch.Sequence)
	}
}

func TestSplitByChapterMarkersBadPatternFallsBack(t *testing.T) {
	text := "Some transcript content."

	chunks := SplitByChapterMarkers(text, `([invalid`, 1000)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "Some transcript content.", chunks[0].Content)
}

func TestSplitByChapterMarkersEmptyInput(t *testing.T) {
	assert.Nil(t, SplitByChapterMarkers("", `## .+`, 1000))
	assert.Nil(t, SplitByChapterMarkers("   \n ", `## .+`, 1000))
}

func TestSplitByChapterMarkersEmptyBodiesKeepChapters(t *testing.T) {
	// a marker with no body still gets its own chunk, keeping the chapter
	// count aligned with the marker count
	text := "## A\n## B\nreal content\n"
	chunks := SplitByChapterMarkers(text, `## .+`, 1000)
	require.Len(t, chunks, 2)
	assert.Equal(t, "## A", chunks[0].Title)
	assert.Empty(t, chunks[0].Content)
	assert.Equal(t, "## B", chunks[1].Title)
	assert.Equal(t, "real content", chunks[1].Content)
}

func TestSplitByChapterMarkersNeverFewerThanMarkers(t *testing.T) {
	text := "## A\n## B\n## C\n"
	chunks := SplitByChapterMarkers(text, `## .+`, 1000)
	require.Len(t, chunks, 3)
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Sequence)
		assert.Empty(t, ch.Content)
	}
}
