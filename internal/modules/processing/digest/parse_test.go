package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummaryCleanJSON(t *testing.T) {
	summary, degraded := parseSummary(`{"summary":"the gist"}`)
	assert.Equal(t, "the gist", summary)
	assert.False(t, degraded)
}

func TestParseSummaryFencedJSON(t *testing.T) {
	raw := "```json\n{\"summary\":\"fenced gist\"}\n```"
	summary, degraded := parseSummary(raw)
	assert.Equal(t, "fenced gist", summary)
	assert.False(t, degraded)
}

func TestParseSummaryProseAroundJSON(t *testing.T) {
	raw := `Sure! Here is the summary: {"summary":"embedded"} Hope that helps.`
	summary, degraded := parseSummary(raw)
	assert.Equal(t, "embedded", summary)
	assert.False(t, degraded)
}

func TestParseSummaryRawTextDegrades(t *testing.T) {
	summary, degraded := parseSummary("This is just plain prose, no JSON.")
	assert.Equal(t, "This is just plain prose, no JSON.", summary)
	assert.True(t, degraded)
}

func TestParseKeyPointsExpectedShape(t *testing.T) {
	items, degraded := parseKeyPoints(`{"key_points":["first point","second point"]}`)
	require.Len(t, items, 2)
	assert.Equal(t, "first point", items[0].Name)
	assert.False(t, degraded)
}

func TestParseKeyPointsBareArray(t *testing.T) {
	items, degraded := parseKeyPoints(`["one","two","three"]`)
	require.Len(t, items, 3)
	assert.False(t, degraded)
}

func TestParseKeyPointsBulletLines(t *testing.T) {
	raw := "Here are the points:\n- alpha\n* beta\n• gamma\n1. delta\n2) epsilon\nnot a bullet"
	items, degraded := parseKeyPoints(raw)
	require.Len(t, items, 5)
	assert.Equal(t, "alpha", items[0].Name)
	assert.Equal(t, "beta", items[1].Name)
	assert.Equal(t, "gamma", items[2].Name)
	assert.Equal(t, "delta", items[3].Name)
	assert.Equal(t, "epsilon", items[4].Name)
	assert.True(t, degraded)
}

func TestParseKeyPointsTotalDegradation(t *testing.T) {
	items, degraded := parseKeyPoints("no structure here at all")
	require.Len(t, items, 1)
	assert.Equal(t, "no structure here at all", items[0].Name)
	assert.True(t, degraded)
}

func TestParseTopicsExpectedShape(t *testing.T) {
	items, degraded := parseTopics(`{"topics":[{"name":"AI","description":"machine learning"}]}`)
	require.Len(t, items, 1)
	assert.Equal(t, "AI", items[0].Name)
	assert.Equal(t, "machine learning", items[0].Description)
	assert.False(t, degraded)
}

func TestParseTopicsBareArray(t *testing.T) {
	items, degraded := parseTopics(`[{"name":"Go","description":"a language"}]`)
	require.Len(t, items, 1)
	assert.Equal(t, "Go", items[0].Name)
	assert.False(t, degraded)
}

func TestParseTopicsBulletLinesWithColon(t *testing.T) {
	raw := "- Databases: indexing and storage\n- Caching: keep hot data near"
	items, degraded := parseTopics(raw)
	require.Len(t, items, 2)
	assert.Equal(t, "Databases", items[0].Name)
	assert.Equal(t, "indexing and storage", items[0].Description)
	assert.Equal(t, "Caching", items[1].Name)
	assert.True(t, degraded)
}

func TestParseTopicsDropsEmptyEntries(t *testing.T) {
	items, degraded := parseTopics(`{"topics":[{"name":"","description":""},{"name":"kept"}]}`)
	require.Len(t, items, 1)
	assert.Equal(t, "kept", items[0].Name)
	assert.False(t, degraded)
}

func TestParseTopicsDescriptionOnlyPromoted(t *testing.T) {
	items, _ := parseTopics(`{"topics":[{"name":"","description":"only desc"}]}`)
	require.Len(t, items, 1)
	assert.Equal(t, "only desc", items[0].Name)
	assert.Empty(t, items[0].Description)
}

func TestUnmarshalModelJSONRejectsGarbage(t *testing.T) {
	var out struct{}
	assert.Error(t, unmarshalModelJSON("not json at all", &out))
}
