package digest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// unmarshalModelJSON tolerates the usual model output noise: code fences
// around the JSON, or prose before/after a single JSON object or array.
func unmarshalModelJSON(raw string, out interface{}) error {
	cleaned := stripFences(raw)

	if err := json.Unmarshal([]byte(cleaned), out); err == nil {
		return nil
	}

	if inner := extractDelimited(cleaned, '{', '}'); inner != "" {
		if err := json.Unmarshal([]byte(inner), out); err == nil {
			return nil
		}
	}
	if inner := extractDelimited(cleaned, '[', ']'); inner != "" {
		if err := json.Unmarshal([]byte(inner), out); err == nil {
			return nil
		}
	}

	return fmt.Errorf("invalid JSON response from AI")
}

func stripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func extractDelimited(s string, open, close byte) string {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, close)
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return ""
}

// parseSummary extracts the summary string. Parse failure degrades to the
// raw text; the caller never sees an error, only the degraded flag.
func parseSummary(raw string) (summary string, degraded bool) {
	var output struct {
		Summary string `json:"summary"`
	}
	if err := unmarshalModelJSON(raw, &output); err == nil && strings.TrimSpace(output.Summary) != "" {
		return strings.TrimSpace(output.Summary), false
	}
	return stripFences(raw), true
}

// parseKeyPoints extracts key points, degrading from the expected JSON shape
// through a bare array, then bullet lines, then the whole raw text as one item.
func parseKeyPoints(raw string) (items []ResultItem, degraded bool) {
	var output struct {
		KeyPoints []string `json:"key_points"`
	}
	if err := unmarshalModelJSON(raw, &output); err == nil && len(output.KeyPoints) > 0 {
		return stringItems(output.KeyPoints), false
	}

	var bare []string
	if err := unmarshalModelJSON(raw, &bare); err == nil && len(bare) > 0 {
		return stringItems(bare), false
	}

	if lines := parseBulletLines(raw); len(lines) > 0 {
		return stringItems(lines), true
	}

	return []ResultItem{{Name: stripFences(raw)}}, true
}

// parseTopics extracts {name, description} topics with the same ladder of
// fallbacks as parseKeyPoints.
func parseTopics(raw string) (items []ResultItem, degraded bool) {
	var output struct {
		Topics []ResultItem `json:"topics"`
	}
	if err := unmarshalModelJSON(raw, &output); err == nil && len(output.Topics) > 0 {
		return compactItems(output.Topics), false
	}

	var bare []ResultItem
	if err := unmarshalModelJSON(raw, &bare); err == nil && len(bare) > 0 {
		return compactItems(bare), false
	}

	if lines := parseBulletLines(raw); len(lines) > 0 {
		topics := make([]ResultItem, 0, len(lines))
		for _, line := range lines {
			name, desc, found := strings.Cut(line, ":")
			if found {
				topics = append(topics, ResultItem{
					Name:        strings.TrimSpace(name),
					Description: strings.TrimSpace(desc),
				})
				continue
			}
			topics = append(topics, ResultItem{Name: strings.TrimSpace(line)})
		}
		return topics, true
	}

	return []ResultItem{{Name: stripFences(raw)}}, true
}

// parseBulletLines salvages explicitly marked list items ("- x", "* x",
// "1. x") from non-JSON model output.
func parseBulletLines(raw string) []string {
	var out []string
	for _, line := range strings.Split(stripFences(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		item := ""
		for _, marker := range []string{"- ", "* ", "• "} {
			if strings.HasPrefix(line, marker) {
				item = strings.TrimSpace(strings.TrimPrefix(line, marker))
				break
			}
		}
		if item == "" {
			if stripped := trimNumberPrefix(line); stripped != line {
				item = stripped
			}
		}
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func trimNumberPrefix(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(s) {
		return s
	}
	if s[i] == '.' || s[i] == ')' {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

func stringItems(values []string) []ResultItem {
	items := make([]ResultItem, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		items = append(items, ResultItem{Name: v})
	}
	return items
}

func compactItems(in []ResultItem) []ResultItem {
	out := make([]ResultItem, 0, len(in))
	for _, item := range in {
		item.Name = strings.TrimSpace(item.Name)
		item.Description = strings.TrimSpace(item.Description)
		if item.Name == "" && item.Description == "" {
			continue
		}
		if item.Name == "" {
			item.Name = item.Description
			item.Description = ""
		}
		out = append(out, item)
	}
	return out
}
