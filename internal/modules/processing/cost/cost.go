// Package cost maps provider-reported token usage to a monetary estimate.
package cost

import (
	"fmt"
	"strings"
)

// Rate is the USD price per 1000 prompt/completion tokens for one model.
type Rate struct {
	InputPer1K  float64
	OutputPer1K float64
}

// Usage mirrors the token counts reported by the AI provider for one or
// more calls. Estimates are derived from it, never stored.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// Estimate is the derived cost breakdown for a usage total.
type Estimate struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
	Currency   string  `json:"currency"`
	Formatted  string  `json:"formatted"`
}

// rates keyed by model-ID prefix; longest matching prefix wins.
var rates = map[string]Rate{
	"gpt-4o-mini":       {InputPer1K: 0.00015, OutputPer1K: 0.0006},
	"gpt-4o":            {InputPer1K: 0.0025, OutputPer1K: 0.01},
	"gpt-4.1-mini":      {InputPer1K: 0.0004, OutputPer1K: 0.0016},
	"gpt-4.1":           {InputPer1K: 0.002, OutputPer1K: 0.008},
	"gpt-3.5-turbo":     {InputPer1K: 0.0005, OutputPer1K: 0.0015},
	"claude-3-5-haiku":  {InputPer1K: 0.0008, OutputPer1K: 0.004},
	"claude-3-5-sonnet": {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-haiku-4-5":  {InputPer1K: 0.001, OutputPer1K: 0.005},
	"claude-sonnet-4":   {InputPer1K: 0.003, OutputPer1K: 0.015},
	"claude-opus-4":     {InputPer1K: 0.015, OutputPer1K: 0.075},
}

// defaultRate is applied when the model is not in the table.
var defaultRate = Rate{InputPer1K: 0.001, OutputPer1K: 0.002}

// Calculate derives a cost estimate from usage and model identity.
func Calculate(usage Usage, model string) Estimate {
	rate := lookupRate(model)

	input := float64(usage.PromptTokens) / 1000 * rate.InputPer1K
	output := float64(usage.CompletionTokens) / 1000 * rate.OutputPer1K
	total := input + output

	return Estimate{
		InputCost:  input,
		OutputCost: output,
		TotalCost:  total,
		Currency:   "USD",
		Formatted:  fmt.Sprintf("$%.6f", total),
	}
}

func lookupRate(model string) Rate {
	m := strings.ToLower(strings.TrimSpace(model))
	best := ""
	for prefix := range rates {
		if strings.HasPrefix(m, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return defaultRate
	}
	return rates[best]
}
