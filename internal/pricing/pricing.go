package pricing

import (
	"strings"

	"github.com/neubell/llm-meter/internal/core"
)

// builtIn is the default pricing table, USD per 1M tokens.
// Source: https://openai.com/api/pricing/ and https://anthropic.com/pricing.
// Resolution is first-match-wins on a substring of the model name, so more
// specific patterns must come before their prefixes (gpt-4o-mini before
// gpt-4o, and so on).
var builtIn = []core.ModelPricing{
	// OpenAI
	{Provider: "openai", ModelPattern: "gpt-4o-mini", InputPer1M: 0.15, OutputPer1M: 0.60},
	{Provider: "openai", ModelPattern: "gpt-4o", InputPer1M: 5.0, OutputPer1M: 15.0},
	{Provider: "openai", ModelPattern: "gpt-4.1-mini", InputPer1M: 0.40, OutputPer1M: 1.60},
	{Provider: "openai", ModelPattern: "gpt-4.1-nano", InputPer1M: 0.10, OutputPer1M: 0.40},
	{Provider: "openai", ModelPattern: "gpt-4.1", InputPer1M: 2.00, OutputPer1M: 8.00},
	{Provider: "openai", ModelPattern: "gpt-4-turbo", InputPer1M: 10.00, OutputPer1M: 30.00},
	{Provider: "openai", ModelPattern: "gpt-3.5-turbo", InputPer1M: 0.50, OutputPer1M: 1.50},
	{Provider: "openai", ModelPattern: "o3-mini", InputPer1M: 1.10, OutputPer1M: 4.40},
	{Provider: "openai", ModelPattern: "o3", InputPer1M: 10.00, OutputPer1M: 40.00},
	{Provider: "openai", ModelPattern: "o4-mini", InputPer1M: 1.10, OutputPer1M: 4.40},
	{Provider: "openai", ModelPattern: "o1-mini", InputPer1M: 1.10, OutputPer1M: 4.40},
	{Provider: "openai", ModelPattern: "o1", InputPer1M: 15.00, OutputPer1M: 60.00},
	// Anthropic
	{Provider: "anthropic", ModelPattern: "claude-3-5-sonnet", InputPer1M: 3.0, OutputPer1M: 15.0},
	{Provider: "anthropic", ModelPattern: "claude-3-5-haiku", InputPer1M: 0.80, OutputPer1M: 4.0},
	{Provider: "anthropic", ModelPattern: "claude-3-opus", InputPer1M: 15.0, OutputPer1M: 75.0},
	{Provider: "anthropic", ModelPattern: "claude-3-haiku", InputPer1M: 0.25, OutputPer1M: 1.25},
}

// BuiltIn returns a copy of the built-in pricing table.
func BuiltIn() []core.ModelPricing {
	out := make([]core.ModelPricing, len(builtIn))
	copy(out, builtIn)
	return out
}

// Resolve maps (provider, model) to unit prices. User overrides are searched
// before the built-in table; within each list the first row whose provider
// matches case-insensitively and whose pattern is a substring of the model
// name wins. A nil result means the cost is unknown, never zero.
func Resolve(provider, model string, overrides []core.PricingOverride) *core.ModelPricing {
	for _, ov := range overrides {
		if strings.EqualFold(ov.Provider, provider) && strings.Contains(model, ov.ModelPattern) {
			return &core.ModelPricing{
				Provider:     provider,
				ModelPattern: ov.ModelPattern,
				InputPer1M:   ov.InputPer1M,
				OutputPer1M:  ov.OutputPer1M,
			}
		}
	}
	for _, p := range builtIn {
		if strings.EqualFold(p.Provider, provider) && strings.Contains(model, p.ModelPattern) {
			row := p
			return &row
		}
	}
	return nil
}
