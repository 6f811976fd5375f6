package providers

import (
	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/providers/anthropic"
	"github.com/neubell/llm-meter/internal/providers/openai"
)

// All returns the known adapters in the fixed order a refresh processes
// them. Adding a provider means adding one entry here.
func All() []core.ProviderAdapter {
	return []core.ProviderAdapter{
		openai.New(),
		anthropic.New(),
	}
}

// ByName returns the adapter registered under the normalized name, or nil.
func ByName(name string) core.ProviderAdapter {
	normalized := core.NormalizeProviderName(name)
	for _, adapter := range All() {
		if adapter.Name() == normalized {
			return adapter
		}
	}
	return nil
}
