package core

import (
	"strings"
	"time"
)

// UsageRecord is one upstream usage bucket as reported by a provider's
// usage API. Records are created during a refresh and never edited.
type UsageRecord struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	InputTokens  uint64    `json:"input_tokens"`
	OutputTokens uint64    `json:"output_tokens"`
	CachedTokens uint64    `json:"cached_tokens"`
	Timestamp    time.Time `json:"timestamp"`
}

// CostRecord is the priced counterpart of a UsageRecord. TotalCost is
// always InputCost + OutputCost and Currency is always "USD".
type CostRecord struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	InputCost  float64   `json:"input_cost"`
	OutputCost float64   `json:"output_cost"`
	TotalCost  float64   `json:"total_cost"`
	Currency   string    `json:"currency"`
	Timestamp  time.Time `json:"timestamp"`
}

// CurrencyUSD is the only currency this tool reports in.
const CurrencyUSD = "USD"

// Snapshot is the in-memory result of one refresh. It is not persisted
// itself; the store keeps the accumulated usage/cost rows.
type Snapshot struct {
	Usage     []UsageRecord `json:"usage"`
	Cost      []CostRecord  `json:"cost"`
	FetchedAt time.Time     `json:"fetched_at"`
}

// ProviderTestReport describes the outcome of a connection probe.
type ProviderTestReport struct {
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// ProviderSettings holds optional per-provider request overrides.
type ProviderSettings struct {
	BaseURL        string `json:"base_url,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
}

// PricingOverride is a user-supplied pricing row that wins over the
// built-in table when both provider and model pattern match.
type PricingOverride struct {
	Provider     string  `json:"provider"`
	ModelPattern string  `json:"model_pattern"`
	InputPer1M   float64 `json:"input_per_1m"`
	OutputPer1M  float64 `json:"output_per_1m"`
}

// ModelPricing is priced in USD per 1M tokens.
type ModelPricing struct {
	Provider     string  `json:"provider"`
	ModelPattern string  `json:"model_pattern"`
	InputPer1M   float64 `json:"input_per_1m"`
	OutputPer1M  float64 `json:"output_per_1m"`
}

// NormalizeProviderName trims and lowercases a provider name. Provider
// names are used as storage keys and credential keys, so every path that
// accepts user input normalizes first.
func NormalizeProviderName(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
