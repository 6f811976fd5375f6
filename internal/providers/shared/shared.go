package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/pricing"
)

// GetJSON issues one GET with the given headers and decodes the JSON body.
// Any non-2xx status is a hard failure: 401/403 becomes a credential
// rejection, everything else an HTTPStatusError carrying the status.
func GetJSON(ctx context.Context, client *http.Client, provider, rawURL string, headers map[string]string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", provider, err)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", provider, err)
	}
	defer resp.Body.Close()

	if err := CheckStatus(provider, resp.StatusCode); err != nil {
		return nil, err
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%s: decoding response: %w", provider, err)
	}
	return body, nil
}

// CheckStatus classifies a response status the way every adapter does:
// 2xx passes, 401/403 is a credential rejection, anything else keeps the
// numeric status for reporting.
func CheckStatus(provider string, status int) error {
	if status >= 200 && status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return fmt.Errorf("%s: %w (HTTP %d)", provider, core.ErrCredentialsRejected, status)
	}
	return &core.HTTPStatusError{Provider: provider, StatusCode: status}
}

// Items pulls the named array of objects out of a decoded body. Missing or
// mistyped fields yield an empty slice; upstream shape drift never panics.
func Items(body map[string]any, key string) []map[string]any {
	raw, ok := body[key].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(raw))
	for _, v := range raw {
		if item, ok := v.(map[string]any); ok {
			out = append(out, item)
		}
	}
	return out
}

// Str reads a string field, falling back when absent or not a string.
func Str(item map[string]any, key, fallback string) string {
	if s, ok := item[key].(string); ok && s != "" {
		return s
	}
	return fallback
}

// U64 reads the first present non-negative numeric field among keys,
// defaulting to zero. JSON numbers decode as float64.
func U64(item map[string]any, keys ...string) uint64 {
	for _, key := range keys {
		if f, ok := item[key].(float64); ok && f >= 0 {
			return uint64(f)
		}
	}
	return 0
}

// EpochTime reads an integer epoch-seconds field.
func EpochTime(item map[string]any, key string) (time.Time, bool) {
	f, ok := item[key].(float64)
	if !ok {
		return time.Time{}, false
	}
	return time.Unix(int64(f), 0).UTC(), true
}

// RFC3339Time reads an RFC3339 string field.
func RFC3339Time(item map[string]any, key string) (time.Time, bool) {
	s, ok := item[key].(string)
	if !ok {
		return time.Time{}, false
	}
	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return parsed.UTC(), true
}

// ResolveTestURL picks the connection-test endpoint. With no base URL the
// provider default applies. A base URL pointing at the API root (or /v1)
// gets /v1/models appended; one that already ends in /v1/models is kept;
// anything else is used verbatim.
func ResolveTestURL(baseURL, defaultURL string) string {
	if baseURL == "" {
		return defaultURL
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return baseURL
	}
	switch path := parsed.Path; {
	case path == "" || path == "/" || path == "/v1" || path == "/v1/":
		parsed.Path = "/v1/models"
		return parsed.String()
	case strings.HasSuffix(path, "/v1/models"):
		return parsed.String()
	}
	return baseURL
}

// DeriveCosts prices usage rows for one provider. Rows whose model resolves
// to no pricing are silently dropped; the usage itself is still recorded
// upstream, so absence here means "cost unknown", not zero.
func DeriveCosts(provider string, usage []core.UsageRecord, overrides []core.PricingOverride) []core.CostRecord {
	out := make([]core.CostRecord, 0, len(usage))
	for _, u := range usage {
		p := pricing.Resolve(provider, u.Model, overrides)
		if p == nil {
			continue
		}
		inputCost := float64(u.InputTokens) / 1_000_000.0 * p.InputPer1M
		outputCost := float64(u.OutputTokens) / 1_000_000.0 * p.OutputPer1M
		out = append(out, core.CostRecord{
			Provider:   u.Provider,
			Model:      u.Model,
			InputCost:  inputCost,
			OutputCost: outputCost,
			TotalCost:  inputCost + outputCost,
			Currency:   core.CurrencyUSD,
			Timestamp:  u.Timestamp,
		})
	}
	return out
}
