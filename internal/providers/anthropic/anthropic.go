package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/providers/shared"
)

const (
	usageEndpoint = "https://api.anthropic.com/v1/organizations/usage_report/messages"
	testEndpoint  = "https://api.anthropic.com/v1/models"
	apiVersion    = "2023-06-01"
)

// Provider implements core.ProviderAdapter for the Anthropic usage report API.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "anthropic" }

func usageURL(fctx core.FetchContext) string {
	end := fctx.RefreshEnd
	start := end.Add(-fctx.Window.Duration())
	q := url.Values{}
	q.Set("starting_at", start.UTC().Format(time.RFC3339))
	q.Set("ending_at", end.UTC().Format(time.RFC3339))
	return usageEndpoint + "?" + q.Encode()
}

func headers(fctx core.FetchContext) map[string]string {
	return map[string]string{
		"x-api-key":         fctx.APIKey,
		"anthropic-version": apiVersion,
	}
}

// parseItemTimestamp prefers the report's RFC3339 bucket bounds and only
// then falls back to a bare epoch field.
func parseItemTimestamp(item map[string]any) (time.Time, bool) {
	if ts, ok := shared.RFC3339Time(item, "starting_at"); ok {
		return ts, true
	}
	if ts, ok := shared.RFC3339Time(item, "ending_at"); ok {
		return ts, true
	}
	if ts, ok := shared.EpochTime(item, "timestamp"); ok {
		return ts, true
	}
	return time.Time{}, false
}

func (p *Provider) FetchUsage(ctx context.Context, client *http.Client, fctx core.FetchContext) ([]core.UsageRecord, error) {
	u := fctx.Settings.BaseURL
	if u == "" {
		u = usageURL(fctx)
	}

	body, err := shared.GetJSON(ctx, client, p.Name(), u, headers(fctx))
	if err != nil {
		return nil, err
	}

	items := shared.Items(body, "data")
	out := make([]core.UsageRecord, 0, len(items))
	for _, item := range items {
		ts, ok := parseItemTimestamp(item)
		if !ok {
			ts = fctx.RefreshEnd
		}
		out = append(out, core.UsageRecord{
			Provider:     p.Name(),
			Model:        shared.Str(item, "model", "unknown"),
			InputTokens:  shared.U64(item, "input_tokens", "tokens_in"),
			OutputTokens: shared.U64(item, "output_tokens", "tokens_out"),
			Timestamp:    ts,
		})
	}
	return out, nil
}

func (p *Provider) TestConnection(ctx context.Context, client *http.Client, fctx core.FetchContext) (int, error) {
	u := shared.ResolveTestURL(fctx.Settings.BaseURL, testEndpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("anthropic: creating request: %w", err)
	}
	for key, value := range headers(fctx) {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("anthropic: request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := shared.CheckStatus(p.Name(), resp.StatusCode); err != nil {
		return 0, err
	}
	return resp.StatusCode, nil
}

func (p *Provider) DeriveCosts(usage []core.UsageRecord, overrides []core.PricingOverride) []core.CostRecord {
	return shared.DeriveCosts(p.Name(), usage, overrides)
}
