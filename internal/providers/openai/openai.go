package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/providers/shared"
)

const (
	usageEndpoint = "https://api.openai.com/v1/organization/usage/completions"
	testEndpoint  = "https://api.openai.com/v1/models"
)

// Provider implements core.ProviderAdapter for the OpenAI usage API.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "openai" }

func usageURL(fctx core.FetchContext) string {
	end := fctx.RefreshEnd
	start := end.Add(-fctx.Window.Duration())
	return fmt.Sprintf("%s?start_time=%d&end_time=%d", usageEndpoint, start.Unix(), end.Unix())
}

func headers(fctx core.FetchContext) map[string]string {
	h := map[string]string{"Authorization": "Bearer " + fctx.APIKey}
	if org := fctx.Settings.OrganizationID; org != "" {
		h["OpenAI-Organization"] = org
	}
	return h
}

// parseItemTimestamp tries the upstream field spellings in preference
// order: epoch seconds first, then RFC3339 strings.
func parseItemTimestamp(item map[string]any) (time.Time, bool) {
	if ts, ok := shared.EpochTime(item, "start_time"); ok {
		return ts, true
	}
	if ts, ok := shared.EpochTime(item, "timestamp"); ok {
		return ts, true
	}
	if ts, ok := shared.RFC3339Time(item, "start_time"); ok {
		return ts, true
	}
	if ts, ok := shared.RFC3339Time(item, "timestamp"); ok {
		return ts, true
	}
	return time.Time{}, false
}

func (p *Provider) FetchUsage(ctx context.Context, client *http.Client, fctx core.FetchContext) ([]core.UsageRecord, error) {
	url := fctx.Settings.BaseURL
	if url == "" {
		url = usageURL(fctx)
	}

	body, err := shared.GetJSON(ctx, client, p.Name(), url, headers(fctx))
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
			InputTokens:  shared.U64(item, "input_tokens"),
			OutputTokens: shared.U64(item, "output_tokens"),
			CachedTokens: shared.U64(item, "input_cached_tokens"),
			Timestamp:    ts,
		})
	}
	return out, nil
}

func (p *Provider) TestConnection(ctx context.Context, client *http.Client, fctx core.FetchContext) (int, error) {
	url := shared.ResolveTestURL(fctx.Settings.BaseURL, testEndpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("openai: creating request: %w", err)
	}
	for key, value := range headers(fctx) {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("openai: request failed: %w", err)
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
