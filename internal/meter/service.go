package meter

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/neubell/llm-meter/internal/config"
	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/providers"
)

const (
	connectTimeout = 10 * time.Second
	totalTimeout   = 30 * time.Second
)

// KeySource resolves a provider's API key. Implemented by the credentials
// store; the service never persists or logs the secret.
type KeySource interface {
	Get(provider string) (string, error)
}

// SnapshotStore is the slice of the storage engine a refresh writes through.
type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, since time.Time, providers []string, usage []core.UsageRecord, cost []core.CostRecord) error
}

// Service orchestrates adapters, pricing, and storage for refreshes, and
// runs isolated connection tests. It owns the outbound HTTP client; every
// call is bounded by the connect and total timeouts, so a dead upstream
// surfaces as an error rather than a hang.
type Service struct {
	client   *http.Client
	adapters []core.ProviderAdapter
	now      func() time.Time
}

func New() *Service {
	return &Service{
		client: &http.Client{
			Timeout: totalTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connectTimeout}).DialContext,
				TLSHandshakeTimeout: connectTimeout,
			},
		},
		adapters: providers.All(),
		now:      time.Now,
	}
}

// Refresh fetches usage for every enabled provider, prices it, and swaps
// the window into the store in one transaction. Fail-fast: any provider's
// fetch error aborts the whole refresh and nothing is written, so the
// previous persisted state stays intact.
func (s *Service) Refresh(ctx context.Context, cfg config.Config, keys KeySource, window core.TimeWindow, store SnapshotStore) (core.Snapshot, error) {
	refreshEnd := s.now().UTC()
	since := refreshEnd.Add(-window.Duration())

	var usage []core.UsageRecord
	var cost []core.CostRecord
	var refreshed []string

	for _, adapter := range s.adapters {
		if !cfg.ProviderEnabled(adapter.Name()) {
			continue
		}

		apiKey, err := keys.Get(adapter.Name())
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("meter: resolving key for %s: %w", adapter.Name(), err)
		}

		fctx := core.FetchContext{
			APIKey:     apiKey,
			Settings:   cfg.SettingsFor(adapter.Name()),
			Window:     window,
			RefreshEnd: refreshEnd,
		}

		rows, err := adapter.FetchUsage(ctx, s.client, fctx)
		if err != nil {
			return core.Snapshot{}, fmt.Errorf("meter: fetching %s usage: %w", adapter.Name(), err)
		}

		usage = append(usage, rows...)
		cost = append(cost, adapter.DeriveCosts(rows, cfg.PricingOverrides)...)
		refreshed = append(refreshed, adapter.Name())
	}

	if err := store.ReplaceSnapshot(ctx, since, refreshed, usage, cost); err != nil {
		return core.Snapshot{}, err
	}

	return core.Snapshot{Usage: usage, Cost: cost, FetchedAt: refreshEnd}, nil
}

// TestConnection probes one provider and reports the elapsed time and
// status code. An unknown provider name is a configuration error, not a
// network failure. Test results are never persisted.
func (s *Service) TestConnection(ctx context.Context, provider, apiKey string, settings core.ProviderSettings) (core.ProviderTestReport, error) {
	normalized := core.NormalizeProviderName(provider)

	var adapter core.ProviderAdapter
	for _, a := range s.adapters {
		if a.Name() == normalized {
			adapter = a
			break
		}
	}
	if adapter == nil {
		return core.ProviderTestReport{}, fmt.Errorf("meter: unsupported provider %q", normalized)
	}

	fctx := core.FetchContext{
		APIKey:     apiKey,
		Settings:   settings,
		Window:     core.TimeWindow7d,
		RefreshEnd: s.now().UTC(),
	}

	started := time.Now()
	status, err := adapter.TestConnection(ctx, s.client, fctx)
	report := core.ProviderTestReport{StatusCode: status, Duration: time.Since(started)}
	if err != nil {
		return report, err
	}
	return report, nil
}
