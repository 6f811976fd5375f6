package core

import (
	"context"
	"net/http"
	"time"
)

// FetchContext carries everything an adapter needs for one outbound call:
// the resolved API key, optional per-provider overrides, the requested
// window, and the instant the refresh started. RefreshEnd doubles as the
// timestamp fallback when an upstream item carries none.
type FetchContext struct {
	APIKey     string
	Settings   ProviderSettings
	Window     TimeWindow
	RefreshEnd time.Time
}

// ProviderAdapter hides one upstream usage API behind a canonical shape.
// Adding a provider means implementing this interface and registering it;
// nothing else in the system special-cases providers.
type ProviderAdapter interface {
	// Name is the stable lowercase identifier used as the provider's
	// storage key and credential key.
	Name() string

	// FetchUsage returns the usage buckets for the requested window.
	// Any non-2xx response is a hard failure.
	FetchUsage(ctx context.Context, client *http.Client, fctx FetchContext) ([]UsageRecord, error)

	// TestConnection probes a cheap read-only endpoint. On success it
	// returns the HTTP status code; 401/403 surfaces as
	// ErrCredentialsRejected, any other non-2xx as an HTTPStatusError.
	TestConnection(ctx context.Context, client *http.Client, fctx FetchContext) (int, error)

	// DeriveCosts prices the usage rows. Rows with no resolvable price
	// are dropped from the result, not reported as errors.
	DeriveCosts(usage []UsageRecord, overrides []PricingOverride) []CostRecord
}
