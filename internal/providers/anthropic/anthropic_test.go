package anthropic

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/neubell/llm-meter/internal/core"
)

func testContext(baseURL string) core.FetchContext {
	return core.FetchContext{
		APIKey:     "test-key",
		Settings:   core.ProviderSettings{BaseURL: baseURL},
		Window:     core.TimeWindow7d,
		RefreshEnd: time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestFetchUsage_MapsItemsAndAltFieldNames(t *testing.T) {
	var gotKey, gotVersion string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [
			{"model": "claude-3-5-sonnet", "input_tokens": 80, "output_tokens": 20, "starting_at": "2024-01-01T00:00:00Z"},
			{"model": "claude-3-5-haiku", "tokens_in": 50, "tokens_out": 5}
		]}`))
	}))
	defer server.Close()

	fctx := testContext(server.URL)
	rows, err := New().FetchUsage(context.Background(), server.Client(), fctx)
	if err != nil {
		t.Fatalf("FetchUsage: %v", err)
	}
	if gotKey != "test-key" {
		t.Errorf("x-api-key = %q", gotKey)
	}
	if gotVersion != apiVersion {
		t.Errorf("anthropic-version = %q", gotVersion)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	first := rows[0]
	if first.InputTokens != 80 || first.OutputTokens != 20 {
		t.Errorf("first row tokens = %+v", first)
	}
	if first.Timestamp.Unix() != 1704067200 {
		t.Errorf("timestamp = %v", first.Timestamp)
	}
	if first.CachedTokens != 0 {
		t.Errorf("anthropic reports no cached tokens, got %d", first.CachedTokens)
	}

	second := rows[1]
	if second.InputTokens != 50 || second.OutputTokens != 5 {
		t.Errorf("alternate field names not mapped: %+v", second)
	}
	if !second.Timestamp.Equal(fctx.RefreshEnd) {
		t.Errorf("missing timestamp should fall back to refresh end, got %v", second.Timestamp)
	}
}

func TestTestConnection_StatusClassification(t *testing.T) {
	status := http.StatusForbidden
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer server.Close()

	_, err := New().TestConnection(context.Background(), server.Client(), testContext(server.URL))
	if !errors.Is(err, core.ErrCredentialsRejected) {
		t.Fatalf("403 should be a credential rejection, got %v", err)
	}

	status = http.StatusBadGateway
	_, err = New().TestConnection(context.Background(), server.Client(), testContext(server.URL))
	var statusErr *core.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("502 should be an HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d", statusErr.StatusCode)
	}

	status = http.StatusOK
	code, err := New().TestConnection(context.Background(), server.Client(), testContext(server.URL))
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if code != http.StatusOK {
		t.Errorf("status = %d", code)
	}
}

func TestParseItemTimestampPrefersBucketBounds(t *testing.T) {
	ts, ok := parseItemTimestamp(map[string]any{
		"starting_at": "2024-01-01T00:00:00Z",
		"ending_at":   "2024-01-02T00:00:00Z",
		"timestamp":   float64(1700000000),
	})
	if !ok || ts.Unix() != 1704067200 {
		t.Errorf("starting_at should win: %v %v", ts, ok)
	}

	ts, ok = parseItemTimestamp(map[string]any{"timestamp": float64(1700000000)})
	if !ok || ts.Unix() != 1700000000 {
		t.Errorf("epoch fallback: %v %v", ts, ok)
	}

	if _, ok := parseItemTimestamp(map[string]any{"starting_at": "bad"}); ok {
		t.Error("invalid payload should not parse")
	}
}
