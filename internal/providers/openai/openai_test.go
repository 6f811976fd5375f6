package openai

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

func TestFetchUsage_MapsItems(t *testing.T) {
	var gotAuth, gotOrg string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotOrg = r.Header.Get("OpenAI-Organization")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": [
			{"model": "gpt-4o", "input_tokens": 120, "output_tokens": 30, "input_cached_tokens": 10, "start_time": 1700000000},
			{"input_tokens": 5}
		]}`))
	}))
	defer server.Close()

	fctx := testContext(server.URL)
	fctx.Settings.OrganizationID = "org-1"

	rows, err := New().FetchUsage(context.Background(), server.Client(), fctx)
	if err != nil {
		t.Fatalf("FetchUsage: %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotOrg != "org-1" {
		t.Errorf("OpenAI-Organization = %q", gotOrg)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	first := rows[0]
	if first.Provider != "openai" || first.Model != "gpt-4o" {
		t.Errorf("first row = %+v", first)
	}
	if first.InputTokens != 120 || first.OutputTokens != 30 || first.CachedTokens != 10 {
		t.Errorf("token counts = %+v", first)
	}
	if first.Timestamp.Unix() != 1700000000 {
		t.Errorf("timestamp = %v", first.Timestamp)
	}

	second := rows[1]
	if second.Model != "unknown" {
		t.Errorf("missing model should default to unknown, got %q", second.Model)
	}
	if second.OutputTokens != 0 || second.CachedTokens != 0 {
		t.Errorf("missing counts should default to zero: %+v", second)
	}
	if !second.Timestamp.Equal(fctx.RefreshEnd) {
		t.Errorf("missing timestamp should fall back to refresh end, got %v", second.Timestamp)
	}
}

func TestFetchUsage_NonOKIsHardFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New().FetchUsage(context.Background(), server.Client(), testContext(server.URL))
	var statusErr *core.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d", statusErr.StatusCode)
	}
}

func TestTestConnection_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q, want /v1/models", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data": []}`))
	}))
	defer server.Close()

	status, err := New().TestConnection(context.Background(), server.Client(), testContext(server.URL))
	if err != nil {
		t.Fatalf("TestConnection: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
}

func TestTestConnection_UnauthorizedIsCredentialRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := New().TestConnection(context.Background(), server.Client(), testContext(server.URL))
	if !errors.Is(err, core.ErrCredentialsRejected) {
		t.Fatalf("expected credential rejection, got %v", err)
	}
}

func TestParseItemTimestampFieldOrder(t *testing.T) {
	ts, ok := parseItemTimestamp(map[string]any{"start_time": float64(1700000000)})
	if !ok || ts.Unix() != 1700000000 {
		t.Errorf("epoch start_time: %v %v", ts, ok)
	}

	ts, ok = parseItemTimestamp(map[string]any{"timestamp": "2024-01-01T00:00:00Z"})
	if !ok || ts.Unix() != 1704067200 {
		t.Errorf("rfc3339 timestamp: %v %v", ts, ok)
	}

	if _, ok := parseItemTimestamp(map[string]any{"start_time": "nope"}); ok {
		t.Error("invalid payload should not parse")
	}
	if _, ok := parseItemTimestamp(map[string]any{}); ok {
		t.Error("empty payload should not parse")
	}
}
