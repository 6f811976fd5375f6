package storage

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/neubell/llm-meter/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "snapshots.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func fixedTS(hour int) time.Time {
	return time.Unix(1_700_000_000, 0).UTC().Add(time.Duration(hour) * time.Hour)
}

func sampleUsage(provider, model string, ts time.Time, tokens uint64) core.UsageRecord {
	return core.UsageRecord{
		Provider:    provider,
		Model:       model,
		InputTokens: tokens,
		Timestamp:   ts,
	}
}

func sampleCost(provider, model string, ts time.Time, total float64) core.CostRecord {
	return core.CostRecord{
		Provider:  provider,
		Model:     model,
		InputCost: total,
		TotalCost: total,
		Currency:  core.CurrencyUSD,
		Timestamp: ts,
	}
}

func TestReplaceSnapshotReplacesRowsWithoutDoubleCounting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	since := fixedTS(0)

	err := store.ReplaceSnapshot(ctx, since, []string{"openai"},
		[]core.UsageRecord{sampleUsage("openai", "gpt-4o", fixedTS(1), 100)},
		[]core.CostRecord{sampleCost("openai", "gpt-4o", fixedTS(1), 1.0)},
	)
	if err != nil {
		t.Fatalf("first snapshot: %v", err)
	}

	err = store.ReplaceSnapshot(ctx, since, []string{"openai"},
		[]core.UsageRecord{sampleUsage("openai", "gpt-4o", fixedTS(2), 250)},
		[]core.CostRecord{sampleCost("openai", "gpt-4o", fixedTS(2), 2.5)},
	)
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}

	summary, err := store.AggregateSince(ctx, since.Add(-time.Hour))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary.Tokens != 250 {
		t.Errorf("tokens = %d, want 250 (double counted?)", summary.Tokens)
	}
	if math.Abs(summary.Cost-2.5) > 1e-9 {
		t.Errorf("cost = %v, want 2.5", summary.Cost)
	}
	if len(summary.ByProvider) != 1 || summary.ByProvider[0].Key != "openai" {
		t.Errorf("by provider = %+v", summary.ByProvider)
	}
	if len(summary.ByModel) != 1 || summary.ByModel[0].Key != "gpt-4o" {
		t.Errorf("by model = %+v", summary.ByModel)
	}
}

func TestReplaceSnapshotOnlyAffectsTargetedProviders(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	since := fixedTS(0)

	err := store.ReplaceSnapshot(ctx, since, []string{"openai", "anthropic"},
		[]core.UsageRecord{
			sampleUsage("openai", "gpt-4o", fixedTS(1), 100),
			sampleUsage("anthropic", "claude-3-5-sonnet", fixedTS(1), 80),
		},
		[]core.CostRecord{
			sampleCost("openai", "gpt-4o", fixedTS(1), 1.0),
			sampleCost("anthropic", "claude-3-5-sonnet", fixedTS(1), 0.8),
		},
	)
	if err != nil {
		t.Fatalf("seed two providers: %v", err)
	}

	err = store.ReplaceSnapshot(ctx, since, []string{"openai"},
		[]core.UsageRecord{sampleUsage("openai", "gpt-4o", fixedTS(2), 40)},
		[]core.CostRecord{sampleCost("openai", "gpt-4o", fixedTS(2), 0.4)},
	)
	if err != nil {
		t.Fatalf("replace openai: %v", err)
	}

	summary, err := store.AggregateSince(ctx, since.Add(-time.Hour))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary.Tokens != 120 {
		t.Errorf("tokens = %d, want 120", summary.Tokens)
	}
	if math.Abs(summary.Cost-1.2) > 1e-9 {
		t.Errorf("cost = %v, want 1.2", summary.Cost)
	}
	if len(summary.ByProvider) != 2 {
		t.Fatalf("by provider = %+v, want 2 buckets", summary.ByProvider)
	}
	if summary.ByProvider[0].Key != "anthropic" || math.Abs(summary.ByProvider[0].Cost-0.8) > 1e-9 {
		t.Errorf("anthropic rows were touched: %+v", summary.ByProvider)
	}
	if summary.ByProvider[1].Key != "openai" || math.Abs(summary.ByProvider[1].Cost-0.4) > 1e-9 {
		t.Errorf("openai rows not replaced: %+v", summary.ByProvider)
	}
}

func TestReplaceSnapshotKeepsRowsOlderThanWindow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.ReplaceSnapshot(ctx, fixedTS(0), []string{"openai"},
		[]core.UsageRecord{sampleUsage("openai", "gpt-4o", fixedTS(1), 100)},
		[]core.CostRecord{sampleCost("openai", "gpt-4o", fixedTS(1), 1.0)},
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Later refresh with a narrower window must not delete the older row.
	err = store.ReplaceSnapshot(ctx, fixedTS(2), []string{"openai"},
		[]core.UsageRecord{sampleUsage("openai", "gpt-4o", fixedTS(3), 50)},
		[]core.CostRecord{sampleCost("openai", "gpt-4o", fixedTS(3), 0.5)},
	)
	if err != nil {
		t.Fatalf("narrow refresh: %v", err)
	}

	summary, err := store.AggregateSince(ctx, fixedTS(0))
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if summary.Tokens != 150 {
		t.Errorf("tokens = %d, want 150", summary.Tokens)
	}
}

func TestAggregateSinceEmptyStore(t *testing.T) {
	store := openTestStore(t)

	summary, err := store.AggregateSince(context.Background(), fixedTS(0))
	if err != nil {
		t.Fatalf("aggregate on empty store: %v", err)
	}
	if summary.Tokens != 0 || summary.Cost != 0 {
		t.Errorf("summary = %+v, want zeros", summary)
	}
	if len(summary.ByProvider) != 0 || len(summary.ByModel) != 0 {
		t.Errorf("breakdowns not empty: %+v", summary)
	}
}

func TestAggregateSinceLimitsModelBreakdown(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	since := fixedTS(0)

	var usage []core.UsageRecord
	var cost []core.CostRecord
	for i := 0; i < 12; i++ {
		model := "model-" + string(rune('a'+i))
		usage = append(usage, sampleUsage("openai", model, fixedTS(1), 10))
		cost = append(cost, sampleCost("openai", model, fixedTS(1), float64(i+1)))
	}
	if err := store.ReplaceSnapshot(ctx, since, []string{"openai"}, usage, cost); err != nil {
		t.Fatalf("seed: %v", err)
	}

	summary, err := store.AggregateSince(ctx, since)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if len(summary.ByModel) != 10 {
		t.Errorf("model buckets = %d, want 10", len(summary.ByModel))
	}
	for i := 1; i < len(summary.ByModel); i++ {
		if summary.ByModel[i].Cost > summary.ByModel[i-1].Cost {
			t.Errorf("model breakdown not descending at %d: %+v", i, summary.ByModel)
		}
	}
}

func TestExportAllCostNewestFirst(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	err := store.ReplaceSnapshot(ctx, fixedTS(0), []string{"openai"},
		nil,
		[]core.CostRecord{
			sampleCost("openai", "gpt-4o", fixedTS(1), 0.5),
			sampleCost("openai", "gpt-4o-mini", fixedTS(3), 0.1),
		},
	)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	rows, err := store.ExportAllCost(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].Model != "gpt-4o-mini" {
		t.Errorf("first row = %+v, want newest (gpt-4o-mini)", rows[0])
	}
	if !rows[0].Timestamp.Equal(fixedTS(3)) {
		t.Errorf("timestamp round-trip: got %v, want %v", rows[0].Timestamp, fixedTS(3))
	}
	if rows[0].Currency != core.CurrencyUSD {
		t.Errorf("currency = %q", rows[0].Currency)
	}
}
