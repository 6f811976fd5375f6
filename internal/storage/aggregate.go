package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/neubell/llm-meter/internal/core"
)

// CostBucket is one row of a grouped cost breakdown.
type CostBucket struct {
	Key  string
	Cost float64
}

// Summary is the read model behind the dashboard.
type Summary struct {
	Tokens     uint64
	Cost       float64
	ByProvider []CostBucket
	ByModel    []CostBucket
}

// AggregateSince sums tokens and cost for rows with timestamp >= since.
// An empty store yields zeros and empty breakdowns, not an error.
func (s *Store) AggregateSince(ctx context.Context, since time.Time) (Summary, error) {
	sinceStr := formatTimestamp(since)
	summary := Summary{}

	var tokens int64
	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(input_tokens + output_tokens + cached_tokens), 0)
		FROM usage_records WHERE timestamp >= ?`, sinceStr).Scan(&tokens); err != nil {
		return Summary{}, fmt.Errorf("storage: sum tokens: %w", err)
	}
	if tokens > 0 {
		summary.Tokens = uint64(tokens)
	}

	if err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_cost), 0.0)
		FROM cost_records WHERE timestamp >= ?`, sinceStr).Scan(&summary.Cost); err != nil {
		return Summary{}, fmt.Errorf("storage: sum cost: %w", err)
	}

	byProvider, err := s.costBuckets(ctx, `
		SELECT provider, COALESCE(SUM(total_cost), 0.0) AS c
		FROM cost_records WHERE timestamp >= ?
		GROUP BY provider ORDER BY c DESC`, sinceStr)
	if err != nil {
		return Summary{}, fmt.Errorf("storage: cost by provider: %w", err)
	}
	summary.ByProvider = byProvider

	byModel, err := s.costBuckets(ctx, `
		SELECT model, COALESCE(SUM(total_cost), 0.0) AS c
		FROM cost_records WHERE timestamp >= ?
		GROUP BY model ORDER BY c DESC LIMIT 10`, sinceStr)
	if err != nil {
		return Summary{}, fmt.Errorf("storage: cost by model: %w", err)
	}
	summary.ByModel = byModel

	return summary, nil
}

func (s *Store) costBuckets(ctx context.Context, query, sinceStr string) ([]CostBucket, error) {
	rows, err := s.db.QueryContext(ctx, query, sinceStr)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CostBucket
	for rows.Next() {
		var b CostBucket
		if err := rows.Scan(&b.Key, &b.Cost); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ExportAllCost returns every cost row, newest first. Used by the export
// command, never by the refresh path.
func (s *Store) ExportAllCost(ctx context.Context) ([]core.CostRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT provider, model, input_cost, output_cost, total_cost, currency, timestamp
		FROM cost_records ORDER BY timestamp DESC`)
	if err != nil {
		return nil, fmt.Errorf("storage: query cost rows: %w", err)
	}
	defer rows.Close()

	var out []core.CostRecord
	for rows.Next() {
		var r core.CostRecord
		var ts string
		if err := rows.Scan(&r.Provider, &r.Model, &r.InputCost, &r.OutputCost, &r.TotalCost, &r.Currency, &ts); err != nil {
			return nil, fmt.Errorf("storage: scan cost row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("storage: parse cost timestamp %q: %w", ts, err)
		}
		r.Timestamp = parsed.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}
