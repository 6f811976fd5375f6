package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/storage"
)

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestWindowCycleKey(t *testing.T) {
	m := newTestModel(&fakeMeter{})
	if m.window != core.TimeWindow7d {
		t.Fatalf("initial window = %v", m.window)
	}

	updated, _ := m.Update(keyMsg("w"))
	m = updated.(Model)
	if m.window != core.TimeWindow30d {
		t.Errorf("window after cycle = %v", m.window)
	}

	updated, _ = m.Update(keyMsg("w"))
	m = updated.(Model)
	if m.window != core.TimeWindow1d {
		t.Errorf("window after second cycle = %v", m.window)
	}
}

func TestFailedRefreshKeepsLastSummary(t *testing.T) {
	m := newTestModel(&fakeMeter{})
	m.summary = storage.Summary{Cost: 12.5, Tokens: 42}
	m.refreshing = true

	updated, _ := m.Update(refreshDoneMsg{err: errors.New("upstream down")})
	m = updated.(Model)

	if m.refreshing {
		t.Error("refreshing flag should clear")
	}
	if m.summary.Cost != 12.5 || m.summary.Tokens != 42 {
		t.Errorf("summary = %+v, the last successful view must be retained", m.summary)
	}
	if !strings.Contains(m.statusMsg, "refresh failed") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestDashboardViewSmoke(t *testing.T) {
	m := newTestModel(&fakeMeter{})
	m.width = 80
	m.height = 24
	m.summary = storage.Summary{
		Cost:       3.5,
		Tokens:     1_200_000,
		ByProvider: []storage.CostBucket{{Key: "openai", Cost: 3.5}},
		ByModel:    []storage.CostBucket{{Key: "gpt-4o", Cost: 3.5}},
	}

	view := m.View()
	if !strings.Contains(view, "llm-meter") {
		t.Error("view missing brand")
	}
	if !strings.Contains(view, "gpt-4o") {
		t.Error("view missing top model")
	}
	if !strings.Contains(view, "1.2M") {
		t.Error("view missing compact token count")
	}
}

func TestManagerEnableGatedOnSuccessfulTest(t *testing.T) {
	m := newTestModel(&fakeMeter{})
	m.screen = screenManager
	m.cursor = 0 // openai

	updated, _ := m.Update(keyMsg("x"))
	m = updated.(Model)
	if m.cfg.ProviderEnabled("openai") {
		t.Error("enable must be refused without a successful test")
	}

	m.connStates["openai"] = connState{status: connSuccess}
	updated, _ = m.Update(keyMsg("x"))
	m = updated.(Model)
	if !m.cfg.ProviderEnabled("openai") {
		t.Error("enable should succeed after a successful test")
	}
}

func TestFormatTokens(t *testing.T) {
	cases := map[uint64]string{
		0:             "0",
		999:           "999",
		1500:          "1.5K",
		2_000_000:     "2.0M",
		3_100_000_000: "3.1B",
	}
	for in, want := range cases {
		if got := formatTokens(in); got != want {
			t.Errorf("formatTokens(%d) = %q, want %q", in, got, want)
		}
	}
}
