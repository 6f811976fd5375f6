package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/neubell/llm-meter/internal/storage"
)

func (m Model) renderDashboard() string {
	w := m.width
	if w <= 0 {
		w = 80
	}

	var b strings.Builder
	b.WriteString(m.renderDashboardHeader(w) + "\n\n")

	totalCost := valueStyle.Render(fmt.Sprintf("$%.2f", m.summary.Cost))
	totalTokens := valueStyle.Render(formatTokens(m.summary.Tokens))
	b.WriteString(fmt.Sprintf("  %s %s   %s %s\n\n",
		labelStyle.Render("Total cost"), totalCost,
		labelStyle.Render("Tokens"), totalTokens))

	b.WriteString("  " + sectionStyle.Render("Cost by provider") + "\n")
	b.WriteString(m.renderProviderChart(w) + "\n")

	b.WriteString("  " + sectionStyle.Render("Top models") + "\n")
	b.WriteString(m.renderModelTable(w) + "\n")

	b.WriteString(m.renderStatusLine(w))
	return b.String()
}

func (m Model) renderDashboardHeader(w int) string {
	brand := titleStyle.Render("⚡ llm-meter")
	windowBadge := windowBadgeStyle.Render("[" + m.window.Label() + "]")

	refreshed := "never"
	if !m.lastRefresh.IsZero() {
		refreshed = m.lastRefresh.Local().Format("15:04:05")
	}
	right := labelStyle.Render("refreshed " + refreshed)
	if m.refreshing {
		right = m.spin.View() + warnStyle.Render("refreshing…")
	}

	left := brand + " " + windowBadge
	gap := w - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	line := " " + left + strings.Repeat(" ", gap) + right
	sep := dimStyle.Render(strings.Repeat("─", w))
	return line + "\n" + sep
}

func (m Model) renderProviderChart(w int) string {
	buckets := m.summary.ByProvider
	if len(buckets) == 0 {
		return dimStyle.Render("  no cost data yet") + "\n"
	}

	chartW := w - 4
	if chartW > 60 {
		chartW = 60
	}
	chartH := 8

	bc := barchart.New(chartW, chartH)
	for _, bucket := range buckets {
		bc.Push(barchart.BarData{
			Label: bucket.Key,
			Values: []barchart.BarValue{{
				Name:  bucket.Key,
				Value: bucket.Cost,
				Style: lipgloss.NewStyle().Foreground(providerColor(bucket.Key)),
			}},
		})
	}
	bc.Draw()

	legend := make([]string, 0, len(buckets))
	for _, bucket := range buckets {
		dot := lipgloss.NewStyle().Foreground(providerColor(bucket.Key)).Render("●")
		legend = append(legend, fmt.Sprintf("%s %s $%.2f", dot, bucket.Key, bucket.Cost))
	}

	chart := lipgloss.NewStyle().PaddingLeft(2).Render(bc.View())
	return chart + "\n  " + strings.Join(legend, "   ") + "\n"
}

func (m Model) renderModelTable(w int) string {
	buckets := m.summary.ByModel
	if len(buckets) == 0 {
		return dimStyle.Render("  no model data yet") + "\n"
	}

	nameW := 0
	for _, bucket := range buckets {
		if len(bucket.Key) > nameW {
			nameW = len(bucket.Key)
		}
	}
	if nameW > w-20 {
		nameW = w - 20
	}

	var lines []string
	for i, bucket := range buckets {
		name := bucket.Key
		if len(name) > nameW {
			name = name[:nameW-1] + "…"
		}
		lines = append(lines, fmt.Sprintf("  %s %-*s %s",
			dimStyle.Render(fmt.Sprintf("%2d.", i+1)),
			nameW, name,
			valueStyle.Render(fmt.Sprintf("$%.4f", bucket.Cost))))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) renderStatusLine(w int) string {
	sep := dimStyle.Render(strings.Repeat("─", w))
	status := ""
	if m.statusMsg != "" {
		status = " " + labelStyle.Render(truncateStatus(m.statusMsg)) + "\n"
	}
	help := " " + renderHelp([][2]string{
		{"w", "window"},
		{"r", "refresh"},
		{"p", "providers"},
		{"q", "quit"},
	})
	return sep + "\n" + status + help
}

func formatTokens(n uint64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// topBucket is used by the manager to show a provider's spend at a glance.
func topBucket(buckets []storage.CostBucket, key string) (float64, bool) {
	for _, bucket := range buckets {
		if bucket.Key == key {
			return bucket.Cost, true
		}
	}
	return 0, false
}
