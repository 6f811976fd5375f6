package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"

	"github.com/neubell/llm-meter/internal/core"
)

// managerRows lists every provider the manager shows: the known adapters
// first in their fixed order, then any configured name without an adapter.
func (m Model) managerRows() []string {
	rows := make([]string, len(m.providers))
	copy(rows, m.providers)

	extra := lo.Filter(m.cfg.EnabledProviders, func(p string, _ int) bool {
		return !lo.Contains(rows, core.NormalizeProviderName(p))
	})
	return append(rows, extra...)
}

func (m Model) selectedProvider() string {
	rows := m.managerRows()
	if len(rows) == 0 || m.cursor < 0 || m.cursor >= len(rows) {
		return ""
	}
	return rows[m.cursor]
}

func (m Model) handleManagerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	rows := m.managerRows()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = screenDashboard
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
	case "t":
		provider := m.selectedProvider()
		if provider == "" {
			return m, nil
		}
		apiKey, err := m.creds.Get(provider)
		if err != nil {
			m.statusMsg = truncateStatus(err.Error())
			return m, nil
		}
		m = m.startTest(provider, apiKey, m.cfg.SettingsFor(provider), originManager)
		return m, nil
	case "a":
		m.form = newProviderForm(false, "", core.ProviderSettings{}, false)
		m.screen = screenForm
		return m, nil
	case "e", "enter":
		provider := m.selectedProvider()
		if provider == "" {
			return m, nil
		}
		m.form = newProviderForm(true, provider, m.cfg.SettingsFor(provider), m.cfg.ProviderEnabled(provider))
		m.screen = screenForm
		return m, nil
	case "x":
		return m.toggleEnabled()
	case "d":
		provider := m.selectedProvider()
		if provider == "" {
			return m, nil
		}
		m.confirm = &confirmDialog{
			action:   confirmDeleteProvider,
			provider: provider,
			prompt:   fmt.Sprintf("Remove %s, its settings, and its stored key?", provider),
		}
		m.screen = screenConfirm
		return m, nil
	case "K":
		provider := m.selectedProvider()
		if provider == "" {
			return m, nil
		}
		m.confirm = &confirmDialog{
			action:   confirmDeleteKey,
			provider: provider,
			prompt:   fmt.Sprintf("Delete the stored API key for %s?", provider),
		}
		m.screen = screenConfirm
		return m, nil
	case "l":
		provider := m.selectedProvider()
		if provider == "" {
			return m, nil
		}
		m.logProvider = core.NormalizeProviderName(provider)
		m.logOffset = 0
		m.screen = screenLogs
		return m, nil
	case "r":
		return m.beginRefresh()
	}
	return m, nil
}

// toggleEnabled flips a provider's enabled state. Enabling requires a
// successful connection test first.
func (m Model) toggleEnabled() (tea.Model, tea.Cmd) {
	provider := m.selectedProvider()
	if provider == "" {
		return m, nil
	}

	if m.cfg.ProviderEnabled(provider) {
		m.cfg.SetProviderEnabled(provider, false)
	} else {
		if m.connStateFor(provider).status != connSuccess {
			m.statusMsg = fmt.Sprintf("test %s before enabling it ('t')", provider)
			return m, nil
		}
		m.cfg.SetProviderEnabled(provider, true)
	}

	if err := m.saveConfig(); err != nil {
		m.statusMsg = truncateStatus("saving config: " + err.Error())
	}
	return m, nil
}

func (m Model) renderManager() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Providers") + "\n\n")

	rows := m.managerRows()
	for i, provider := range rows {
		cursor := "  "
		nameStyle := lipgloss.NewStyle().Foreground(colorText)
		if i == m.cursor {
			cursor = selectedStyle.Render("> ")
			nameStyle = selectedStyle
		}

		enabled := dimStyle.Render("off")
		if m.cfg.ProviderEnabled(provider) {
			enabled = okStyle.Render("on ")
		}

		key := dimStyle.Render("no key")
		if m.creds.Has(provider) {
			key = labelStyle.Render("key ✓")
		}

		var conn string
		switch st := m.connStateFor(provider); st.status {
		case connTesting:
			conn = m.spin.View() + warnStyle.Render("testing")
		case connSuccess:
			conn = okStyle.Render("✓ ok")
		case connFailure:
			conn = errorStyle.Render("✗ " + truncateStatus(st.message))
		default:
			conn = dimStyle.Render("untested")
		}

		spend := ""
		if cost, ok := topBucket(m.summary.ByProvider, core.NormalizeProviderName(provider)); ok {
			spend = valueStyle.Render(fmt.Sprintf("$%.2f", cost))
		}

		b.WriteString(fmt.Sprintf("%s%-12s %s  %s  %s  %s\n",
			cursor, nameStyle.Render(provider), enabled, key, spend, conn))
	}
	if len(rows) == 0 {
		b.WriteString(dimStyle.Render("  no providers — press 'a' to add one") + "\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n" + labelStyle.Render(truncateStatus(m.statusMsg)) + "\n")
	}

	b.WriteString("\n" + renderHelp([][2]string{
		{"t", "test"},
		{"x", "toggle"},
		{"a", "add"},
		{"e", "edit"},
		{"d", "delete"},
		{"K", "delete key"},
		{"l", "logs"},
		{"esc", "back"},
	}))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}

func (m Model) renderConfirm() string {
	if m.confirm == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(warnStyle.Render(m.confirm.prompt) + "\n\n")
	b.WriteString(renderHelp([][2]string{
		{"y", "confirm"},
		{"n", "cancel"},
	}))
	return lipgloss.NewStyle().Padding(2, 4).Render(b.String())
}

func (m Model) renderLogs() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.logProvider+" log") + "\n\n")

	entries := m.logs.For(m.logProvider)
	if len(entries) == 0 {
		b.WriteString(dimStyle.Render("  no entries") + "\n")
	}

	visible := m.height - 8
	if visible < 5 {
		visible = 5
	}
	offset := m.logOffset
	if offset > len(entries)-visible {
		offset = len(entries) - visible
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + visible
	if end > len(entries) {
		end = len(entries)
	}

	// Newest last, matching append order.
	for _, e := range entries[offset:end] {
		eventStyle := okStyle
		if e.Event == "test_failed" {
			eventStyle = errorStyle
		}
		b.WriteString(fmt.Sprintf("  %s %s %s\n",
			dimStyle.Render(e.Time.Format("15:04:05")),
			eventStyle.Render(fmt.Sprintf("%-14s", e.Event)),
			e.Message))
	}

	b.WriteString("\n" + renderHelp([][2]string{
		{"j/k", "scroll"},
		{"c", "clear"},
		{"esc", "back"},
	}))
	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
