package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/neubell/llm-meter/internal/core"
)

const (
	fieldName = iota
	fieldAPIKey
	fieldBaseURL
	fieldOrgID
	fieldEnabled
	fieldCount
)

var formFieldLabels = [fieldCount]string{
	"Provider",
	"API key",
	"Base URL (optional)",
	"Organization ID (optional)",
	"Enabled",
}

// providerForm is the add/edit screen. The enable toggle is gated: a
// provider cannot be saved enabled without a prior successful connection
// test in this session.
type providerForm struct {
	editing  bool   // editing an existing provider vs adding a new one
	original string // normalized name at open time, when editing
	inputs   [4]textinput.Model
	focus    int
	enabled  bool
	status   string
}

func newProviderForm(editing bool, provider string, settings core.ProviderSettings, enabled bool) *providerForm {
	f := &providerForm{
		editing:  editing,
		original: core.NormalizeProviderName(provider),
		enabled:  enabled,
	}

	for i := range f.inputs {
		ti := textinput.New()
		ti.CharLimit = 256
		ti.Width = 40
		ti.Prompt = "> "
		f.inputs[i] = ti
	}
	f.inputs[fieldName].Placeholder = "openai"
	f.inputs[fieldAPIKey].Placeholder = "sk-…"
	f.inputs[fieldAPIKey].EchoMode = textinput.EchoPassword
	f.inputs[fieldBaseURL].Placeholder = "https://api.openai.com"
	f.inputs[fieldOrgID].Placeholder = "org-…"

	if provider != "" {
		f.inputs[fieldName].SetValue(core.NormalizeProviderName(provider))
	}
	f.inputs[fieldBaseURL].SetValue(settings.BaseURL)
	f.inputs[fieldOrgID].SetValue(settings.OrganizationID)

	if editing {
		f.focus = fieldAPIKey
	}
	f.inputs[f.focus].Focus()
	return f
}

func (f *providerForm) name() string {
	if f.editing {
		return f.original
	}
	return core.NormalizeProviderName(f.inputs[fieldName].Value())
}

func (f *providerForm) apiKey() string {
	return strings.TrimSpace(f.inputs[fieldAPIKey].Value())
}

func (f *providerForm) settings() core.ProviderSettings {
	return core.ProviderSettings{
		BaseURL:        strings.TrimSpace(f.inputs[fieldBaseURL].Value()),
		OrganizationID: strings.TrimSpace(f.inputs[fieldOrgID].Value()),
	}
}

func (f *providerForm) setFocus(idx int) tea.Cmd {
	f.focus = idx
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == idx {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *providerForm) cycleFocus(step int) tea.Cmd {
	next := (f.focus + step + fieldCount) % fieldCount
	if f.editing && next == fieldName {
		next = (next + step + fieldCount) % fieldCount
	}
	if next == fieldEnabled {
		f.focus = next
		for i := range f.inputs {
			f.inputs[i].Blur()
		}
		return nil
	}
	return f.setFocus(next)
}

func (m Model) handleFormKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	f := m.form

	switch msg.String() {
	case "esc":
		m.screen = screenManager
		m.form = nil
		return m, nil
	case "tab", "down":
		return m, f.cycleFocus(1)
	case "shift+tab", "up":
		return m, f.cycleFocus(-1)
	case "ctrl+t":
		provider := f.name()
		if provider == "" {
			f.status = "provider name required"
			return m, nil
		}
		m = m.startTest(provider, f.apiKey(), f.settings(), originForm)
		return m, nil
	case "ctrl+s":
		return m.saveForm()
	case "enter":
		if f.focus == fieldEnabled {
			f.enabled = !f.enabled
			return m, nil
		}
		if f.focus == fieldOrgID {
			return m.saveForm()
		}
		return m, f.cycleFocus(1)
	case " ":
		if f.focus == fieldEnabled {
			f.enabled = !f.enabled
			return m, nil
		}
	}

	if f.focus < len(f.inputs) {
		var cmd tea.Cmd
		f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) saveForm() (Model, tea.Cmd) {
	f := m.form
	provider := f.name()
	if provider == "" {
		f.status = "provider name required"
		return m, nil
	}

	enabled := f.enabled
	gated := false
	if enabled && m.connStateFor(provider).status != connSuccess {
		enabled = false
		gated = true
	}

	if key := f.apiKey(); key != "" {
		if err := m.creds.Set(provider, key); err != nil {
			f.status = truncateStatus("saving key: " + err.Error())
			return m, nil
		}
	}

	m.cfg.SetProvider(provider, enabled, f.settings())
	if err := m.saveConfig(); err != nil {
		f.status = truncateStatus("saving config: " + err.Error())
		return m, nil
	}

	m.screen = screenManager
	m.form = nil
	if gated {
		m.statusMsg = fmt.Sprintf("%s saved disabled: run a connection test before enabling", provider)
	} else {
		m.statusMsg = provider + " saved"
	}
	return m, nil
}

func (m Model) renderForm() string {
	f := m.form
	title := "Add provider"
	if f.editing {
		title = "Edit " + f.original
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title) + "\n\n")

	for i := 0; i < fieldCount; i++ {
		if f.editing && i == fieldName {
			continue
		}
		label := formFieldLabels[i]
		style := formLabelStyle
		if i == f.focus {
			style = formFocusStyle
		}
		b.WriteString(style.Render(label) + "\n")
		if i == fieldEnabled {
			toggle := "[ ] disabled"
			if f.enabled {
				toggle = okStyle.Render("[x] enabled")
			}
			cursor := "  "
			if f.focus == fieldEnabled {
				cursor = selectedStyle.Render("> ")
			}
			b.WriteString(cursor + toggle + "\n")
		} else {
			b.WriteString(f.inputs[i].View() + "\n")
		}
		b.WriteString("\n")
	}

	switch st := m.connStateFor(f.name()); st.status {
	case connTesting:
		b.WriteString(warnStyle.Render(m.spin.View()+" testing…") + "\n")
	case connSuccess:
		b.WriteString(okStyle.Render("✓ connection verified") + "\n")
	case connFailure:
		b.WriteString(errorStyle.Render("✗ "+truncateStatus(st.message)) + "\n")
	}
	if f.status != "" {
		b.WriteString(labelStyle.Render(f.status) + "\n")
	}

	b.WriteString("\n" + renderHelp([][2]string{
		{"tab", "next field"},
		{"ctrl+t", "test connection"},
		{"ctrl+s", "save"},
		{"esc", "cancel"},
	}))

	return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
}
