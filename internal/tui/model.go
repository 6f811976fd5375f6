package tui

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/neubell/llm-meter/internal/config"
	"github.com/neubell/llm-meter/internal/core"
	"github.com/neubell/llm-meter/internal/meter"
	"github.com/neubell/llm-meter/internal/storage"
)

const maxStatusWidth = 80

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type screen int

const (
	screenDashboard screen = iota
	screenManager
	screenForm
	screenConfirm
	screenLogs
)

// Meter is the slice of the meter service the UI drives.
type Meter interface {
	Refresh(ctx context.Context, cfg config.Config, keys meter.KeySource, window core.TimeWindow, store meter.SnapshotStore) (core.Snapshot, error)
	TestConnection(ctx context.Context, provider, apiKey string, settings core.ProviderSettings) (core.ProviderTestReport, error)
}

// Store is the storage surface the dashboard reads and the refresh writes.
type Store interface {
	ReplaceSnapshot(ctx context.Context, since time.Time, providers []string, usage []core.UsageRecord, cost []core.CostRecord) error
	AggregateSince(ctx context.Context, since time.Time) (storage.Summary, error)
}

// Credentials is the secret store collaborator.
type Credentials interface {
	Get(provider string) (string, error)
	Set(provider, apiKey string) error
	Delete(provider string) error
	Has(provider string) bool
}

type Deps struct {
	Meter      Meter
	Store      Store
	Creds      Credentials
	Config     config.Config
	ConfigPath string
	Providers  []string // known provider names, fixed order
	Watcher    *config.Watcher
}

type refreshDoneMsg struct {
	snap    core.Snapshot
	summary storage.Summary
	err     error
}

type configChangedMsg struct{}

type confirmAction int

const (
	confirmNone confirmAction = iota
	confirmDeleteProvider
	confirmDeleteKey
)

type confirmDialog struct {
	action   confirmAction
	provider string
	prompt   string
}

type Model struct {
	meter      Meter
	store      Store
	creds      Credentials
	cfg        config.Config
	configPath string
	watcher    *config.Watcher
	providers  []string

	window      core.TimeWindow
	summary     storage.Summary
	lastRefresh time.Time
	lastAttempt time.Time
	refreshing  bool
	statusMsg   string

	screen  screen
	cursor  int
	confirm *confirmDialog
	form    *providerForm

	logProvider string
	logOffset   int

	job        *testJob
	connStates map[string]connState
	logs       *providerLogs

	spin   spinner.Model
	width  int
	height int
}

func NewModel(deps Deps) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = warnStyle

	return Model{
		meter:      deps.Meter,
		store:      deps.Store,
		creds:      deps.Creds,
		cfg:        deps.Config,
		configPath: deps.ConfigPath,
		watcher:    deps.Watcher,
		providers:  deps.Providers,
		window:     core.TimeWindow7d,
		connStates: make(map[string]connState),
		logs:        newProviderLogs(),
		spin:        sp,
		refreshing:  true,
		lastAttempt: time.Now(),
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(), m.refreshCmd(), m.spin.Tick}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForConfigChange())
	}
	return tea.Batch(cmds...)
}

func (m Model) refreshCmd() tea.Cmd {
	cfg, window := m.cfg, m.window
	svc, creds, store := m.meter, m.creds, m.store
	return func() tea.Msg {
		ctx := context.Background()
		snap, err := svc.Refresh(ctx, cfg, creds, window, store)
		if err != nil {
			return refreshDoneMsg{err: err}
		}
		summary, err := store.AggregateSince(ctx, snap.FetchedAt.Add(-window.Duration()))
		return refreshDoneMsg{snap: snap, summary: summary, err: err}
	}
}

func (m Model) waitForConfigChange() tea.Cmd {
	ch := m.watcher.Changes
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return configChangedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m = m.pollTestJob()
		if !m.refreshing && m.refreshDue() {
			return m.beginRefresh()
		}
		return m, tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case refreshDoneMsg:
		m.refreshing = false
		if msg.err != nil {
			// Keep showing the last successful aggregation.
			m.statusMsg = truncateStatus("refresh failed: " + msg.err.Error())
			log.Printf("refresh: %v", msg.err)
			return m, nil
		}
		m.summary = msg.summary
		m.lastRefresh = msg.snap.FetchedAt
		m.statusMsg = fmt.Sprintf("refreshed %d usage rows", len(msg.snap.Usage))
		return m, nil

	case configChangedMsg:
		cfg, err := config.LoadFrom(m.configPath)
		if err != nil {
			m.statusMsg = truncateStatus("config reload failed: " + err.Error())
		} else {
			m.cfg = cfg
			m.statusMsg = "config reloaded"
		}
		return m, m.waitForConfigChange()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) refreshDue() bool {
	interval := time.Duration(m.cfg.RefreshSeconds) * time.Second
	return time.Since(m.lastAttempt) >= interval
}

func (m Model) beginRefresh() (Model, tea.Cmd) {
	if m.refreshing {
		return m, tickCmd()
	}
	m.refreshing = true
	m.lastAttempt = time.Now()
	return m, tea.Batch(tickCmd(), m.refreshCmd(), m.spin.Tick)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.screen {
	case screenForm:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m.handleFormKey(msg)
	case screenConfirm:
		return m.handleConfirmKey(msg)
	case screenLogs:
		return m.handleLogsKey(msg)
	case screenManager:
		return m.handleManagerKey(msg)
	default:
		return m.handleDashboardKey(msg)
	}
}

func (m Model) handleDashboardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "w":
		m.window = core.NextTimeWindow(m.window)
		m.lastAttempt = time.Time{}
		return m, nil
	case "r":
		return m.beginRefresh()
	case "p", "m":
		m.screen = screenManager
		m.cursor = 0
		return m, nil
	}
	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "enter":
		return m.applyConfirm()
	case "n", "esc", "q":
		m.confirm = nil
		m.screen = screenManager
		return m, nil
	}
	return m, nil
}

func (m Model) applyConfirm() (tea.Model, tea.Cmd) {
	dlg := m.confirm
	m.confirm = nil
	m.screen = screenManager
	if dlg == nil {
		return m, nil
	}

	switch dlg.action {
	case confirmDeleteProvider:
		m.cfg.RemoveProvider(dlg.provider)
		if err := m.saveConfig(); err != nil {
			m.statusMsg = truncateStatus("saving config: " + err.Error())
			return m, nil
		}
		if err := m.creds.Delete(dlg.provider); err != nil {
			m.statusMsg = truncateStatus("deleting key: " + err.Error())
			return m, nil
		}
		m.logs.Clear(dlg.provider)
		delete(m.connStates, dlg.provider)
		m.statusMsg = dlg.provider + " removed"
	case confirmDeleteKey:
		if err := m.creds.Delete(dlg.provider); err != nil {
			m.statusMsg = truncateStatus("deleting key: " + err.Error())
			return m, nil
		}
		m.statusMsg = dlg.provider + " key deleted"
	}
	return m, nil
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.screen = screenManager
		return m, nil
	case "up", "k":
		if m.logOffset > 0 {
			m.logOffset--
		}
	case "down", "j":
		m.logOffset++ // capped during render
	case "g":
		m.logOffset = 0
	case "c":
		m.logs.Clear(m.logProvider)
		m.logOffset = 0
		m.statusMsg = m.logProvider + " logs cleared"
	}
	return m, nil
}

func (m *Model) saveConfig() error {
	if m.configPath == "" {
		return nil
	}
	return config.SaveTo(m.configPath, m.cfg)
}

func (m Model) View() string {
	if m.width > 0 && (m.width < 40 || m.height < 10) {
		return dimStyle.Render("\n  Terminal too small. Resize to at least 40×10.")
	}
	switch m.screen {
	case screenManager:
		return m.renderManager()
	case screenForm:
		return m.renderForm()
	case screenConfirm:
		return m.renderConfirm()
	case screenLogs:
		return m.renderLogs()
	default:
		return m.renderDashboard()
	}
}

func truncateStatus(s string) string {
	return ansi.Truncate(s, maxStatusWidth, "…")
}

func renderHelp(keys [][2]string) string {
	out := ""
	for i, kv := range keys {
		if i > 0 {
			out += helpStyle.Render(" · ")
		}
		out += helpKeyStyle.Render(kv[0]) + helpStyle.Render(" "+kv[1])
	}
	return out
}
