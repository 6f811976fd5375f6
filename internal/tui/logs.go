package tui

import (
	"time"

	"github.com/neubell/llm-meter/internal/core"
)

// maxLogEntries bounds each provider's activity log. Appending beyond the
// cap evicts the oldest entry; providers never evict each other's entries.
const maxLogEntries = 100

type logEntry struct {
	Time    time.Time
	Event   string
	Message string
}

type providerLogs struct {
	entries map[string][]logEntry
}

func newProviderLogs() *providerLogs {
	return &providerLogs{entries: make(map[string][]logEntry)}
}

func (l *providerLogs) Append(provider, event, message string) {
	key := core.NormalizeProviderName(provider)
	log := append(l.entries[key], logEntry{Time: time.Now().UTC(), Event: event, Message: message})
	if len(log) > maxLogEntries {
		log = log[len(log)-maxLogEntries:]
	}
	l.entries[key] = log
}

// For returns the provider's log, oldest first.
func (l *providerLogs) For(provider string) []logEntry {
	return l.entries[core.NormalizeProviderName(provider)]
}

func (l *providerLogs) Clear(provider string) {
	delete(l.entries, core.NormalizeProviderName(provider))
}
