package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/neubell/llm-meter/internal/core"
)

const testJobTimeout = 35 * time.Second

type testOrigin int

const (
	originManager testOrigin = iota
	originForm
)

type connStatus int

const (
	connUntested connStatus = iota
	connTesting
	connSuccess
	connFailure
)

type connState struct {
	status  connStatus
	message string
}

type testResult struct {
	provider string
	origin   testOrigin
	report   core.ProviderTestReport
	err      error
}

// testJob is the single outstanding connection test. Its result arrives on
// the 1-buffered done channel so the worker never blocks on delivery; the
// event loop drains it non-blockingly each tick.
type testJob struct {
	provider string
	origin   testOrigin
	started  time.Time
	done     chan testResult
}

// startTest enqueues a connection test. At most one test may be outstanding;
// a second enqueue is rejected and leaves the running job untouched.
func (m Model) startTest(provider, apiKey string, settings core.ProviderSettings, origin testOrigin) Model {
	if m.job != nil {
		m.statusMsg = "Another test is running"
		return m
	}

	job := &testJob{
		provider: core.NormalizeProviderName(provider),
		origin:   origin,
		started:  time.Now(),
		done:     make(chan testResult, 1),
	}
	m.job = job
	m.connStates[job.provider] = connState{status: connTesting}
	m.statusMsg = fmt.Sprintf("testing %s…", job.provider)

	svc := m.meter
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), testJobTimeout)
		defer cancel()
		report, err := svc.TestConnection(ctx, job.provider, apiKey, settings)
		job.done <- testResult{provider: job.provider, origin: job.origin, report: report, err: err}
	}()
	return m
}

// pollTestJob harvests a finished test without ever blocking the loop.
func (m Model) pollTestJob() Model {
	if m.job == nil {
		return m
	}
	select {
	case res := <-m.job.done:
		m.job = nil
		return m.handleTestResult(res)
	default:
		return m
	}
}

func (m Model) handleTestResult(res testResult) Model {
	if res.err != nil {
		msg := res.err.Error()
		m.connStates[res.provider] = connState{status: connFailure, message: msg}
		detail := msg
		if res.report.StatusCode != 0 {
			detail = fmt.Sprintf("%s (HTTP %d, %s)", msg, res.report.StatusCode, res.report.Duration.Round(time.Millisecond))
		}
		m.logs.Append(res.provider, "test_failed", detail)
		m.statusMsg = truncateStatus(fmt.Sprintf("%s: test failed: %s", res.provider, msg))

		// Form-visible effects apply only while the originating form for
		// the same provider is still open; navigating away discards them.
		if res.origin == originForm && m.formOpenFor(res.provider) {
			m.form.enabled = false
			m.form.status = truncateStatus("test failed: " + msg)
		}
		return m
	}

	m.connStates[res.provider] = connState{status: connSuccess}
	m.logs.Append(res.provider, "test_succeeded",
		fmt.Sprintf("HTTP %d in %s", res.report.StatusCode, res.report.Duration.Round(time.Millisecond)))
	m.statusMsg = fmt.Sprintf("%s: connection OK (HTTP %d)", res.provider, res.report.StatusCode)

	if res.origin == originForm && m.formOpenFor(res.provider) {
		m.form.status = "connection verified"
	}
	return m
}

func (m Model) formOpenFor(provider string) bool {
	return m.screen == screenForm && m.form != nil &&
		core.NormalizeProviderName(m.form.name()) == provider
}

func (m Model) connStateFor(provider string) connState {
	return m.connStates[core.NormalizeProviderName(provider)]
}
