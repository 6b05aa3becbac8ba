// Package reporting aggregates analysis lifecycle events into session
// summaries. The SessionCollector is the service's in-process consumer of
// the event bus: report renderers and UI panels read its snapshots
// instead of coupling to the scheduler.
package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/engine"
	"github.com/williamstus/AAR-Reporting-sub000/internal/events"
	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// handlerID identifies the collector's bus subscription; re-subscribing
// the same collector replaces the handler instead of duplicating it.
const handlerID = "reporting.session_collector"

// DomainOutcome summarizes the latest terminal run of one domain.
type DomainOutcome struct {
	Domain   string        `json:"domain"`
	Status   string        `json:"status"`
	Duration time.Duration `json:"duration,omitempty"`
	Error    string        `json:"error,omitempty"`
	Findings int           `json:"findings"`
}

// Summary is a point-in-time aggregation of observed task lifecycle
// events since the collector started (or was last reset).
type Summary struct {
	// Status tracks the observed analysis session: active after
	// session.started, completed after session.completed, aborted when
	// the scheduler stops mid-session. Empty before any session begins.
	Status types.SessionStatus `json:"status,omitempty"`

	Submitted int `json:"submitted"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`

	// TotalDuration sums engine execution time across completed tasks.
	TotalDuration time.Duration `json:"total_duration"`

	// FindingsBySeverity counts findings reported in completion events.
	FindingsBySeverity map[engine.FindingSeverity]int `json:"findings_by_severity,omitempty"`

	// Domains holds the latest outcome per domain, sorted by name.
	Domains []DomainOutcome `json:"domains,omitempty"`

	// HandlerPanics counts bus diagnostic events observed.
	HandlerPanics int `json:"handler_panics,omitempty"`
}

// SessionCollector subscribes to task lifecycle events and maintains a
// running session summary. Safe for concurrent use.
type SessionCollector struct {
	logger *slog.Logger

	mu       sync.Mutex
	summary  Summary
	outcomes map[string]DomainOutcome
	severity map[engine.FindingSeverity]int
	attached bool
	detach   func()
}

// NewSessionCollector creates an idle collector; call Attach to start
// observing a bus.
func NewSessionCollector(logger *slog.Logger) *SessionCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionCollector{
		logger:   logger,
		outcomes: make(map[string]DomainOutcome),
		severity: make(map[engine.FindingSeverity]int),
	}
}

// collectedTypes lists the event types the collector folds into its
// summary; everything else on the bus is filtered out before delivery.
var collectedTypes = []events.EventType{
	events.EventTaskSubmitted,
	events.EventTaskCompleted,
	events.EventTaskFailed,
	events.EventTaskCancelled,
	events.EventSessionStarted,
	events.EventSessionCompleted,
	events.EventOrchestratorStopped,
	events.EventHandlerPanic,
}

// Attach subscribes the collector to the bus through a single filtered
// wildcard registration. The subscription uses a late priority so
// domain-level consumers observe events first.
func (c *SessionCollector) Attach(bus events.EventBus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attached {
		return nil
	}

	filter := events.Filter{Types: collectedTypes}
	if err := bus.SubscribeFiltered(events.EventWildcard, handlerID, 100, filter, c.handle); err != nil {
		return fmt.Errorf("failed to subscribe collector: %w", err)
	}
	c.detach = func() { bus.Unsubscribe(events.EventWildcard, handlerID) }
	c.attached = true
	return nil
}

// Detach removes the collector's bus subscription. Idempotent.
func (c *SessionCollector) Detach() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detach != nil {
		c.detach()
		c.detach = nil
	}
	c.attached = false
}

// handle folds one event into the running summary.
func (c *SessionCollector) handle(ctx context.Context, evt events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch evt.Type {
	case events.EventTaskSubmitted:
		c.summary.Submitted++

	case events.EventTaskCompleted:
		c.summary.Completed++
		outcome := DomainOutcome{Domain: evt.Domain, Status: "completed"}
		if payload, ok := evt.Payload.(events.TaskCompletedPayload); ok {
			c.summary.TotalDuration += payload.Duration
			outcome.Duration = payload.Duration
			outcome.Findings = payload.FindingCount
		}
		c.outcomes[evt.Domain] = outcome

	case events.EventTaskFailed:
		c.summary.Failed++
		outcome := DomainOutcome{Domain: evt.Domain, Status: "failed"}
		if payload, ok := evt.Payload.(events.TaskFailedPayload); ok {
			outcome.Duration = payload.Duration
			outcome.Error = payload.Error
		}
		c.outcomes[evt.Domain] = outcome

	case events.EventTaskCancelled:
		c.summary.Cancelled++
		c.outcomes[evt.Domain] = DomainOutcome{Domain: evt.Domain, Status: "cancelled"}

	case events.EventSessionStarted:
		c.summary.Status = types.SessionStatusActive

	case events.EventSessionCompleted:
		c.summary.Status = types.SessionStatusCompleted

	case events.EventOrchestratorStopped:
		if c.summary.Status == types.SessionStatusActive {
			c.summary.Status = types.SessionStatusAborted
		}

	case events.EventHandlerPanic:
		c.summary.HandlerPanics++
	}
	return nil
}

// ObserveResult folds a completed analysis result's findings into the
// severity tally. Completion events only carry counts; callers that hold
// the full result (the CLI, the synchronous facade) feed it here.
func (c *SessionCollector) ObserveResult(result *engine.AnalysisResult) {
	if result == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for severity, n := range result.FindingsBySeverity() {
		c.severity[severity] += n
	}
}

// Summary returns a snapshot of the aggregated session state.
func (c *SessionCollector) Summary() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := c.summary
	out.FindingsBySeverity = make(map[engine.FindingSeverity]int, len(c.severity))
	for severity, n := range c.severity {
		out.FindingsBySeverity[severity] = n
	}
	out.Domains = make([]DomainOutcome, 0, len(c.outcomes))
	for _, outcome := range c.outcomes {
		out.Domains = append(out.Domains, outcome)
	}
	sort.Slice(out.Domains, func(i, j int) bool {
		return out.Domains[i].Domain < out.Domains[j].Domain
	})
	return out
}

// Reset clears the aggregated state for a new session.
func (c *SessionCollector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary = Summary{}
	c.outcomes = make(map[string]DomainOutcome)
	c.severity = make(map[engine.FindingSeverity]int)
}

// severityOrder lists severities from most to least severe for rendering.
var severityOrder = []engine.FindingSeverity{
	engine.SeverityCritical,
	engine.SeverityHigh,
	engine.SeverityMedium,
	engine.SeverityLow,
	engine.SeverityInfo,
}

// Render formats the summary as a plain-text session report.
func (s Summary) Render() string {
	var b strings.Builder
	b.WriteString("Session Analysis Report\n")
	b.WriteString("=======================\n")
	if s.Status != "" {
		fmt.Fprintf(&b, "Session: %s\n", s.Status)
	}
	fmt.Fprintf(&b, "Tasks: %d submitted, %d completed, %d failed, %d cancelled\n",
		s.Submitted, s.Completed, s.Failed, s.Cancelled)
	fmt.Fprintf(&b, "Total analysis time: %s\n", s.TotalDuration.Round(time.Millisecond))

	if len(s.Domains) > 0 {
		b.WriteString("\nDomains:\n")
		for _, outcome := range s.Domains {
			fmt.Fprintf(&b, "  %-20s %-10s", outcome.Domain, outcome.Status)
			if outcome.Status == "completed" {
				fmt.Fprintf(&b, " %s, %d findings",
					outcome.Duration.Round(time.Millisecond), outcome.Findings)
			}
			if outcome.Error != "" {
				fmt.Fprintf(&b, " %s", outcome.Error)
			}
			b.WriteString("\n")
		}
	}

	total := 0
	for _, n := range s.FindingsBySeverity {
		total += n
	}
	if total > 0 {
		b.WriteString("\nFindings by severity:\n")
		for _, severity := range severityOrder {
			if n := s.FindingsBySeverity[severity]; n > 0 {
				fmt.Fprintf(&b, "  %-10s %d\n", severity, n)
			}
		}
	}

	if s.HandlerPanics > 0 {
		fmt.Fprintf(&b, "\nDiagnostics: %d handler panic(s) observed\n", s.HandlerPanics)
	}
	return b.String()
}
