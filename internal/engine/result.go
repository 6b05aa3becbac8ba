package engine

import (
	"time"

	"github.com/williamstus/AAR-Reporting-sub000/internal/types"
)

// AnalysisResult is the product of one engine run over one dataset.
type AnalysisResult struct {
	// Domain names the analysis domain that produced the result.
	Domain string `json:"domain"`

	// Summary is a short human-readable description of the outcome.
	Summary string `json:"summary"`

	// Metrics holds named scalar outputs (means, rates, percentiles).
	Metrics map[string]float64 `json:"metrics,omitempty"`

	// Findings lists notable observations ranked by severity.
	Findings []Finding `json:"findings,omitempty"`

	// Details carries engine-specific structured output for renderers.
	Details map[string]any `json:"details,omitempty"`

	// RecordCount is the number of telemetry records analyzed.
	RecordCount int `json:"record_count"`

	// GeneratedAt records when the engine finished.
	GeneratedAt time.Time `json:"generated_at"`
}

// NewAnalysisResult creates an empty result for a domain, stamped now.
func NewAnalysisResult(domain string) *AnalysisResult {
	return &AnalysisResult{
		Domain:      domain,
		Metrics:     make(map[string]float64),
		Findings:    []Finding{},
		GeneratedAt: time.Now().UTC(),
	}
}

// AddFinding appends a finding to the result.
func (r *AnalysisResult) AddFinding(f Finding) {
	r.Findings = append(r.Findings, f)
}

// FindingsBySeverity returns the count of findings at each severity.
func (r *AnalysisResult) FindingsBySeverity() map[FindingSeverity]int {
	counts := make(map[FindingSeverity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	return counts
}

// FindingSeverity represents the severity level of a finding
type FindingSeverity string

const (
	SeverityCritical FindingSeverity = "critical"
	SeverityHigh     FindingSeverity = "high"
	SeverityMedium   FindingSeverity = "medium"
	SeverityLow      FindingSeverity = "low"
	SeverityInfo     FindingSeverity = "info"
)

// Rank orders severities from most severe (0) to least. Unknown
// severities rank last.
func (s FindingSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	case SeverityInfo:
		return 4
	default:
		return 5
	}
}

// Finding represents a notable observation discovered during analysis,
// such as a unit exceeding a casualty threshold or a network segment with
// degraded throughput.
type Finding struct {
	ID          types.ID        `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    FindingSeverity `json:"severity"`
	Confidence  float64         `json:"confidence"` // 0.0 - 1.0
	Category    string          `json:"category"`

	// Subject identifies what the finding is about: a unit callsign, a
	// soldier identifier, a network segment.
	Subject string `json:"subject,omitempty"`

	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewFinding creates a new finding
func NewFinding(title, description string, severity FindingSeverity) Finding {
	return Finding{
		ID:          types.NewID(),
		Title:       title,
		Description: description,
		Severity:    severity,
		Confidence:  1.0,
		Metadata:    make(map[string]any),
		CreatedAt:   time.Now().UTC(),
	}
}

// WithConfidence sets the confidence level for a finding
func (f Finding) WithConfidence(confidence float64) Finding {
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	f.Confidence = confidence
	return f
}

// WithCategory sets the category for a finding
func (f Finding) WithCategory(category string) Finding {
	f.Category = category
	return f
}

// WithSubject sets the subject for a finding
func (f Finding) WithSubject(subject string) Finding {
	f.Subject = subject
	return f
}

// WithMetadata adds a metadata entry to a finding
func (f Finding) WithMetadata(key string, value any) Finding {
	if f.Metadata == nil {
		f.Metadata = make(map[string]any)
	}
	f.Metadata[key] = value
	return f
}
