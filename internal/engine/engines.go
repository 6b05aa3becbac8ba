package engine

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// ctxCheckInterval is how many records an engine processes between
// context cancellation checks.
const ctxCheckInterval = 256

// StatsEngine computes descriptive statistics (count, mean, min, max,
// stddev) over one numeric field of the telemetry records. Records
// missing the field are skipped and counted separately.
type StatsEngine struct {
	domain string
	field  string
}

// NewStatsEngine creates a statistics engine for a domain over a field.
func NewStatsEngine(domain, field string) *StatsEngine {
	return &StatsEngine{domain: domain, field: field}
}

// Name returns the engine's domain name.
func (e *StatsEngine) Name() string { return e.domain }

// Description returns the engine's description.
func (e *StatsEngine) Description() string {
	return fmt.Sprintf("Descriptive statistics over the %q field", e.field)
}

// Analyze computes the statistics, checking ctx between record batches.
func (e *StatsEngine) Analyze(ctx context.Context, data *Dataset, cfg Config) (*AnalysisResult, error) {
	field := cfg.String("field", e.field)

	var (
		count   int
		skipped int
		sum     float64
		sumSq   float64
		minVal  = math.Inf(1)
		maxVal  = math.Inf(-1)
	)

	for i, rec := range data.Records {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, ok := numericField(rec, field)
		if !ok {
			skipped++
			continue
		}
		count++
		sum += v
		sumSq += v * v
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	result := NewAnalysisResult(e.domain)
	result.RecordCount = data.Len()

	if count == 0 {
		result.Summary = fmt.Sprintf("no records carry field %q", field)
		result.Metrics["count"] = 0
		return result, nil
	}

	mean := sum / float64(count)
	variance := sumSq/float64(count) - mean*mean
	if variance < 0 {
		variance = 0
	}

	result.Metrics["count"] = float64(count)
	result.Metrics["mean"] = mean
	result.Metrics["min"] = minVal
	result.Metrics["max"] = maxVal
	result.Metrics["stddev"] = math.Sqrt(variance)
	if skipped > 0 {
		result.Metrics["skipped"] = float64(skipped)
	}
	result.Summary = fmt.Sprintf("%s: mean %.2f over %d records", field, mean, count)
	return result, nil
}

// ThresholdEngine flags telemetry subjects whose numeric field exceeds a
// threshold. Each offending subject yields one finding; severity scales
// with how far past the threshold the worst sample landed.
type ThresholdEngine struct {
	domain    string
	field     string
	subject   string
	threshold float64
}

// NewThresholdEngine creates a threshold engine. subjectField names the
// record field that identifies who the sample belongs to (a unit
// callsign, a soldier id).
func NewThresholdEngine(domain, field, subjectField string, threshold float64) *ThresholdEngine {
	return &ThresholdEngine{
		domain:    domain,
		field:     field,
		subject:   subjectField,
		threshold: threshold,
	}
}

// Name returns the engine's domain name.
func (e *ThresholdEngine) Name() string { return e.domain }

// Description returns the engine's description.
func (e *ThresholdEngine) Description() string {
	return fmt.Sprintf("Flags subjects whose %q exceeds %.2f", e.field, e.threshold)
}

// Analyze scans for threshold violations, checking ctx between batches.
func (e *ThresholdEngine) Analyze(ctx context.Context, data *Dataset, cfg Config) (*AnalysisResult, error) {
	threshold := cfg.Float("threshold", e.threshold)

	// Track the worst excursion per subject.
	worst := make(map[string]float64)
	for i, rec := range data.Records {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		v, ok := numericField(rec, e.field)
		if !ok || v <= threshold {
			continue
		}
		subject, _ := rec[e.subject].(string)
		if subject == "" {
			subject = "unidentified"
		}
		if v > worst[subject] {
			worst[subject] = v
		}
	}

	result := NewAnalysisResult(e.domain)
	result.RecordCount = data.Len()
	result.Metrics["threshold"] = threshold
	result.Metrics["violations"] = float64(len(worst))

	subjects := make([]string, 0, len(worst))
	for s := range worst {
		subjects = append(subjects, s)
	}
	sort.Strings(subjects)

	for _, subject := range subjects {
		peak := worst[subject]
		f := NewFinding(
			fmt.Sprintf("%s exceeded %s threshold", subject, e.field),
			fmt.Sprintf("peak %s of %.2f against threshold %.2f", e.field, peak, threshold),
			severityForExcess(peak, threshold),
		).WithSubject(subject).
			WithCategory(e.domain).
			WithMetadata("peak", peak).
			WithMetadata("threshold", threshold)
		result.AddFinding(f)
	}

	if len(worst) == 0 {
		result.Summary = fmt.Sprintf("no %s samples above %.2f", e.field, threshold)
	} else {
		result.Summary = fmt.Sprintf("%d subjects exceeded the %s threshold", len(worst), e.field)
	}
	return result, nil
}

// severityForExcess grades a violation by its relative distance over the
// threshold.
func severityForExcess(value, threshold float64) FindingSeverity {
	if threshold == 0 {
		return SeverityMedium
	}
	excess := (value - threshold) / math.Abs(threshold)
	switch {
	case excess >= 1.0:
		return SeverityCritical
	case excess >= 0.5:
		return SeverityHigh
	case excess >= 0.2:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// numericField extracts a float64 from a record field, accepting the
// numeric types JSON and CSV loaders commonly produce.
func numericField(rec map[string]any, field string) (float64, bool) {
	switch v := rec[field].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Compile-time checks that the sample engines implement Engine.
var (
	_ Engine = (*StatsEngine)(nil)
	_ Engine = (*ThresholdEngine)(nil)
)
