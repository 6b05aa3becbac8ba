// Package engine defines the analysis engine capability and its registry.
//
// An engine is any component that can analyze exercise telemetry for one
// named domain (latency, movement, casualty rates, equipment health).
// Engines are the extension point of the analysis core: the orchestrator
// schedules them but never looks inside their datasets or results.
package engine

import (
	"context"
	"fmt"
	"time"
)

// Dataset is the telemetry slice handed to engines. The scheduler treats
// it as opaque; each engine defines which record fields it needs.
type Dataset struct {
	// Name labels the dataset for logs and reports (e.g. the source file
	// or exercise identifier).
	Name string `json:"name"`

	// Records holds one map per telemetry sample.
	Records []map[string]any `json:"records"`
}

// Len returns the number of records. Safe on a nil dataset.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Config carries per-run engine options as loose key-value pairs.
// Engines read what they understand and ignore the rest.
type Config map[string]any

// String returns the string value for key, or def when absent or not a string.
func (c Config) String(key, def string) string {
	if v, ok := c[key].(string); ok {
		return v
	}
	return def
}

// Float returns the numeric value for key, or def when absent.
// Accepts float64 and int values.
func (c Config) Float(key string, def float64) float64 {
	switch v := c[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return def
	}
}

// Int returns the integer value for key, or def when absent.
func (c Config) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

// Bool returns the boolean value for key, or def when absent.
func (c Config) Bool(key string, def bool) bool {
	if v, ok := c[key].(bool); ok {
		return v
	}
	return def
}

// Engine is the capability every analysis domain implements.
//
// Analyze must honor ctx cancellation: when ctx is done, return promptly
// with ctx.Err() (or a partial result and nil error if the engine chooses
// to salvage work). Long-running engines should check ctx between record
// batches.
type Engine interface {
	// Name returns the unique domain name this engine analyzes.
	Name() string

	// Description returns a human-readable description of the analysis.
	Description() string

	// Analyze runs the engine over a dataset with per-run options.
	Analyze(ctx context.Context, data *Dataset, cfg Config) (*AnalysisResult, error)
}

// AnalyzeFunc is the signature of a bare analysis function.
type AnalyzeFunc func(ctx context.Context, data *Dataset, cfg Config) (*AnalysisResult, error)

// Func adapts a bare function into an Engine, for tests and lightweight
// engines that need no state.
type Func struct {
	name        string
	description string
	fn          AnalyzeFunc
}

// NewFunc wraps fn as an Engine with the given name and description.
func NewFunc(name, description string, fn AnalyzeFunc) (*Func, error) {
	if name == "" {
		return nil, fmt.Errorf("engine name cannot be empty")
	}
	if fn == nil {
		return nil, fmt.Errorf("engine function cannot be nil")
	}
	return &Func{name: name, description: description, fn: fn}, nil
}

// Name returns the engine's domain name.
func (f *Func) Name() string { return f.name }

// Description returns the engine's description.
func (f *Func) Description() string { return f.description }

// Analyze invokes the wrapped function.
func (f *Func) Analyze(ctx context.Context, data *Dataset, cfg Config) (*AnalysisResult, error) {
	return f.fn(ctx, data, cfg)
}

// Compile-time check that Func implements Engine.
var _ Engine = (*Func)(nil)

// Descriptor summarizes a registered engine for listings.
type Descriptor struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	RegisteredAt time.Time `json:"registered_at"`
}
