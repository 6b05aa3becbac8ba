package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/williamstus/AAR-Reporting-sub000/internal/engine"
	"github.com/williamstus/AAR-Reporting-sub000/internal/events"
	"github.com/williamstus/AAR-Reporting-sub000/internal/observability"
	"github.com/williamstus/AAR-Reporting-sub000/internal/orchestrator"
	"github.com/williamstus/AAR-Reporting-sub000/internal/reporting"
)

var (
	demoRecords int
	demoTimeout time.Duration
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a full analysis session over synthetic telemetry",
	Long: `demo exercises the whole pipeline end to end: it generates a
synthetic exercise telemetry dataset, registers the sample engines,
submits an analysis batch across every domain, and prints the aggregated
session report.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().IntVar(&demoRecords, "records", 2000, "Number of synthetic telemetry records")
	demoCmd.Flags().DurationVar(&demoTimeout, "timeout", 30*time.Second, "Overall session deadline")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tracerProvider, err := observability.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer observability.ShutdownTracing(context.Background(), tracerProvider)

	meterProvider, err := observability.InitMetrics(ctx, cfg.Metrics)
	if err != nil {
		return err
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Provider == "prometheus" {
		go observability.ServeMetrics(ctx, cfg.Metrics.Port, logger)
	}

	busRecorder, err := observability.NewBusMetricsRecorder(meterProvider.Meter("aar.events"))
	if err != nil {
		return err
	}

	bus := events.NewBus(
		events.WithQueueCapacity(cfg.Events.QueueCapacity),
		events.WithShards(cfg.Events.Shards),
		events.WithPublishTimeout(cfg.Events.PublishTimeout),
		events.WithLogger(logger),
		events.WithMetrics(busRecorder),
	)
	defer bus.Close(cfg.Core.ShutdownTimeout)

	collector := reporting.NewSessionCollector(logger)
	if err := collector.Attach(bus); err != nil {
		return err
	}
	defer collector.Detach()

	orch, err := orchestrator.New(bus,
		orchestrator.WithWorkers(cfg.Scheduler.Workers),
		orchestrator.WithQueueCapacity(cfg.Scheduler.QueueCapacity),
		orchestrator.WithPollInterval(cfg.Scheduler.PollInterval),
		orchestrator.WithDefaultTaskTimeout(cfg.Scheduler.TaskTimeout),
		orchestrator.WithLogger(logger),
		orchestrator.WithTracer(tracerProvider.Tracer("orchestrator")),
	)
	if err != nil {
		return err
	}
	defer orch.Stop(cfg.Core.ShutdownTimeout)

	for _, eng := range demoEngines() {
		if err := orch.RegisterEngine(eng); err != nil {
			return err
		}
	}
	if err := orch.Start(ctx); err != nil {
		return err
	}

	dataset := syntheticDataset(demoRecords)
	logger.Info("session starting",
		"records", dataset.Len(), "domains", orch.Domains())

	sessionCtx, cancel := context.WithTimeout(ctx, demoTimeout)
	defer cancel()

	results, err := orch.AnalyzeAllDomains(sessionCtx, dataset, nil)
	if err != nil {
		return fmt.Errorf("session did not finish: %w", err)
	}
	for _, result := range results {
		collector.ObserveResult(result)
	}

	// Let the last completion events drain to the collector.
	time.Sleep(100 * time.Millisecond)
	fmt.Fprintln(cmd.OutOrStdout(), collector.Summary().Render())
	return nil
}

// demoEngines returns the sample engine set for the synthetic dataset.
func demoEngines() []engine.Engine {
	return []engine.Engine{
		engine.NewStatsEngine("latency", "latency_ms"),
		engine.NewStatsEngine("activity", "events_per_min"),
		engine.NewThresholdEngine("safety", "speed_kmh", "callsign", 80),
		engine.NewThresholdEngine("casualty", "casualty_rate", "callsign", 0.25),
	}
}

// syntheticDataset fabricates n telemetry records across a handful of
// unit callsigns, with occasional excursions so the threshold engines
// have something to find.
func syntheticDataset(n int) *engine.Dataset {
	callsigns := []string{"ALPHA-1", "ALPHA-2", "BRAVO-1", "BRAVO-2", "CHARLIE-1"}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	records := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		rec := map[string]any{
			"callsign":       callsigns[i%len(callsigns)],
			"latency_ms":     20 + rng.Float64()*60,
			"events_per_min": 5 + rng.Float64()*40,
			"speed_kmh":      30 + rng.Float64()*45,
			"casualty_rate":  rng.Float64() * 0.2,
		}
		// Sprinkle in threshold violations.
		if rng.Intn(50) == 0 {
			rec["speed_kmh"] = 85 + rng.Float64()*80
		}
		if rng.Intn(80) == 0 {
			rec["casualty_rate"] = 0.3 + rng.Float64()*0.4
		}
		records = append(records, rec)
	}

	return &engine.Dataset{Name: "synthetic-exercise", Records: records}
}
