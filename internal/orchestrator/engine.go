package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/pitch/internal/collector"
	"github.com/dyluth/pitch/internal/datastore"
	"github.com/dyluth/pitch/internal/generator"
	"github.com/dyluth/pitch/internal/imagegen"
	"github.com/dyluth/pitch/internal/llm"
	"github.com/dyluth/pitch/internal/metrics"
	"github.com/dyluth/pitch/internal/planner"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
)

// ErrMissingCredential is returned when no model client is configured.
var ErrMissingCredential = errors.New("LLM API key is not configured")

// Status phases streamed between the collector and generator phases.
const (
	PhaseAnalyzing = "analyzing"
	PhasePlanning  = "planning"
	PhaseEnriching = "enriching"
	PhaseSaving    = "saving"
)

// Config wires the engine's collaborators.
type Config struct {
	Source datastore.Source
	Store  runstate.Checkpointer

	// LLM is nil when no API key is configured. Every run then fails fast
	// with a single error event.
	LLM llm.Client

	// Images is optional; nil skips the enrichment pass.
	Images      imagegen.Generator
	EnrichLimit int

	Planner   planner.Options
	Generator generator.Options
	Recorder  metrics.Recorder

	InstanceName string
}

// Engine runs the presentation pipeline. It holds no per-run state, so one
// engine serves any number of concurrent runs.
type Engine struct {
	collector    *collector.Collector
	planner      *planner.Planner
	generator    *generator.Generator
	client       llm.Client
	images       imagegen.Generator
	enrichLimit  int
	store        runstate.Checkpointer
	recorder     metrics.Recorder
	instanceName string
}

// NewEngine creates a pipeline engine.
func NewEngine(cfg Config) *Engine {
	recorder := cfg.Recorder
	if recorder == nil {
		recorder = metrics.Nop()
	}
	store := cfg.Store
	if store == nil {
		store = runstate.Discard
	}

	e := &Engine{
		collector:    collector.New(cfg.Source, recorder),
		client:       cfg.LLM,
		images:       cfg.Images,
		enrichLimit:  cfg.EnrichLimit,
		store:        store,
		recorder:     recorder,
		instanceName: cfg.InstanceName,
	}
	if cfg.LLM != nil {
		e.planner = planner.New(cfg.LLM, cfg.Planner)
		e.generator = generator.New(cfg.LLM, cfg.Generator, recorder)
	}
	return e
}

// Generate runs one presentation end to end, streaming every event to
// emitter. The stream ends with exactly one complete or error event.
func (e *Engine) Generate(ctx context.Context, req runstate.Request, emitter runstate.Emitter) (err error) {
	if e.client == nil {
		e.recorder.IncRun("rejected")
		e.emitError(emitter, req.PresentationID, ErrMissingCredential)
		return ErrMissingCredential
	}

	run := runstate.New(req, emitter, e.store)
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = e.fail(ctx, run, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	run.SetMetadata("model", e.client.Model())
	run.SetMetadata("mode", string(req.Mode))
	run.SetMetadata("targetSlides", req.TargetSlides)
	run.SetMetadata("startedAt", started.UTC().Format(time.RFC3339))

	e.logEvent("run_started", map[string]interface{}{
		"presentation_id": req.PresentationID,
		"project_id":      req.ProjectID,
		"mode":            req.Mode,
		"target_slides":   req.TargetSlides,
	})

	// Collect
	results := e.collector.CollectAll(ctx, run)
	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	e.logEvent("collection_complete", map[string]interface{}{
		"presentation_id": req.PresentationID,
		"reads":           len(results),
		"failed_reads":    failed,
		"entries":         len(run.Blackboard()),
	})

	// Synthesize
	run.Status(PhaseAnalyzing, "Synthesizing project insights", 0, 0)
	m := collector.Synthesize(ctx, run)
	run.SetMetadata("metrics", m)
	_ = run.Checkpoint(ctx, blackboard.StatusAnalyzed, nil)

	// Plan
	run.Status(PhasePlanning, fmt.Sprintf("Planning %d slides", req.TargetSlides), 0, 0)
	outlines, source := e.plan(ctx, run)
	run.SetMetadata("outlineSource", string(source))
	run.Append(ctx, blackboard.NewEntry("plan.outline", blackboard.CategoryDecision,
		fmt.Sprintf("Planned %d slides (%s outline)", len(outlines), describeSource(source)),
		map[string]any{"source": source, "titles": outlineTitles(outlines)}))

	// Generate
	slides := e.generator.GenerateAll(ctx, run, outlines)

	// Enrich
	if e.images != nil {
		run.Status(PhaseEnriching, "Generating images", 0, 0)
		n := e.generator.Enrich(ctx, run, slides, e.images, e.enrichLimit)
		e.logEvent("enrichment_complete", map[string]interface{}{
			"presentation_id": req.PresentationID,
			"images":          n,
		})
	}

	// Complete
	run.Status(PhaseSaving, "Saving presentation", 0, 0)
	run.SetMetadata("completedAt", time.Now().UTC().Format(time.RFC3339))
	run.SetMetadata("durationMs", time.Since(started).Milliseconds())
	if err := run.Checkpoint(ctx, blackboard.StatusCompleted, slides); err != nil {
		return e.fail(ctx, run, err)
	}

	complete := runstate.CompleteEvent{
		PresentationID:  req.PresentationID,
		SlideCount:      len(slides),
		BlackboardCount: len(run.Blackboard()),
		Model:           e.client.Model(),
	}
	if err := run.Emit(runstate.EventComplete, complete); err != nil {
		log.Printf("[Orchestrator] Failed to stream completion for presentation %s: %v", req.PresentationID, err)
	}

	e.recorder.IncRun("completed")
	e.logEvent("run_completed", map[string]interface{}{
		"presentation_id":  req.PresentationID,
		"slides":           len(slides),
		"blackboard_count": complete.BlackboardCount,
		"duration_ms":      time.Since(started).Milliseconds(),
	})

	return nil
}

// plan requests the outline and falls back to the fixed outline on failure.
func (e *Engine) plan(ctx context.Context, run *runstate.Run) ([]deck.SlideOutline, deck.Source) {
	outlines, err := e.planner.Plan(ctx, run)
	if err == nil {
		return outlines, deck.SourceModel
	}

	log.Printf("[Orchestrator] Outline generation failed for presentation %s, using fallback outline: %v", run.PresentationID, err)
	e.logEvent("outline_fallback", map[string]interface{}{
		"presentation_id": run.PresentationID,
		"error":           err.Error(),
	})
	return planner.FallbackOutline(run.Data.ProjectName()), deck.SourceFallback
}

// fail marks the presentation failed (best effort) and streams one error event.
func (e *Engine) fail(ctx context.Context, run *runstate.Run, err error) error {
	log.Printf("[Orchestrator] Run failed for presentation %s: %v", run.PresentationID, err)

	run.SetMetadata("error", err.Error())
	_ = run.Checkpoint(ctx, blackboard.StatusFailed, nil)

	e.recorder.IncRun("failed")
	e.emitError(run, run.PresentationID, err)
	e.logEvent("run_failed", map[string]interface{}{
		"presentation_id": run.PresentationID,
		"error":           err.Error(),
	})
	return err
}

func (e *Engine) emitError(emitter runstate.Emitter, presentationID string, err error) {
	if emitErr := emitter.Emit(runstate.EventError, runstate.ErrorEvent{Message: err.Error()}); emitErr != nil {
		log.Printf("[Orchestrator] Failed to stream error for presentation %s: %v", presentationID, emitErr)
	}
}

// logEvent logs a structured event in JSON format.
func (e *Engine) logEvent(eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "orchestrator"
	data["event_type"] = eventType
	data["instance"] = e.instanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Orchestrator] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}

func describeSource(s deck.Source) string {
	if s == deck.SourceFallback {
		return "fallback"
	}
	return "model"
}

func outlineTitles(outlines []deck.SlideOutline) []string {
	titles := make([]string, len(outlines))
	for i, o := range outlines {
		titles[i] = o.Title
	}
	return titles
}
