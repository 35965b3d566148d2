// Package runstate holds the per-run context passed explicitly through every
// pipeline step: collected project data, the blackboard, the client event
// emitter and the checkpoint writer.
//
// A Run is owned by one pipeline goroutine and is not safe for concurrent use.
// Independent runs share no mutable state.
package runstate

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
)

// Client event names.
const (
	EventStatus     = "status"
	EventBlackboard = "blackboard"
	EventSlide      = "slide"
	EventComplete   = "complete"
	EventError      = "error"
)

// Emitter delivers named events to the client stream.
type Emitter interface {
	Emit(name string, data any) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(name string, data any) error

// Emit calls f.
func (f EmitterFunc) Emit(name string, data any) error {
	return f(name, data)
}

// Checkpointer persists run progress. Both the data store client and the
// Redis blackboard client implement it.
type Checkpointer interface {
	UpdatePresentation(ctx context.Context, cp *blackboard.Checkpoint) error
	AppendBlackboard(ctx context.Context, presentationID, shareToken string, e *blackboard.Entry) error
}

// StatusEvent is the payload of a status event.
type StatusEvent struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
	Current int    `json:"current,omitempty"`
	Total   int    `json:"total,omitempty"`
}

// CompleteEvent is the payload of the terminal complete event.
type CompleteEvent struct {
	PresentationID  string `json:"presentationId"`
	SlideCount      int    `json:"slideCount"`
	BlackboardCount int    `json:"blackboardCount"`
	Model           string `json:"model"`
}

// ErrorEvent is the payload of the terminal error event.
type ErrorEvent struct {
	Message string `json:"message"`
}

// Request identifies one generation run.
type Request struct {
	ProjectID      string
	PresentationID string
	ShareToken     string
	Mode           deck.Mode
	TargetSlides   int
	InitialPrompt  string
}

// Run is the run-scoped context.
type Run struct {
	Request

	// Data is filled by the collector, one field per read.
	Data CollectedData

	// Metrics is filled by the insight synthesizer.
	Metrics Metrics

	entries  []*blackboard.Entry
	emitter  Emitter
	store    Checkpointer
	metadata map[string]any
}

// New creates a run for req. emitter and store must not be nil.
func New(req Request, emitter Emitter, store Checkpointer) *Run {
	return &Run{
		Request:  req,
		Data:     NewCollectedData(),
		emitter:  emitter,
		store:    store,
		metadata: map[string]any{},
	}
}

// Append adds an entry to the blackboard. The order is fixed: the entry is
// appended in memory, then streamed, then persisted. Stream and persist
// failures are logged and do not fail the run.
func (r *Run) Append(ctx context.Context, e *blackboard.Entry) {
	r.entries = append(r.entries, e)

	if err := r.emitter.Emit(EventBlackboard, e); err != nil {
		log.Printf("[Run] Failed to stream blackboard entry %s for presentation %s: %v", e.ID, r.PresentationID, err)
	}

	if err := r.store.AppendBlackboard(ctx, r.PresentationID, r.ShareToken, e); err != nil {
		log.Printf("[Run] Failed to persist blackboard entry %s for presentation %s: %v", e.ID, r.PresentationID, err)
	}
}

// Blackboard returns the entries appended so far, in order.
func (r *Run) Blackboard() []*blackboard.Entry {
	out := make([]*blackboard.Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Emit streams a raw event.
func (r *Run) Emit(name string, data any) error {
	return r.emitter.Emit(name, data)
}

// Status streams a status event. Stream failures are logged.
func (r *Run) Status(phase, message string, current, total int) {
	ev := StatusEvent{Phase: phase, Message: message, Current: current, Total: total}
	if err := r.emitter.Emit(EventStatus, ev); err != nil {
		log.Printf("[Run] Failed to stream status for presentation %s: %v", r.PresentationID, err)
	}
}

// SetMetadata records a value carried in every later checkpoint.
func (r *Run) SetMetadata(key string, value any) {
	r.metadata[key] = value
}

// Checkpoint overwrites the persisted state with the current blackboard, the
// given slides and the accumulated metadata. Writes are full overwrites keyed
// by presentation id and share token; concurrent runs for the same
// presentation race and the last write wins.
func (r *Run) Checkpoint(ctx context.Context, status blackboard.Status, slides []deck.GeneratedSlide) error {
	metadata := make(map[string]any, len(r.metadata)+1)
	for k, v := range r.metadata {
		metadata[k] = v
	}
	metadata["checkpointedAt"] = time.Now().UTC().Format(time.RFC3339)

	if slides == nil {
		slides = []deck.GeneratedSlide{}
	}

	cp := &blackboard.Checkpoint{
		PresentationID: r.PresentationID,
		ShareToken:     r.ShareToken,
		Status:         status,
		Slides:         slides,
		Blackboard:     r.Blackboard(),
		Metadata:       metadata,
	}

	if err := r.store.UpdatePresentation(ctx, cp); err != nil {
		log.Printf("[Run] Checkpoint %s failed for presentation %s: %v", status, r.PresentationID, err)
		return fmt.Errorf("failed to checkpoint %s: %w", status, err)
	}

	return nil
}
