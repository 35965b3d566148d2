package blackboard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dyluth/pitch/pkg/deck"
	"github.com/google/uuid"
)

// Entry is an immutable, timestamped note produced by a collection or synthesis step.
// Entries accumulate monotonically for the duration of a run.
type Entry struct {
	ID        string    `json:"id"`             // UUID - unique identifier for this entry
	Timestamp time.Time `json:"timestamp"`      // When the producing step appended it
	Source    string    `json:"source"`         // Producing step name (e.g., "collect.canvas")
	Category  Category  `json:"category"`       // Kind of note
	Content   string    `json:"content"`        // Human-readable text
	Data      any       `json:"data,omitempty"` // Optional structured payload
}

// Category classifies a blackboard entry.
type Category string

const (
	// CategoryObservation records a plain fact read from the project
	CategoryObservation Category = "observation"

	// CategoryInsight records an interpretation derived from observations
	CategoryInsight Category = "insight"

	// CategoryQuestion records an open question raised during analysis
	CategoryQuestion Category = "question"

	// CategoryDecision records a choice made by the pipeline
	CategoryDecision Category = "decision"

	// CategoryEstimate records a computed score or projection
	CategoryEstimate Category = "estimate"

	// CategoryAnalysis records a heuristic classification of collected data
	CategoryAnalysis Category = "analysis"

	// CategoryNarrative records summary prose intended for the audience
	CategoryNarrative Category = "narrative"
)

// NewEntry builds an entry with a fresh UUID and the current UTC time.
func NewEntry(source string, category Category, content string, data any) *Entry {
	return &Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Source:    source,
		Category:  category,
		Content:   content,
		Data:      data,
	}
}

// Validate checks if the Entry has valid field values.
func (e *Entry) Validate() error {
	if !isValidUUID(e.ID) {
		return fmt.Errorf("invalid entry ID: not a valid UUID")
	}

	if e.Source == "" {
		return fmt.Errorf("entry source cannot be empty")
	}

	if err := e.Category.Validate(); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}

	if e.Content == "" {
		return fmt.Errorf("entry content cannot be empty")
	}

	if e.Timestamp.IsZero() {
		return fmt.Errorf("entry timestamp cannot be zero")
	}

	return nil
}

// Validate checks if the Category is a valid enum value.
func (c Category) Validate() error {
	switch c {
	case CategoryObservation, CategoryInsight, CategoryQuestion, CategoryDecision,
		CategoryEstimate, CategoryAnalysis, CategoryNarrative:
		return nil
	default:
		return fmt.Errorf("unknown category: %q", c)
	}
}

// Status is the lifecycle marker stored with a presentation checkpoint.
type Status string

const (
	// StatusCollecting indicates project data is being read
	StatusCollecting Status = "collecting"

	// StatusAnalyzed indicates collection and synthesis are complete
	StatusAnalyzed Status = "analyzed"

	// StatusGenerating indicates slides are being produced
	StatusGenerating Status = "generating"

	// StatusCompleted indicates every slide was produced
	StatusCompleted Status = "completed"

	// StatusFailed indicates the run aborted on an unexpected error
	StatusFailed Status = "failed"
)

// Validate checks if the Status is a valid enum value.
func (s Status) Validate() error {
	switch s {
	case StatusCollecting, StatusAnalyzed, StatusGenerating, StatusCompleted, StatusFailed:
		return nil
	default:
		return fmt.Errorf("unknown status: %q", s)
	}
}

// Checkpoint is the full persisted state of a presentation run.
// Writes are idempotent overwrites keyed by PresentationID and ShareToken.
type Checkpoint struct {
	PresentationID string                `json:"presentation_id"`
	ShareToken     string                `json:"-"`
	Status         Status                `json:"status"`
	Slides         []deck.GeneratedSlide `json:"slides"`
	Blackboard     []*Entry              `json:"blackboard"`
	Metadata       map[string]any        `json:"metadata,omitempty"`
	UpdatedAtMs    int64                 `json:"updated_at_ms"`
}

// Validate checks if the Checkpoint has valid field values.
func (c *Checkpoint) Validate() error {
	if c.PresentationID == "" {
		return fmt.Errorf("presentation ID cannot be empty")
	}

	if c.ShareToken == "" {
		return fmt.Errorf("share token cannot be empty")
	}

	if err := c.Status.Validate(); err != nil {
		return fmt.Errorf("invalid status: %w", err)
	}

	return nil
}

// Event is one client-stream event mirrored onto Redis Pub/Sub.
// Name is the SSE event name (status, blackboard, slide, complete, error).
type Event struct {
	Name        string          `json:"name"`
	Data        json.RawMessage `json:"data"`
	TimestampMs int64           `json:"timestamp_ms"`
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
