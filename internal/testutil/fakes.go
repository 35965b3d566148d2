// Package testutil provides in-memory collaborators for pipeline tests: an
// event recorder, a checkpoint store, a scripted project data source and a
// scripted model client.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dyluth/pitch/internal/llm"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
)

// Event is one recorded client event. Data is the JSON the stream would carry.
type Event struct {
	Name string
	Data json.RawMessage
}

// Recorder is an emitter that keeps every event in order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	// Err, when set, is returned from every Emit after recording.
	Err error
}

// Emit records the event.
func (r *Recorder) Emit(name string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: name, Data: raw})
	return r.Err
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the event names in order.
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

// Count returns how many events named name were recorded.
func (r *Recorder) Count(name string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Slides decodes every slide event.
func (r *Recorder) Slides() []deck.GeneratedSlide {
	var slides []deck.GeneratedSlide
	for _, e := range r.Events() {
		if e.Name != "slide" {
			continue
		}
		var s deck.GeneratedSlide
		if err := json.Unmarshal(e.Data, &s); err == nil {
			slides = append(slides, s)
		}
	}
	return slides
}

// Last returns the final event, or a zero Event if none.
func (r *Recorder) Last() Event {
	events := r.Events()
	if len(events) == 0 {
		return Event{}
	}
	return events[len(events)-1]
}

// MemoryStore is a checkpointer that keeps snapshots of every write.
type MemoryStore struct {
	mu          sync.Mutex
	Checkpoints []blackboard.Checkpoint
	Appended    []*blackboard.Entry
	// UpdateErr and AppendErr, when set, are returned after recording.
	UpdateErr error
	AppendErr error
}

// UpdatePresentation records a snapshot of cp.
func (m *MemoryStore) UpdatePresentation(_ context.Context, cp *blackboard.Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := *cp
	if cp.Slides != nil {
		snapshot.Slides = make([]deck.GeneratedSlide, len(cp.Slides))
		copy(snapshot.Slides, cp.Slides)
	}
	if cp.Blackboard != nil {
		snapshot.Blackboard = make([]*blackboard.Entry, len(cp.Blackboard))
		copy(snapshot.Blackboard, cp.Blackboard)
	}
	m.Checkpoints = append(m.Checkpoints, snapshot)
	return m.UpdateErr
}

// AppendBlackboard records e.
func (m *MemoryStore) AppendBlackboard(_ context.Context, _, _ string, e *blackboard.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Appended = append(m.Appended, e)
	return m.AppendErr
}

// Statuses returns the status of every checkpoint in order.
func (m *MemoryStore) Statuses() []blackboard.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]blackboard.Status, len(m.Checkpoints))
	for i, cp := range m.Checkpoints {
		out[i] = cp.Status
	}
	return out
}

// LastCheckpoint returns the most recent checkpoint, or nil.
func (m *MemoryStore) LastCheckpoint() *blackboard.Checkpoint {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Checkpoints) == 0 {
		return nil
	}
	cp := m.Checkpoints[len(m.Checkpoints)-1]
	return &cp
}

// FakeSource is a project data source backed by fixed rows per operation.
type FakeSource struct {
	mu     sync.Mutex
	Rows   map[string][]map[string]any
	Errors map[string]error
	Calls  []string
}

// NewFakeSource returns an empty source; every fetch succeeds with no rows.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		Rows:   map[string][]map[string]any{},
		Errors: map[string]error{},
	}
}

// Fetch implements the data store Source interface.
// Calls are recorded as "op:id".
func (f *FakeSource) Fetch(_ context.Context, op, id, _ string) ([]map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, op+":"+id)
	if err := f.Errors[op]; err != nil {
		return nil, err
	}
	if rows, ok := f.Rows[op+":"+id]; ok {
		return rows, nil
	}
	if rows, ok := f.Rows[op]; ok {
		return rows, nil
	}
	return []map[string]any{}, nil
}

// FakeLLM is a model client driven by a responder function.
type FakeLLM struct {
	mu        sync.Mutex
	ModelName string
	Respond   func(req llm.Request) (string, error)
	Requests  []llm.Request
}

// Complete implements llm.Client.
func (f *FakeLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	f.mu.Lock()
	f.Requests = append(f.Requests, req)
	respond := f.Respond
	f.mu.Unlock()

	if respond == nil {
		return "", llm.NewError(llm.ErrorTypeTransient, "no responder configured")
	}
	return respond(req)
}

// Model implements llm.Client.
func (f *FakeLLM) Model() string {
	if f.ModelName == "" {
		return "fake-model"
	}
	return f.ModelName
}

// RequestsFor returns the recorded requests for a stage.
func (f *FakeLLM) RequestsFor(stage string) []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.Request
	for _, r := range f.Requests {
		if r.Stage == stage {
			out = append(out, r)
		}
	}
	return out
}

// PromptContains reports whether any recorded prompt contains s.
func (f *FakeLLM) PromptContains(s string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.Requests {
		if strings.Contains(r.Prompt, s) {
			return true
		}
	}
	return false
}

// FakeImages is an image generator returning a fixed URL or error per prompt.
type FakeImages struct {
	mu      sync.Mutex
	URL     string
	Errors  map[string]error
	Prompts []string
}

// Generate implements imagegen.Generator.
func (f *FakeImages) Generate(_ context.Context, prompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Prompts = append(f.Prompts, prompt)
	if err := f.Errors[prompt]; err != nil {
		return "", err
	}
	return f.URL, nil
}
