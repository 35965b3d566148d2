package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/dyluth/pitch/pkg/blackboard"
)

// Publisher publishes presentation events. *blackboard.Client implements it.
type Publisher interface {
	PublishEvent(ctx context.Context, presentationID string, ev *blackboard.Event) error
}

// Mirror republishes every event to the presentation's Redis events channel.
type Mirror struct {
	ctx            context.Context
	publisher      Publisher
	presentationID string
}

// NewMirror creates a mirror for one presentation. ctx bounds every publish.
func NewMirror(ctx context.Context, publisher Publisher, presentationID string) *Mirror {
	return &Mirror{ctx: ctx, publisher: publisher, presentationID: presentationID}
}

// Emit publishes the event.
func (m *Mirror) Emit(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	ev := &blackboard.Event{Name: name, Data: payload}
	if err := m.publisher.PublishEvent(m.ctx, m.presentationID, ev); err != nil {
		return fmt.Errorf("failed to mirror %s event: %w", name, err)
	}
	return nil
}

// Emitter is the event sink interface shared with the run.
type Emitter interface {
	Emit(name string, data any) error
}

type fanout struct {
	primary Emitter
	mirrors []Emitter
}

// Fanout returns an emitter writing to primary then to each mirror. Only
// primary errors are returned; mirror errors are logged.
func Fanout(primary Emitter, mirrors ...Emitter) Emitter {
	if len(mirrors) == 0 {
		return primary
	}
	return &fanout{primary: primary, mirrors: mirrors}
}

func (f *fanout) Emit(name string, data any) error {
	err := f.primary.Emit(name, data)
	for _, m := range f.mirrors {
		if mErr := m.Emit(name, data); mErr != nil {
			log.Printf("[Stream] Mirror emit of %s failed: %v", name, mErr)
		}
	}
	return err
}
