// Package watch follows presentation runs: it prints the client event
// stream, either mirrored through Redis or emitted by a local run.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
)

// OutputFormat specifies how events are printed.
type OutputFormat string

const (
	// OutputFormatDefault prints one human-readable line per event
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSONL prints each event as a JSON line
	OutputFormatJSONL OutputFormat = "jsonl"
)

// RunError is returned when the followed run ended with an error event.
type RunError struct {
	Message string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed: %s", e.Message)
}

// PollForStatus polls the checkpoint until its status is one of statuses.
// Polls every 200ms for the specified timeout duration.
func PollForStatus(ctx context.Context, client *blackboard.Client, presentationID string, timeout time.Duration, statuses ...blackboard.Status) (*blackboard.Checkpoint, error) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for presentation %s after %v", presentationID, timeout)

		case <-ticker.C:
			cp, err := client.GetCheckpoint(ctx, presentationID)
			if err != nil {
				if blackboard.IsNotFound(err) {
					continue
				}
				return nil, fmt.Errorf("failed to query checkpoint: %w", err)
			}

			for _, s := range statuses {
				if cp.Status == s {
					return cp, nil
				}
			}
		}
	}
}

// StreamEvents subscribes to a presentation's mirrored events and prints
// them until the run ends or ctx is cancelled. An error event returns *RunError.
func StreamEvents(ctx context.Context, client *blackboard.Client, presentationID string, format OutputFormat, w io.Writer) error {
	sub, err := client.SubscribeEvents(ctx, presentationID)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err, ok := <-sub.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(w, "⚠️  %v\n", err)

		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := FormatEvent(w, format, ev); err != nil {
				return err
			}
			if done, err := terminal(ev); done {
				return err
			}
		}
	}
}

// terminal reports whether ev ends a run and the error it carries.
func terminal(ev *blackboard.Event) (bool, error) {
	switch ev.Name {
	case runstate.EventComplete:
		return true, nil
	case runstate.EventError:
		var payload runstate.ErrorEvent
		_ = json.Unmarshal(ev.Data, &payload)
		return true, &RunError{Message: payload.Message}
	default:
		return false, nil
	}
}

// FormatEvent writes one event in the given format.
func FormatEvent(w io.Writer, format OutputFormat, ev *blackboard.Event) error {
	if format == OutputFormatJSONL {
		data, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	ts := time.UnixMilli(ev.TimestampMs)
	if ev.TimestampMs == 0 {
		ts = time.Now()
	}
	_, err := fmt.Fprintf(w, "[%s] %s\n", ts.Format("15:04:05"), FormatLine(ev))
	return err
}

// FormatLine renders an event as a single human-readable line.
func FormatLine(ev *blackboard.Event) string {
	switch ev.Name {
	case runstate.EventStatus:
		var s runstate.StatusEvent
		if err := json.Unmarshal(ev.Data, &s); err != nil {
			break
		}
		if s.Total > 0 {
			return fmt.Sprintf("⏳ %s: %s (%d/%d)", s.Phase, s.Message, s.Current, s.Total)
		}
		return fmt.Sprintf("⏳ %s: %s", s.Phase, s.Message)

	case runstate.EventBlackboard:
		var e blackboard.Entry
		if err := json.Unmarshal(ev.Data, &e); err != nil {
			break
		}
		return fmt.Sprintf("📝 [%s] %s (%s)", e.Category, firstLine(e.Content), e.Source)

	case runstate.EventSlide:
		var s deck.GeneratedSlide
		if err := json.Unmarshal(ev.Data, &s); err != nil {
			break
		}
		line := fmt.Sprintf("🖼️  Slide %d: %s [%s]", s.Order, s.Title, s.LayoutID)
		if s.ImageURL != "" {
			line += " +image"
		}
		return line

	case runstate.EventComplete:
		var c runstate.CompleteEvent
		if err := json.Unmarshal(ev.Data, &c); err != nil {
			break
		}
		return fmt.Sprintf("✅ Complete: %d slides, %d blackboard entries (model %s)", c.SlideCount, c.BlackboardCount, c.Model)

	case runstate.EventError:
		var e runstate.ErrorEvent
		if err := json.Unmarshal(ev.Data, &e); err != nil {
			break
		}
		return fmt.Sprintf("❌ Error: %s", e.Message)
	}

	return fmt.Sprintf("%s: %s", ev.Name, string(ev.Data))
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// Emitter prints the events of a local run as they are emitted.
type Emitter struct {
	mu     sync.Mutex
	w      io.Writer
	format OutputFormat
	failed *RunError
}

// NewEmitter creates an emitter writing to w.
func NewEmitter(w io.Writer, format OutputFormat) *Emitter {
	return &Emitter{w: w, format: format}
}

// Emit implements runstate.Emitter.
func (e *Emitter) Emit(name string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", name, err)
	}

	ev := &blackboard.Event{Name: name, Data: payload, TimestampMs: time.Now().UnixMilli()}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, runErr := terminal(ev); runErr != nil {
		e.failed = runErr.(*RunError)
	}
	return FormatEvent(e.w, e.format, ev)
}

// Err returns the error event's message, if the run emitted one.
func (e *Emitter) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.failed == nil {
		return nil
	}
	return e.failed
}
