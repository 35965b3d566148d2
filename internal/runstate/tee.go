package runstate

import (
	"context"
	"log"

	"github.com/dyluth/pitch/pkg/blackboard"
)

// tee writes to a primary checkpointer and best-effort mirrors.
type tee struct {
	primary Checkpointer
	mirrors []Checkpointer
}

// Tee returns a Checkpointer that writes to primary and then to each mirror.
// Only primary errors are returned; mirror errors are logged.
func Tee(primary Checkpointer, mirrors ...Checkpointer) Checkpointer {
	if len(mirrors) == 0 {
		return primary
	}
	return &tee{primary: primary, mirrors: mirrors}
}

// UpdatePresentation implements Checkpointer.
func (t *tee) UpdatePresentation(ctx context.Context, cp *blackboard.Checkpoint) error {
	err := t.primary.UpdatePresentation(ctx, cp)
	for _, m := range t.mirrors {
		if mErr := m.UpdatePresentation(ctx, cp); mErr != nil {
			log.Printf("[Run] Mirror checkpoint failed for presentation %s: %v", cp.PresentationID, mErr)
		}
	}
	return err
}

// AppendBlackboard implements Checkpointer.
func (t *tee) AppendBlackboard(ctx context.Context, presentationID, shareToken string, e *blackboard.Entry) error {
	err := t.primary.AppendBlackboard(ctx, presentationID, shareToken, e)
	for _, m := range t.mirrors {
		if mErr := m.AppendBlackboard(ctx, presentationID, shareToken, e); mErr != nil {
			log.Printf("[Run] Mirror blackboard append failed for presentation %s: %v", presentationID, mErr)
		}
	}
	return err
}

// Discard is a Checkpointer that persists nothing. Used for local dry runs.
var Discard Checkpointer = discard{}

type discard struct{}

func (discard) UpdatePresentation(context.Context, *blackboard.Checkpoint) error { return nil }

func (discard) AppendBlackboard(context.Context, string, string, *blackboard.Entry) error {
	return nil
}
