package board

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/pitch/pkg/blackboard"
)

// GetCheckpoint writes one presentation checkpoint as pretty-printed JSON.
func GetCheckpoint(ctx context.Context, bbClient *blackboard.Client, presentationID string, w io.Writer) error {
	cp, err := bbClient.GetCheckpoint(ctx, presentationID)
	if err != nil {
		if blackboard.IsNotFound(err) {
			return &PresentationNotFoundError{PresentationID: presentationID}
		}
		return fmt.Errorf("failed to fetch checkpoint: %w", err)
	}

	if err := FormatSingleJSON(w, cp); err != nil {
		return fmt.Errorf("failed to format checkpoint: %w", err)
	}

	return nil
}

// PresentationNotFoundError means the mirror holds no checkpoint for the ID.
type PresentationNotFoundError struct {
	PresentationID string
}

func (e *PresentationNotFoundError) Error() string {
	return fmt.Sprintf("presentation with ID '%s' not found", e.PresentationID)
}

// IsNotFound returns true if the error is a PresentationNotFoundError.
func IsNotFound(err error) bool {
	_, ok := err.(*PresentationNotFoundError)
	return ok
}
