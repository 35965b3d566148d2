// Package resolver expands short presentation ID prefixes typed by operators.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MinShortIDLength is the minimum required length for short ID prefixes.
const MinShortIDLength = 6

// maxListed caps the matches shown in an ambiguity message.
const maxListed = 10

// Index looks up presentations on the Redis mirror. *blackboard.Client implements it.
type Index interface {
	PresentationExists(ctx context.Context, presentationID string) (bool, error)
	ScanPresentations(ctx context.Context, prefix string) ([]string, error)
}

// ResolvePresentationID resolves a full UUID or a unique prefix to a
// presentation ID present on the mirror.
func ResolvePresentationID(ctx context.Context, index Index, shortID string) (string, error) {
	shortID = strings.TrimSpace(shortID)

	if _, err := uuid.Parse(shortID); err == nil {
		exists, err := index.PresentationExists(ctx, shortID)
		if err != nil {
			return "", fmt.Errorf("failed to verify presentation existence: %w", err)
		}
		if !exists {
			return "", &NotFoundError{ShortID: shortID}
		}
		return shortID, nil
	}

	if len(shortID) < MinShortIDLength {
		return "", fmt.Errorf("short ID must be at least %d characters (got %d)", MinShortIDLength, len(shortID))
	}

	matches, err := index.ScanPresentations(ctx, shortID)
	if err != nil {
		return "", fmt.Errorf("failed to search for presentation: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", &NotFoundError{ShortID: shortID}
	case 1:
		return matches[0], nil
	default:
		return "", &AmbiguousError{ShortID: shortID, Matches: matches}
	}
}

// NotFoundError indicates no presentation matched the short ID.
type NotFoundError struct {
	ShortID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no presentations found matching '%s'", e.ShortID)
}

// AmbiguousError indicates multiple presentations matched the short ID.
type AmbiguousError struct {
	ShortID string
	Matches []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous short ID '%s' matches %d presentations", e.ShortID, len(e.Matches))
}

// Describe lists the matches (up to 10) for an operator-facing message.
func (e *AmbiguousError) Describe() string {
	var b strings.Builder
	for i, m := range e.Matches {
		if i == maxListed {
			fmt.Fprintf(&b, "  ...and %d more\n", len(e.Matches)-maxListed)
			break
		}
		fmt.Fprintf(&b, "  %s\n", m)
	}
	b.WriteString("\nUse a longer prefix to uniquely identify the presentation.")
	return b.String()
}
