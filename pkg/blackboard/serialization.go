package blackboard

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dyluth/pitch/pkg/deck"
)

// Serialization helpers for converting between Go structs and Redis hashes
//
// Redis stores data as string-to-string maps (hashes). Complex fields like the
// slide array and metadata are JSON-encoded into single hash fields. The
// blackboard itself lives in a separate list so entries can be appended one at
// a time without rewriting the hash.

// CheckpointToHash converts a Checkpoint to a Redis hash format.
// The blackboard is not part of the hash; it is stored in the blackboard list.
func CheckpointToHash(c *Checkpoint) (map[string]interface{}, error) {
	slides := c.Slides
	if slides == nil {
		slides = []deck.GeneratedSlide{}
	}

	slidesJSON, err := json.Marshal(slides)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal slides: %w", err)
	}

	metadata := c.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	hash := map[string]interface{}{
		"presentation_id":  c.PresentationID,
		"share_token":      c.ShareToken,
		"status":           string(c.Status),
		"slides":           string(slidesJSON),
		"metadata":         string(metadataJSON),
		"blackboard_count": len(c.Blackboard),
		"updated_at_ms":    c.UpdatedAtMs,
	}

	return hash, nil
}

// HashToCheckpoint converts a Redis hash to a Checkpoint.
// The returned checkpoint has an empty Blackboard; callers load it from the list.
func HashToCheckpoint(hash map[string]string) (*Checkpoint, error) {
	var slides []deck.GeneratedSlide
	if slidesJSON := hash["slides"]; slidesJSON != "" {
		if err := json.Unmarshal([]byte(slidesJSON), &slides); err != nil {
			return nil, fmt.Errorf("failed to unmarshal slides: %w", err)
		}
	}

	// Ensure we have an empty slice instead of nil for consistency
	if slides == nil {
		slides = []deck.GeneratedSlide{}
	}

	var metadata map[string]any
	if metadataJSON := hash["metadata"]; metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)

	checkpoint := &Checkpoint{
		PresentationID: hash["presentation_id"],
		ShareToken:     hash["share_token"],
		Status:         Status(hash["status"]),
		Slides:         slides,
		Blackboard:     []*Entry{},
		Metadata:       metadata,
		UpdatedAtMs:    updatedAtMs,
	}

	return checkpoint, nil
}

// EntryToJSON encodes an entry as a single blackboard list element.
func EntryToJSON(e *Entry) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	return string(data), nil
}

// JSONToEntry decodes a blackboard list element.
func JSONToEntry(s string) (*Entry, error) {
	var e Entry
	if err := json.Unmarshal([]byte(s), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}
