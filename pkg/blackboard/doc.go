// Package blackboard provides type-safe Go definitions and Redis schema patterns
// for the pitch blackboard: the append-only log of analysis notes produced while
// a presentation is being generated, plus the checkpoint record that captures a
// run's full progress.
//
// # Overview
//
// Every collection or synthesis step of a generation run writes Entries to the
// blackboard. Entries are immutable once appended; they accumulate monotonically
// for the run, are streamed to the client as they are produced, and are
// persisted so a crashed run can still be inspected.
//
// A Checkpoint is an idempotent full-state overwrite of a presentation's
// progress (status, slides, blackboard, metadata). Checkpoints are keyed by the
// presentation ID and guarded by the share token that created them.
//
// # Multi-Instance Support
//
// All Redis keys and Pub/Sub channels are namespaced by instance name so that
// several pitch deployments can share one Redis server without interference.
//
// # Usage Example
//
//	import "github.com/dyluth/pitch/pkg/blackboard"
//
//	entry := blackboard.NewEntry("collect.requirements", blackboard.CategoryObservation,
//		"Project has 12 requirements", map[string]any{"count": 12})
//	if err := entry.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
//	key := blackboard.BlackboardKey("default", presentationID)
//	// key = "pitch:default:presentation:<id>:blackboard"
//
// # Redis Schema
//
// All Redis keys follow the pattern: pitch:{instance_name}:{entity}:{id}
//
// Presentations: pitch:{instance_name}:presentation:{presentation_id}
// Blackboards: pitch:{instance_name}:presentation:{presentation_id}:blackboard
//
// Pub/Sub channels: pitch:{instance_name}:presentation:{presentation_id}:events
//
// # Design Principles
//
// - Type Safety: All data structures have strong typing with validation methods
// - Immutability: Entries are never mutated once appended
// - Idempotency: Checkpoints are full overwrites, last write wins
// - Isolation: Instance namespacing prevents cross-instance interference
package blackboard
