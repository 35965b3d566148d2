package blackboard

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by instance name to enable
// multiple pitch deployments to safely coexist on a single Redis server.
//
// Key pattern: pitch:{instance_name}:{entity}:{id}
// Channel pattern: pitch:{instance_name}:presentation:{id}:events

// PresentationKey returns the Redis key for a presentation checkpoint hash.
// Pattern: pitch:{instance_name}:presentation:{presentation_id}
func PresentationKey(instanceName, presentationID string) string {
	return fmt.Sprintf("pitch:%s:presentation:%s", instanceName, presentationID)
}

// BlackboardKey returns the Redis key for a presentation's blackboard list.
// Pattern: pitch:{instance_name}:presentation:{presentation_id}:blackboard
func BlackboardKey(instanceName, presentationID string) string {
	return fmt.Sprintf("pitch:%s:presentation:%s:blackboard", instanceName, presentationID)
}

// PresentationEventsChannel returns the Pub/Sub channel carrying a run's client events.
// Pattern: pitch:{instance_name}:presentation:{presentation_id}:events
func PresentationEventsChannel(instanceName, presentationID string) string {
	return fmt.Sprintf("pitch:%s:presentation:%s:events", instanceName, presentationID)
}

// PresentationKeyPattern returns the SCAN pattern matching every presentation hash.
func PresentationKeyPattern(instanceName string) string {
	return fmt.Sprintf("pitch:%s:presentation:*", instanceName)
}
