package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrTokenMismatch is returned when a write presents a share token different from
// the one that first created the presentation record.
var ErrTokenMismatch = errors.New("share token does not match presentation")

// Client provides instance-scoped Redis operations for the blackboard.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new blackboard client for the specified instance.
// The client automatically namespaces all keys and channels with the instance name.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - instanceName: pitch instance identifier (must not be empty)
//
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
// After calling Close(), the client should not be used.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
// Returns an error if Redis is not reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the namespace this client writes under.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// RedisClient exposes the underlying connection for SCAN-style tooling.
func (c *Client) RedisClient() *redis.Client {
	return c.rdb
}

// authorize checks the share token against the one stored with the presentation.
// A presentation that has never been written accepts any token.
func (c *Client) authorize(ctx context.Context, presentationID, shareToken string) error {
	key := PresentationKey(c.instanceName, presentationID)
	existing, err := c.rdb.HGet(ctx, key, "share_token").Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read share token: %w", err)
	}
	if existing != shareToken {
		return ErrTokenMismatch
	}
	return nil
}

// UpdatePresentation overwrites the full checkpoint for a presentation.
// The hash and the blackboard list are replaced in a single transaction, so
// repeated or out-of-order writes leave the last writer's state (last write wins).
func (c *Client) UpdatePresentation(ctx context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	if err := c.authorize(ctx, cp.PresentationID, cp.ShareToken); err != nil {
		return err
	}

	if cp.UpdatedAtMs == 0 {
		cp.UpdatedAtMs = time.Now().UnixMilli()
	}

	hash, err := CheckpointToHash(cp)
	if err != nil {
		return fmt.Errorf("failed to serialize checkpoint: %w", err)
	}

	entries := make([]interface{}, 0, len(cp.Blackboard))
	for _, e := range cp.Blackboard {
		encoded, err := EntryToJSON(e)
		if err != nil {
			return fmt.Errorf("failed to serialize blackboard: %w", err)
		}
		entries = append(entries, encoded)
	}

	hashKey := PresentationKey(c.instanceName, cp.PresentationID)
	listKey := BlackboardKey(c.instanceName, cp.PresentationID)

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, hashKey, hash)
		pipe.Del(ctx, listKey)
		if len(entries) > 0 {
			pipe.RPush(ctx, listKey, entries...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write checkpoint to Redis: %w", err)
	}

	return nil
}

// AppendBlackboard appends a single entry to a presentation's blackboard list.
// The first append for an unknown presentation records its share token.
func (c *Client) AppendBlackboard(ctx context.Context, presentationID, shareToken string, e *Entry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	if shareToken == "" {
		return fmt.Errorf("share token cannot be empty")
	}

	if err := c.authorize(ctx, presentationID, shareToken); err != nil {
		return err
	}

	encoded, err := EntryToJSON(e)
	if err != nil {
		return err
	}

	hashKey := PresentationKey(c.instanceName, presentationID)
	listKey := BlackboardKey(c.instanceName, presentationID)

	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSetNX(ctx, hashKey, "presentation_id", presentationID)
		pipe.HSetNX(ctx, hashKey, "share_token", shareToken)
		pipe.RPush(ctx, listKey, encoded)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to append blackboard entry: %w", err)
	}

	return nil
}

// GetCheckpoint retrieves a presentation checkpoint including its blackboard.
// Returns (nil, redis.Nil) if the presentation doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetCheckpoint(ctx context.Context, presentationID string) (*Checkpoint, error) {
	key := PresentationKey(c.instanceName, presentationID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint from Redis: %w", err)
	}

	// HGetAll returns empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	checkpoint, err := HashToCheckpoint(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize checkpoint: %w", err)
	}

	entries, err := c.ListEntries(ctx, presentationID)
	if err != nil {
		return nil, err
	}
	checkpoint.Blackboard = entries

	return checkpoint, nil
}

// ListEntries returns every blackboard entry for a presentation in append order.
// Returns an empty slice if the presentation has no entries (not an error).
func (c *Client) ListEntries(ctx context.Context, presentationID string) ([]*Entry, error) {
	key := BlackboardKey(c.instanceName, presentationID)

	raw, err := c.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read blackboard from Redis: %w", err)
	}

	entries := make([]*Entry, 0, len(raw))
	for i, item := range raw {
		e, err := JSONToEntry(item)
		if err != nil {
			return nil, fmt.Errorf("blackboard entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// PresentationExists checks if a presentation record exists without fetching it.
func (c *Client) PresentationExists(ctx context.Context, presentationID string) (bool, error) {
	key := PresentationKey(c.instanceName, presentationID)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presentation existence: %w", err)
	}
	return exists > 0, nil
}

// ScanPresentations returns the IDs of all presentations whose ID starts with prefix.
// An empty prefix matches every presentation. Uses SCAN so the server is not blocked.
func (c *Client) ScanPresentations(ctx context.Context, prefix string) ([]string, error) {
	keyPrefix := PresentationKey(c.instanceName, "")
	iter := c.rdb.Scan(ctx, 0, PresentationKey(c.instanceName, prefix)+"*", 0).Iterator()

	var ids []string
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), keyPrefix)
		// Skip the per-presentation blackboard lists
		if strings.Contains(id, ":") {
			continue
		}
		ids = append(ids, id)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan presentations: %w", err)
	}

	return ids, nil
}

// PublishEvent mirrors one client-stream event onto the presentation's channel.
func (c *Client) PublishEvent(ctx context.Context, presentationID string, ev *Event) error {
	if ev.TimestampMs == 0 {
		ev.TimestampMs = time.Now().UnixMilli()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := PresentationEventsChannel(c.instanceName, presentationID)
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish presentation event: %w", err)
	}

	return nil
}

// Subscription represents an active Pub/Sub subscription to presentation events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of presentation events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeEvents subscribes to the client events of one presentation run.
// Caller must call subscription.Close() when done.
// Context cancellation also stops the subscription.
//
// Events are delivered on a buffered channel (size 10) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub (at-most-once delivery).
func (c *Client) SubscribeEvents(ctx context.Context, presentationID string) (*Subscription, error) {
	channel := PresentationEventsChannel(c.instanceName, presentationID)
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Wait for the subscription to be confirmed so no early event is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	eventsChan := make(chan *Event, 10)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var ev Event
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal presentation event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &ev:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
// Use this to check if GetCheckpoint returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
