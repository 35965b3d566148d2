package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/pitch/internal/datastore"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// E2EEnvironment is an isolated pipeline environment: an in-memory Redis
// mirror plus scripted data store and model collaborators.
type E2EEnvironment struct {
	T              *testing.T
	Ctx            context.Context
	Redis          *miniredis.Miniredis
	InstanceName   string
	BBClient       *blackboard.Client
	Source         *FakeSource
	LLM            *FakeLLM
	Store          *MemoryStore
	PresentationID string
	ShareToken     string
}

// SetupE2EEnvironment creates a fresh environment with a unique instance name.
// Everything is cleaned up when the test ends.
func SetupE2EEnvironment(t *testing.T) *E2EEnvironment {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start(), "Failed to start miniredis")
	t.Cleanup(mr.Close)

	instanceName := fmt.Sprintf("test-%s", uuid.New().String()[:8])

	bb, err := blackboard.NewClient(&redis.Options{Addr: mr.Addr()}, instanceName)
	require.NoError(t, err, "Failed to create blackboard client")
	t.Cleanup(func() { bb.Close() })

	return &E2EEnvironment{
		T:              t,
		Ctx:            context.Background(),
		Redis:          mr,
		InstanceName:   instanceName,
		BBClient:       bb,
		Source:         NewFakeSource(),
		LLM:            &FakeLLM{ModelName: "fake-model"},
		Store:          &MemoryStore{},
		PresentationID: uuid.New().String(),
		ShareToken:     "share-" + uuid.New().String()[:8],
	}
}

// RedisURL returns a redis:// URL for the environment's Redis.
func (env *E2EEnvironment) RedisURL() string {
	return "redis://" + env.Redis.Addr()
}

// WaitForCheckpointStatus polls the Redis mirror until the presentation reaches
// status (up to 5 seconds).
func (env *E2EEnvironment) WaitForCheckpointStatus(status blackboard.Status) *blackboard.Checkpoint {
	require.NotNil(env.T, env.BBClient, "Blackboard client not initialized")

	env.T.Logf("Waiting for presentation %s to reach %s...", env.PresentationID, status)

	for i := 0; i < 50; i++ {
		cp, err := env.BBClient.GetCheckpoint(env.Ctx, env.PresentationID)
		if err == nil && cp.Status == status {
			env.T.Logf("✓ Presentation %s reached %s with %d slides", env.PresentationID, status, len(cp.Slides))
			return cp
		}
		time.Sleep(100 * time.Millisecond)
	}

	require.Fail(env.T, fmt.Sprintf("Presentation %s did not reach %s within 5 seconds", env.PresentationID, status))
	return nil
}

// SeedProject fills the fake source with a small but complete project.
func (env *E2EEnvironment) SeedProject() {
	s := env.Source
	s.Rows[datastore.OpProject] = []map[string]any{{
		"id": "proj-1", "name": "Atlas", "description": "Fleet telemetry platform",
		"created_at": time.Now().Add(-45 * 24 * time.Hour).UTC().Format(time.RFC3339),
	}}
	s.Rows[datastore.OpRequirements] = []map[string]any{
		{"id": "r1", "title": "Vehicle tracking"},
		{"id": "r2", "title": "GPS ingest", "parent_id": "r1"},
	}
	s.Rows[datastore.OpArtifacts] = []map[string]any{{"id": "a1", "ai_title": "Market research"}}
	s.Rows[datastore.OpSpecifications] = []map[string]any{{"id": "s1", "agent_id": "overview", "generated_spec": "Atlas overview"}}
	s.Rows[datastore.OpCanvasNodes] = []map[string]any{
		{"id": "n1", "type": "service", "data": map[string]any{"label": "Ingest API"}},
		{"id": "n2", "type": "database", "data": map[string]any{"label": "Timeseries"}},
	}
	s.Rows[datastore.OpCanvasEdges] = []map[string]any{{"id": "e1", "source": "n1", "target": "n2"}}
	s.Rows[datastore.OpRepos] = []map[string]any{{"id": "repo-1", "name": "atlas"}}
	s.Rows[datastore.OpRepoFiles] = []map[string]any{
		{"path": "cmd/main.go"}, {"path": "internal/ingest.go"}, {"path": "README.md"},
	}
	s.Rows[datastore.OpDatabases] = []map[string]any{{"id": "d1", "name": "telemetry", "status": "running"}}
	s.Rows[datastore.OpConnections] = []map[string]any{{"id": "c1", "connection_type": "github"}}
	s.Rows[datastore.OpDeployments] = []map[string]any{{"id": "dep1", "environment": "production", "status": "active"}}
}
