package collector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/dyluth/pitch/internal/datastore"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/internal/testutil"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	source   *testutil.FakeSource
	recorder *testutil.Recorder
	store    *testutil.MemoryStore
	run      *runstate.Run
	c        *Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		source:   testutil.NewFakeSource(),
		recorder: &testutil.Recorder{},
		store:    &testutil.MemoryStore{},
	}
	f.run = runstate.New(runstate.Request{
		ProjectID:      "proj-1",
		PresentationID: "pres-1",
		ShareToken:     "tok",
		Mode:           deck.ModeConcise,
		TargetSlides:   4,
	}, f.recorder, f.store)
	f.c = New(f.source, nil)
	return f
}

func TestMaturityForAge(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{0, "nascent"},
		{6, "nascent"},
		{7, "developing"},
		{29, "developing"},
		{30, "maturing"},
		{89, "maturing"},
		{90, "established"},
		{1000, "established"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MaturityForAge(tt.days), "days=%d", tt.days)
	}
}

func TestBands(t *testing.T) {
	assert.Contains(t, DecompositionBand(3.5), "deeply")
	assert.Contains(t, DecompositionBand(3), "moderately")
	assert.Contains(t, DecompositionBand(1.5), "moderately")
	assert.Contains(t, DecompositionBand(1), "high-level")

	assert.Contains(t, ConnectivityBand(2.5), "highly")
	assert.Contains(t, ConnectivityBand(2), "moderately")
	assert.Contains(t, ConnectivityBand(1), "loosely")
}

func TestSettings(t *testing.T) {
	t.Run("classifies age", func(t *testing.T) {
		f := newFixture(t)
		f.source.Rows[datastore.OpProject] = []map[string]any{{
			"name":       "Atlas",
			"created_at": time.Now().Add(-10 * 24 * time.Hour).UTC().Format(time.RFC3339Nano),
		}}

		res := f.c.Settings(context.Background(), f.run)

		require.True(t, res.Success)
		require.Len(t, res.Entries, 2)
		assert.Equal(t, blackboard.CategoryAnalysis, res.Entries[1].Category)
		assert.Contains(t, res.Entries[1].Content, "developing")
		assert.Equal(t, "Atlas", f.run.Data.ProjectName())
	})

	t.Run("empty project asks a question", func(t *testing.T) {
		f := newFixture(t)

		res := f.c.Settings(context.Background(), f.run)

		require.True(t, res.Success)
		require.Len(t, res.Entries, 1)
		assert.Equal(t, blackboard.CategoryQuestion, res.Entries[0].Category)
		assert.NotNil(t, f.run.Data.Settings)
	})
}

func TestRequirements_Decomposition(t *testing.T) {
	f := newFixture(t)
	f.source.Rows[datastore.OpRequirements] = []map[string]any{
		{"id": "r1", "title": "Tracking"},
		{"id": "r2", "parent_id": "r1"},
		{"id": "r3", "parent_id": "r1"},
		{"id": "r4", "parent_id": "r1"},
		{"id": "r5", "parent_id": "r1"},
	}

	res := f.c.Requirements(context.Background(), f.run)

	require.True(t, res.Success)
	assert.Len(t, f.run.Data.Requirements, 5)
	assert.Contains(t, res.Entries[0].Content, "1 top-level, 4 nested")
	assert.Contains(t, res.Entries[1].Content, "deeply")
	assert.Contains(t, res.Entries[2].Content, "Tracking")
}

func TestRequirements_NonStringParentIsNested(t *testing.T) {
	f := newFixture(t)
	f.source.Rows[datastore.OpRequirements] = []map[string]any{
		{"id": float64(1), "title": "Tracking", "parent_id": nil},
		{"id": float64(2), "parent_id": float64(1)},
		{"id": float64(3), "parent_id": float64(1)},
		{"id": float64(4), "parent_id": ""},
	}

	res := f.c.Requirements(context.Background(), f.run)

	require.True(t, res.Success)
	assert.Contains(t, res.Entries[0].Content, "2 top-level, 2 nested")
}

func TestCanvas(t *testing.T) {
	f := newFixture(t)
	f.source.Rows[datastore.OpCanvasNodes] = []map[string]any{
		{"id": "n1", "type": "service", "data": map[string]any{"label": "API"}},
		{"id": "n2", "type": "database"},
	}
	f.source.Rows[datastore.OpCanvasEdges] = []map[string]any{
		{"id": "e1"}, {"id": "e2"}, {"id": "e3"},
	}

	res := f.c.Canvas(context.Background(), f.run)

	require.True(t, res.Success)
	assert.Len(t, f.run.Data.Canvas.Nodes, 2)
	assert.Len(t, f.run.Data.Canvas.Edges, 3)

	var analysis *blackboard.Entry
	for _, e := range res.Entries {
		if e.Category == blackboard.CategoryAnalysis {
			analysis = e
		}
	}
	require.NotNil(t, analysis)
	assert.Contains(t, analysis.Content, "moderately connected")
	assert.LessOrEqual(t, len(res.Entries), 5)
}

func TestRepoStructure_FetchesFilesPerRepo(t *testing.T) {
	f := newFixture(t)
	f.source.Rows[datastore.OpRepos] = []map[string]any{{"id": "a"}, {"id": "b"}}
	f.source.Rows[datastore.OpRepoFiles+":a"] = []map[string]any{{"path": "main.go"}, {"path": "util.go"}}
	f.source.Rows[datastore.OpRepoFiles+":b"] = []map[string]any{{"path": "README.md"}}

	res := f.c.RepoStructure(context.Background(), f.run)

	require.True(t, res.Success)
	assert.Len(t, f.run.Data.RepoStructure.Files, 3)
	assert.Contains(t, f.source.Calls, datastore.OpRepoFiles+":a")
	assert.Contains(t, f.source.Calls, datastore.OpRepoFiles+":b")
	assert.Contains(t, res.Entries[len(res.Entries)-1].Content, ".go")
}

func TestRead_FailureProducesNoEntries(t *testing.T) {
	f := newFixture(t)
	f.source.Errors[datastore.OpDatabases] = errors.New("connection refused")

	res := f.c.Databases(context.Background(), f.run)

	assert.False(t, res.Success)
	assert.Empty(t, res.Entries)
	assert.ErrorContains(t, res.Err, "connection refused")
	assert.Empty(t, f.run.Blackboard())
	assert.Empty(t, f.store.Appended)
}

func TestCollectAll(t *testing.T) {
	f := newFixture(t)
	f.source.Errors[datastore.OpArtifacts] = errors.New("timeout")

	results := f.c.CollectAll(context.Background(), f.run)

	require.Len(t, results, 9)
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Step
	}
	assert.Equal(t, []string{
		StepSettings, StepRequirements, StepArtifacts, StepSpecifications, StepCanvas,
		StepRepoStructure, StepDatabases, StepConnections, StepDeployments,
	}, names)

	// The failed read does not stop the rest
	assert.False(t, results[2].Success)
	assert.True(t, results[8].Success)

	// One status event per read, numbered 1..9
	var statuses []runstate.StatusEvent
	for _, e := range f.recorder.Events() {
		if e.Name != runstate.EventStatus {
			continue
		}
		var s runstate.StatusEvent
		require.NoError(t, json.Unmarshal(e.Data, &s))
		statuses = append(statuses, s)
	}
	require.Len(t, statuses, 9)
	for i, s := range statuses {
		assert.Equal(t, PhaseCollecting, s.Phase)
		assert.Equal(t, i+1, s.Current)
		assert.Equal(t, 9, s.Total)
	}

	// Every entry is streamed and persisted
	assert.Equal(t, len(f.run.Blackboard()), f.recorder.Count(runstate.EventBlackboard))
	assert.Equal(t, len(f.run.Blackboard()), len(f.store.Appended))
}

func TestSynthesize(t *testing.T) {
	t.Run("settings only scores zero", func(t *testing.T) {
		f := newFixture(t)
		f.run.Data.Settings = runstate.Row{"name": "Atlas"}

		m := Synthesize(context.Background(), f.run)

		assert.Equal(t, 0, m.CompletionScore)
		assert.Equal(t, "early-stage", m.Stage)
		entries := f.run.Blackboard()
		require.Len(t, entries, 2)
		assert.Equal(t, blackboard.CategoryEstimate, entries[0].Category)
		assert.Equal(t, blackboard.CategoryNarrative, entries[1].Category)
		assert.Contains(t, entries[1].Content, "Atlas is an early-stage project")
	})

	t.Run("all categories score 100", func(t *testing.T) {
		env := testutil.SetupE2EEnvironment(t)
		env.SeedProject()
		f := newFixture(t)
		f.c = New(env.Source, nil)

		f.c.CollectAll(context.Background(), f.run)
		m := Synthesize(context.Background(), f.run)

		assert.Equal(t, 100, m.CompletionScore)
		assert.Equal(t, "advanced", m.Stage)
		assert.Equal(t, 2, m.RequirementCount)
		assert.Equal(t, 2, m.ArchitectureComponents)
		assert.Equal(t, 3, m.FileCount)
		assert.Equal(t, m, f.run.Metrics)
	})

	t.Run("partial weights", func(t *testing.T) {
		f := newFixture(t)
		f.run.Data.Requirements = []runstate.Row{{"id": "r1"}}
		f.run.Data.Canvas.Nodes = []runstate.Row{{"id": "n1"}}

		m := Synthesize(context.Background(), f.run)

		assert.Equal(t, 35, m.CompletionScore)
		assert.Equal(t, "mid-development", m.Stage)
	})
}

func TestStageForScore(t *testing.T) {
	assert.Equal(t, "early-stage", StageForScore(29))
	assert.Equal(t, "mid-development", StageForScore(30))
	assert.Equal(t, "mid-development", StageForScore(59))
	assert.Equal(t, "advanced", StageForScore(60))
}
