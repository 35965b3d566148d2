package orchestrator

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dyluth/pitch/internal/datastore"
	"github.com/dyluth/pitch/internal/generator"
	"github.com/dyluth/pitch/internal/llm"
	"github.com/dyluth/pitch/internal/planner"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/internal/stream"
	"github.com/dyluth/pitch/internal/testutil"
	"github.com/dyluth/pitch/pkg/blackboard"
	"github.com/dyluth/pitch/pkg/deck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(env *testutil.E2EEnvironment, client llm.Client) *Engine {
	return NewEngine(Config{
		Source:       env.Source,
		Store:        runstate.Tee(env.Store, env.BBClient),
		LLM:          client,
		Planner:      planner.DefaultOptions(),
		Generator:    generator.DefaultOptions(),
		InstanceName: env.InstanceName,
	})
}

func request(env *testutil.E2EEnvironment, target int) runstate.Request {
	return runstate.Request{
		ProjectID:      "proj-1",
		PresentationID: env.PresentationID,
		ShareToken:     env.ShareToken,
		Mode:           deck.ModeConcise,
		TargetSlides:   target,
	}
}

// TestGenerate_EmptyProjectModelDown covers the four-slide scenario with no
// project data and a model that never answers.
func TestGenerate_EmptyProjectModelDown(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	env.LLM.Respond = func(llm.Request) (string, error) {
		return "", llm.NewError(llm.ErrorTypeTransient, "upstream unavailable")
	}
	rec := &testutil.Recorder{}

	err := newEngine(env, env.LLM).Generate(env.Ctx, request(env, 4), rec)
	require.NoError(t, err)

	slides := rec.Slides()
	require.Len(t, slides, 4)
	assert.Equal(t, deck.LayoutTitleCover, slides[0].LayoutID)
	for i, s := range slides {
		assert.Equal(t, i+1, s.Order)
		assert.NotEmpty(t, s.Content)
	}

	assert.Equal(t, runstate.EventStatus, rec.Events()[0].Name)
	last := rec.Last()
	require.Equal(t, runstate.EventComplete, last.Name)
	var complete runstate.CompleteEvent
	require.NoError(t, json.Unmarshal(last.Data, &complete))
	assert.Equal(t, env.PresentationID, complete.PresentationID)
	assert.Equal(t, 4, complete.SlideCount)
	assert.Equal(t, "fake-model", complete.Model)
	assert.Equal(t, rec.Count(runstate.EventBlackboard), complete.BlackboardCount)
	assert.Zero(t, rec.Count(runstate.EventError))

	statuses := env.Store.Statuses()
	assert.Equal(t, blackboard.StatusAnalyzed, statuses[0])
	assert.Equal(t, blackboard.StatusCompleted, statuses[len(statuses)-1])

	final := env.Store.LastCheckpoint()
	assert.Equal(t, "fallback", final.Metadata["outlineSource"])
	assert.Len(t, final.Blackboard, complete.BlackboardCount)

	// The Redis mirror carries the same final state
	cp := env.WaitForCheckpointStatus(blackboard.StatusCompleted)
	assert.Len(t, cp.Slides, 4)
}

func TestGenerate_WrappedOutlineUsesFallback(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	env.SeedProject()
	env.LLM.Respond = func(req llm.Request) (string, error) {
		if req.Stage == llm.StageOutline {
			return `{"slides": []}`, nil
		}
		return `[{"title": "From array", "content": []}]`, nil
	}
	rec := &testutil.Recorder{}

	require.NoError(t, newEngine(env, env.LLM).Generate(env.Ctx, request(env, 6), rec))

	slides := rec.Slides()
	require.Len(t, slides, 4)
	for _, s := range slides {
		assert.NotEqual(t, "From array", s.Title)
	}

	final := env.Store.LastCheckpoint()
	assert.Equal(t, "fallback", final.Metadata["outlineSource"])
}

func TestGenerate_ModelPath(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	env.SeedProject()
	env.LLM.Respond = func(req llm.Request) (string, error) {
		if req.Stage == llm.StageOutline {
			return "Sure! Here's the JSON:\n```json\n" + `[
				{"order": 1, "layoutId": "title-cover", "title": "Atlas", "keyContent": ["Telemetry"]},
				{"order": 2, "layoutId": "stats-grid", "title": "Status", "purpose": "Show status metrics"},
				{"order": 3, "layoutId": "image-right", "title": "Architecture", "imagePrompt": "service diagram"}
			]` + "\n```", nil
		}
		return `{"subtitle": "generated", "content": [{"regionId": "body", "type": "text", "data": {"text": "ok"}}]}`, nil
	}
	images := &testutil.FakeImages{URL: "https://img.example/1.png"}
	rec := &testutil.Recorder{}

	engine := NewEngine(Config{
		Source:    env.Source,
		Store:     env.Store,
		LLM:       env.LLM,
		Images:    images,
		Planner:   planner.DefaultOptions(),
		Generator: generator.DefaultOptions(),
	})
	require.NoError(t, engine.Generate(env.Ctx, request(env, 5), rec))

	// 5 slides streamed plus one enriched re-send
	slides := rec.Slides()
	require.Len(t, slides, 6)
	assert.Equal(t, "Status", slides[1].Title)
	assert.Equal(t, "https://img.example/1.png", slides[5].ImageURL)
	assert.Equal(t, []string{"service diagram"}, images.Prompts)

	assert.Len(t, env.LLM.RequestsFor(llm.StageOutline), 1)
	assert.Len(t, env.LLM.RequestsFor(llm.StageSlide), 5)
	assert.True(t, env.LLM.PromptContains("Atlas"))

	final := env.Store.LastCheckpoint()
	require.Len(t, final.Slides, 5)
	assert.Equal(t, "https://img.example/1.png", final.Slides[2].ImageURL)
	assert.Equal(t, "ok", final.Metadata["outlineSource"])
	metrics, ok := final.Metadata["metrics"].(runstate.Metrics)
	require.True(t, ok)
	assert.Equal(t, 100, metrics.CompletionScore)
}

func TestGenerate_MissingCredential(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	rec := &testutil.Recorder{}

	err := newEngine(env, nil).Generate(env.Ctx, request(env, 4), rec)

	assert.ErrorIs(t, err, ErrMissingCredential)
	require.Equal(t, []string{runstate.EventError}, rec.Names())
	assert.Empty(t, env.Source.Calls)
	assert.Empty(t, env.Store.Checkpoints)
}

func TestGenerate_PanicBecomesErrorEvent(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	env.LLM.Respond = func(llm.Request) (string, error) {
		panic("boom")
	}
	rec := &testutil.Recorder{}

	err := newEngine(env, env.LLM).Generate(env.Ctx, request(env, 3), rec)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, runstate.EventError, rec.Last().Name)
	assert.Equal(t, 1, rec.Count(runstate.EventError))
	assert.Zero(t, rec.Count(runstate.EventComplete))
	assert.Equal(t, blackboard.StatusFailed, env.Store.LastCheckpoint().Status)
}

func TestGenerate_FinalCheckpointFailure(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	env.Store.UpdateErr = errors.New("store unavailable")
	env.LLM.Respond = func(llm.Request) (string, error) { return "", errors.New("down") }
	rec := &testutil.Recorder{}

	err := newEngine(env, env.LLM).Generate(env.Ctx, request(env, 2), rec)

	require.Error(t, err)
	assert.Equal(t, runstate.EventError, rec.Last().Name)
	assert.True(t, strings.Contains(string(rec.Last().Data), "store unavailable"))
}

func TestGenerate_ReadFailuresDoNotStopRun(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	env.SeedProject()
	env.Source.Errors[datastore.OpRequirements] = errors.New("permission denied")
	env.Source.Errors[datastore.OpCanvasNodes] = errors.New("permission denied")
	env.LLM.Respond = func(llm.Request) (string, error) { return "", errors.New("down") }
	rec := &testutil.Recorder{}

	require.NoError(t, newEngine(env, env.LLM).Generate(env.Ctx, request(env, 4), rec))
	assert.Equal(t, runstate.EventComplete, rec.Last().Name)

	metrics := env.Store.LastCheckpoint().Metadata["metrics"].(runstate.Metrics)
	assert.Equal(t, 65, metrics.CompletionScore)
}

func TestGenerate_RedisMirrorStream(t *testing.T) {
	env := testutil.SetupE2EEnvironment(t)
	env.LLM.Respond = func(llm.Request) (string, error) { return "", errors.New("down") }

	sub, err := env.BBClient.SubscribeEvents(env.Ctx, env.PresentationID)
	require.NoError(t, err)
	defer sub.Close()

	rec := &testutil.Recorder{}
	emitter := stream.Fanout(rec, stream.NewMirror(env.Ctx, env.BBClient, env.PresentationID))
	require.NoError(t, newEngine(env, env.LLM).Generate(env.Ctx, request(env, 1), emitter))

	var names []string
	timeout := time.After(5 * time.Second)
	for len(names) < len(rec.Events()) {
		select {
		case ev := <-sub.Events():
			names = append(names, ev.Name)
		case <-timeout:
			t.Fatalf("received %d of %d mirrored events", len(names), len(rec.Events()))
		}
	}
	assert.Equal(t, rec.Names(), names)
}
