package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)

	rec.ObserveLLMRequest("gemini-2.5-flash", "slide", true, "", 2*time.Second)
	rec.ObserveLLMRequest("gemini-2.5-flash", "slide", false, "rate_limit", time.Second)
	rec.IncSlide("ok")
	rec.IncSlide("fallback")
	rec.IncSlide("fallback")
	rec.IncCollectorRead("canvas", true)
	rec.IncRun("completed")
	rec.IncImage(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.llmRequestsTotal.WithLabelValues("gemini-2.5-flash", "slide", "success", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.llmRequestsTotal.WithLabelValues("gemini-2.5-flash", "slide", "error", "rate_limit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.slidesTotal.WithLabelValues("fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.collectorReads.WithLabelValues("canvas", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runsTotal.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.imagesTotal.WithLabelValues("error")))

	count, err := testutil.GatherAndCount(reg, "pitch_llm_request_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNop(t *testing.T) {
	rec := Nop()
	assert.NotPanics(t, func() {
		rec.ObserveLLMRequest("m", "outline", true, "", time.Millisecond)
		rec.IncSlide("ok")
		rec.IncCollectorRead("settings", false)
		rec.IncRun("failed")
		rec.IncImage(true)
	})
}
