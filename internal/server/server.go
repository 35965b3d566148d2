// Package server exposes the pipeline over HTTP: a streaming POST trigger,
// a CORS preflight, a health check and Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/internal/stream"
	"github.com/dyluth/pitch/pkg/deck"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Slide count bounds applied to requests.
const (
	DefaultTargetSlides = 8
	MaxTargetSlides     = 40
)

// Generator runs one presentation. *orchestrator.Engine implements it.
type Generator interface {
	Generate(ctx context.Context, req runstate.Request, emitter runstate.Emitter) error
}

// Options configure the server.
type Options struct {
	Addr string

	// Redis is pinged by /healthz. Nil reports healthy without a Redis check.
	Redis Pinger

	// Mirror, when set, receives a copy of every streamed event.
	Mirror stream.Publisher

	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// GenerateRequest is the trigger body.
type GenerateRequest struct {
	ProjectID      string `json:"projectId"`
	PresentationID string `json:"presentationId"`
	ShareToken     string `json:"shareToken"`
	Mode           string `json:"mode"`
	TargetSlides   int    `json:"targetSlides"`
	InitialPrompt  string `json:"initialPrompt,omitempty"`
}

// Validate checks the required identifiers.
func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.ProjectID) == "" {
		return fmt.Errorf("projectId is required")
	}
	if strings.TrimSpace(r.PresentationID) == "" {
		return fmt.Errorf("presentationId is required")
	}
	if strings.TrimSpace(r.ShareToken) == "" {
		return fmt.Errorf("shareToken is required")
	}
	return nil
}

// RunRequest converts the body into a run request, clamping the slide count.
func (r *GenerateRequest) RunRequest() runstate.Request {
	return runstate.Request{
		ProjectID:      r.ProjectID,
		PresentationID: r.PresentationID,
		ShareToken:     r.ShareToken,
		Mode:           deck.ParseMode(r.Mode),
		TargetSlides:   ClampSlides(r.TargetSlides),
		InitialPrompt:  strings.TrimSpace(r.InitialPrompt),
	}
}

// ClampSlides maps a requested count into [1, MaxTargetSlides]; zero or
// negative values use DefaultTargetSlides.
func ClampSlides(n int) int {
	switch {
	case n <= 0:
		return DefaultTargetSlides
	case n > MaxTargetSlides:
		return MaxTargetSlides
	default:
		return n
	}
}

// Server is the HTTP front end.
type Server struct {
	engine Generator
	opts   Options
	server *http.Server
}

// New creates a server.
func New(engine Generator, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{engine: engine, opts: opts}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/generate", s.generateHandler)
	mux.HandleFunc("/healthz", s.healthCheckHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		s.generateHandler(w, r)
	})
	return mux
}

// Start starts listening in the background.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// No write timeout: generation streams for minutes
	}

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Server] Listen error: %v", err)
		}
	}()

	log.Printf("[Server] Listening on %s", s.opts.Addr)
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

// generateHandler handles POST /generate and the OPTIONS preflight.
func (s *Server) generateHandler(w http.ResponseWriter, r *http.Request) {
	setCORS(w.Header())

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var body GenerateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := body.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sse, err := stream.NewSSEWriter(w)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	var emitter runstate.Emitter = sse
	if s.opts.Mirror != nil {
		emitter = stream.Fanout(sse, stream.NewMirror(r.Context(), s.opts.Mirror, body.PresentationID))
	}

	req := body.RunRequest()
	log.Printf("[Server] Generating presentation %s (%d slides, %s)", req.PresentationID, req.TargetSlides, req.Mode)

	if err := s.engine.Generate(r.Context(), req, emitter); err != nil {
		log.Printf("[Server] Presentation %s ended with error: %v", req.PresentationID, err)
	}
}
