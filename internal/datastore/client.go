// Package datastore is the client for the project data store: a set of named
// remote procedures, each keyed by a project (or repository) id plus the share
// token that grants access to it.
package datastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dyluth/pitch/pkg/blackboard"
)

// Row is one record returned by a fetch procedure.
type Row = map[string]any

// Fetch operations. Each names a remote procedure taking {id, token}.
const (
	OpProject        = "get_project_with_token"
	OpRequirements   = "get_requirements_with_token"
	OpArtifacts      = "get_artifacts_with_token"
	OpSpecifications = "get_project_specification_with_token"
	OpCanvasNodes    = "get_canvas_nodes_with_token"
	OpCanvasEdges    = "get_canvas_edges_with_token"
	OpRepos          = "get_repos_with_token"
	OpRepoFiles      = "get_repo_files_with_token"
	OpDatabases      = "get_databases_with_token"
	OpConnections    = "get_project_connections_with_token"
	OpDeployments    = "get_deployments_with_token"
)

// State-mutating operations.
const (
	OpUpdatePresentation = "update_presentation_with_token"
	OpAppendBlackboard   = "append_presentation_blackboard_with_token"
)

// Source fetches project sub-resources.
type Source interface {
	// Fetch calls the named fetch operation for id (a project id, or a repo id
	// for OpRepoFiles). A missing resource is an empty slice, not an error.
	Fetch(ctx context.Context, op, id, token string) ([]Row, error)
}

// RPCError is a failed remote procedure call.
type RPCError struct {
	Procedure  string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s failed (status %d): %s", e.Procedure, e.StatusCode, e.Message)
}

// Client calls the data store's RPC endpoint over HTTP.
// It implements Source and the checkpoint writer used by a run.
type Client struct {
	baseURL string
	key     string
	client  *http.Client
}

// NewClient creates a data store client.
func NewClient(baseURL, key string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		key:     key,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// rpcURL constructs the endpoint for a procedure.
func (c *Client) rpcURL(procedure string) string {
	return fmt.Sprintf("%s/rest/v1/rpc/%s", c.baseURL, procedure)
}

// call invokes procedure with params and returns the raw response body.
func (c *Client) call(ctx context.Context, procedure string, params map[string]any) ([]byte, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s params: %w", procedure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL(procedure), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc %s request failed: %w", procedure, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", procedure, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RPCError{
			Procedure:  procedure,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(payload),
		}
	}

	return payload, nil
}

// Fetch implements Source.
func (c *Client) Fetch(ctx context.Context, op, id, token string) ([]Row, error) {
	idParam := "p_project_id"
	if op == OpRepoFiles {
		idParam = "p_repo_id"
	}

	payload, err := c.call(ctx, op, map[string]any{
		idParam:   id,
		"p_token": token,
	})
	if err != nil {
		return nil, err
	}

	return decodeRows(op, payload)
}

// UpdatePresentation overwrites the presentation's status, slides, blackboard and metadata.
func (c *Client) UpdatePresentation(ctx context.Context, cp *blackboard.Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return fmt.Errorf("invalid checkpoint: %w", err)
	}

	slides := any(cp.Slides)
	if cp.Slides == nil {
		slides = []any{}
	}
	entries := any(cp.Blackboard)
	if cp.Blackboard == nil {
		entries = []any{}
	}

	params := map[string]any{
		"p_presentation_id": cp.PresentationID,
		"p_token":           cp.ShareToken,
		"p_status":          string(cp.Status),
		"p_slides":          slides,
		"p_blackboard":      entries,
	}
	if cp.Metadata != nil {
		params["p_metadata"] = cp.Metadata
	}

	_, err := c.call(ctx, OpUpdatePresentation, params)
	return err
}

// AppendBlackboard appends one entry to the presentation's persisted blackboard.
func (c *Client) AppendBlackboard(ctx context.Context, presentationID, shareToken string, e *blackboard.Entry) error {
	_, err := c.call(ctx, OpAppendBlackboard, map[string]any{
		"p_presentation_id": presentationID,
		"p_token":           shareToken,
		"p_entry":           e,
	})
	return err
}

// decodeRows accepts an array, a single object, or null.
func decodeRows(op string, payload []byte) ([]Row, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Row{}, nil
	}

	if trimmed[0] == '{' {
		var row Row
		if err := json.Unmarshal(trimmed, &row); err != nil {
			return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
		}
		return []Row{row}, nil
	}

	var rows []Row
	if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	if rows == nil {
		rows = []Row{}
	}
	return rows, nil
}

// errorMessage extracts "message" from a JSON error body, falling back to the raw text.
func errorMessage(payload []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(payload, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(payload))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
