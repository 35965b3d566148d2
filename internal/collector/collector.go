// Package collector reads project sub-resources from the data store into a
// run's collected data and summarizes each one as blackboard entries.
//
// Each read is independent: a failed fetch yields a failed Result with no
// entries and never stops the remaining reads.
package collector

import (
	"context"
	"fmt"
	"log"

	"github.com/dyluth/pitch/internal/datastore"
	"github.com/dyluth/pitch/internal/metrics"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/blackboard"
)

// Step names, in collection order.
const (
	StepSettings       = "settings"
	StepRequirements   = "requirements"
	StepArtifacts      = "artifacts"
	StepSpecifications = "specifications"
	StepCanvas         = "canvas"
	StepRepoStructure  = "repoStructure"
	StepDatabases      = "databases"
	StepConnections    = "connections"
	StepDeployments    = "deployments"
)

// PhaseCollecting is the status phase streamed before each read.
const PhaseCollecting = "collecting"

// Result is the outcome of one read.
type Result struct {
	Step    string
	Success bool
	Data    any
	Entries []*blackboard.Entry
	Err     error
}

// Step is one named read operation.
type Step struct {
	Name  string
	Label string
	Read  func(ctx context.Context, run *runstate.Run) Result
}

// Collector runs the project reads against a data source.
type Collector struct {
	source   datastore.Source
	recorder metrics.Recorder
}

// New creates a collector. A nil recorder disables metrics.
func New(source datastore.Source, recorder metrics.Recorder) *Collector {
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Collector{source: source, recorder: recorder}
}

// Steps returns the reads in their fixed order.
func (c *Collector) Steps() []Step {
	return []Step{
		{Name: StepSettings, Label: "project settings", Read: c.Settings},
		{Name: StepRequirements, Label: "requirements", Read: c.Requirements},
		{Name: StepArtifacts, Label: "artifacts", Read: c.Artifacts},
		{Name: StepSpecifications, Label: "specifications", Read: c.Specifications},
		{Name: StepCanvas, Label: "architecture canvas", Read: c.Canvas},
		{Name: StepRepoStructure, Label: "repository structure", Read: c.RepoStructure},
		{Name: StepDatabases, Label: "databases", Read: c.Databases},
		{Name: StepConnections, Label: "connections", Read: c.Connections},
		{Name: StepDeployments, Label: "deployments", Read: c.Deployments},
	}
}

// CollectAll runs every read sequentially in the fixed order, streaming a
// status event before each one. It returns one Result per step.
func (c *Collector) CollectAll(ctx context.Context, run *runstate.Run) []Result {
	steps := c.Steps()
	results := make([]Result, 0, len(steps))

	for i, step := range steps {
		run.Status(PhaseCollecting, fmt.Sprintf("Reading %s", step.Label), i+1, len(steps))

		res := step.Read(ctx, run)
		res.Step = step.Name
		c.recorder.IncCollectorRead(step.Name, res.Success)

		if !res.Success {
			log.Printf("[Collector] Read %s failed for project %s: %v", step.Name, run.ProjectID, res.Err)
		}

		results = append(results, res)
	}

	return results
}

// fetch calls one data store operation for the run's project.
func (c *Collector) fetch(ctx context.Context, run *runstate.Run, op string) ([]runstate.Row, error) {
	rows, err := c.source.Fetch(ctx, op, run.ProjectID, run.ShareToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", op, err)
	}
	if rows == nil {
		rows = []runstate.Row{}
	}
	return rows, nil
}

// publish appends entries to the run and builds the success result.
func publish(ctx context.Context, run *runstate.Run, data any, entries ...*blackboard.Entry) Result {
	for _, e := range entries {
		run.Append(ctx, e)
	}
	return Result{Success: true, Data: data, Entries: entries}
}

func failed(err error) Result {
	return Result{Success: false, Err: err}
}
