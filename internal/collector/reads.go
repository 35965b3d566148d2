package collector

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/dyluth/pitch/internal/datastore"
	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/blackboard"
)

// Entry sources, one per read.
const (
	sourceSettings       = "collect.settings"
	sourceRequirements   = "collect.requirements"
	sourceArtifacts      = "collect.artifacts"
	sourceSpecifications = "collect.specifications"
	sourceCanvas         = "collect.canvas"
	sourceRepoStructure  = "collect.repoStructure"
	sourceDatabases      = "collect.databases"
	sourceConnections    = "collect.connections"
	sourceDeployments    = "collect.deployments"
)

// Settings reads the project record and classifies its maturity by age.
func (c *Collector) Settings(ctx context.Context, run *runstate.Run) Result {
	rows, err := c.fetch(ctx, run, datastore.OpProject)
	if err != nil {
		return failed(err)
	}

	settings := runstate.Row{}
	if len(rows) > 0 && rows[0] != nil {
		settings = rows[0]
	}
	run.Data.Settings = settings

	if len(settings) == 0 {
		return publish(ctx, run, settings,
			blackboard.NewEntry(sourceSettings, blackboard.CategoryQuestion,
				"No project settings were found. What is this project called and what does it do?", nil))
	}

	name := run.Data.ProjectName()
	entries := []*blackboard.Entry{}

	content := fmt.Sprintf("Project %q", name)
	if desc := run.Data.ProjectDescription(); desc != "" {
		content += ": " + desc
	}
	entries = append(entries, blackboard.NewEntry(sourceSettings, blackboard.CategoryObservation, content,
		map[string]any{"name": name, "description": run.Data.ProjectDescription()}))

	if created, ok := parseTime(settings["created_at"]); ok {
		days := int(time.Since(created).Hours() / 24)
		if days < 0 {
			days = 0
		}
		maturity := MaturityForAge(days)
		entries = append(entries, blackboard.NewEntry(sourceSettings, blackboard.CategoryAnalysis,
			fmt.Sprintf("Project is %d days old, which places it in the %s phase", days, maturity),
			map[string]any{"ageDays": days, "maturity": maturity}))
	}

	return publish(ctx, run, settings, entries...)
}

// MaturityForAge buckets a project age in days.
func MaturityForAge(days int) string {
	switch {
	case days < 7:
		return "nascent"
	case days < 30:
		return "developing"
	case days < 90:
		return "maturing"
	default:
		return "established"
	}
}

// Requirements reads the requirement tree and measures how far it is decomposed.
func (c *Collector) Requirements(ctx context.Context, run *runstate.Run) Result {
	rows, err := c.fetch(ctx, run, datastore.OpRequirements)
	if err != nil {
		return failed(err)
	}
	run.Data.Requirements = rows

	if len(rows) == 0 {
		return publish(ctx, run, rows,
			blackboard.NewEntry(sourceRequirements, blackboard.CategoryQuestion,
				"No requirements have been captured yet. What problem does the project solve?", nil))
	}

	var topLevel, nested int
	var titles []string
	for _, row := range rows {
		if !hasParent(row) {
			topLevel++
			if title := rowString(row, "title", "name"); title != "" && len(titles) < 5 {
				titles = append(titles, title)
			}
		} else {
			nested++
		}
	}

	ratio := float64(nested) / float64(max(topLevel, 1))

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceRequirements, blackboard.CategoryObservation,
			fmt.Sprintf("%d requirements captured (%d top-level, %d nested)", len(rows), topLevel, nested),
			map[string]any{"total": len(rows), "topLevel": topLevel, "nested": nested}),
		blackboard.NewEntry(sourceRequirements, blackboard.CategoryAnalysis,
			fmt.Sprintf("Decomposition ratio %.1f: %s", ratio, DecompositionBand(ratio)),
			map[string]any{"ratio": ratio}),
	}
	if len(titles) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceRequirements, blackboard.CategoryInsight,
			"Key requirements: "+strings.Join(titles, ", "), map[string]any{"titles": titles}))
	}

	return publish(ctx, run, rows, entries...)
}

// DecompositionBand describes a nested/top-level requirement ratio.
func DecompositionBand(ratio float64) string {
	switch {
	case ratio > 3:
		return "requirements are deeply decomposed into detailed sub-requirements"
	case ratio > 1:
		return "requirements are moderately decomposed"
	default:
		return "requirements are mostly high-level and not yet broken down"
	}
}

// Artifacts reads uploaded documents and notes.
func (c *Collector) Artifacts(ctx context.Context, run *runstate.Run) Result {
	rows, err := c.fetch(ctx, run, datastore.OpArtifacts)
	if err != nil {
		return failed(err)
	}
	run.Data.Artifacts = rows

	if len(rows) == 0 {
		return publish(ctx, run, rows,
			blackboard.NewEntry(sourceArtifacts, blackboard.CategoryObservation, "No artifacts have been uploaded", nil))
	}

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceArtifacts, blackboard.CategoryObservation,
			fmt.Sprintf("%d artifacts uploaded", len(rows)), map[string]any{"total": len(rows)}),
	}

	if types := composition(rows, "artifact_type", "type"); len(types) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceArtifacts, blackboard.CategoryObservation,
			"Artifacts by type: "+formatComposition(types, 5), map[string]any{"types": types}))
	}

	var titles []string
	for _, row := range rows {
		if title := rowString(row, "ai_title", "title", "name"); title != "" {
			titles = append(titles, title)
		}
		if len(titles) == 5 {
			break
		}
	}
	if len(titles) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceArtifacts, blackboard.CategoryInsight,
			"Notable artifacts: "+strings.Join(titles, ", "), map[string]any{"titles": titles}))
	}

	return publish(ctx, run, rows, entries...)
}

// Specifications reads generated specification documents.
func (c *Collector) Specifications(ctx context.Context, run *runstate.Run) Result {
	rows, err := c.fetch(ctx, run, datastore.OpSpecifications)
	if err != nil {
		return failed(err)
	}
	run.Data.Specifications = rows

	if len(rows) == 0 {
		return publish(ctx, run, rows,
			blackboard.NewEntry(sourceSpecifications, blackboard.CategoryQuestion,
				"No specifications have been generated. Which parts of the system need to be specified?", nil))
	}

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceSpecifications, blackboard.CategoryObservation,
			fmt.Sprintf("%d specifications generated", len(rows)), map[string]any{"total": len(rows)}),
	}

	if kinds := composition(rows, "agent_id", "type"); len(kinds) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceSpecifications, blackboard.CategoryInsight,
			"Specification coverage: "+formatComposition(kinds, 5), map[string]any{"kinds": kinds}))
	}

	return publish(ctx, run, rows, entries...)
}

// Canvas reads the architecture graph and measures its connectivity.
func (c *Collector) Canvas(ctx context.Context, run *runstate.Run) Result {
	nodes, err := c.fetch(ctx, run, datastore.OpCanvasNodes)
	if err != nil {
		return failed(err)
	}
	edges, err := c.fetch(ctx, run, datastore.OpCanvasEdges)
	if err != nil {
		return failed(err)
	}

	canvas := runstate.Canvas{Nodes: nodes, Edges: edges}
	run.Data.Canvas = canvas

	if len(nodes) == 0 {
		return publish(ctx, run, canvas,
			blackboard.NewEntry(sourceCanvas, blackboard.CategoryQuestion,
				"No architecture has been sketched yet. What are the main components?", nil))
	}

	ratio := float64(len(edges)) / float64(max(len(nodes), 1))

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceCanvas, blackboard.CategoryObservation,
			fmt.Sprintf("Architecture has %d components and %d connections", len(nodes), len(edges)),
			map[string]any{"nodes": len(nodes), "edges": len(edges)}),
	}

	if types := composition(nodes, "type"); len(types) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceCanvas, blackboard.CategoryObservation,
			"Components by type: "+formatComposition(types, 5), map[string]any{"types": types}))
	}

	entries = append(entries, blackboard.NewEntry(sourceCanvas, blackboard.CategoryAnalysis,
		fmt.Sprintf("Connectivity ratio %.1f: %s", ratio, ConnectivityBand(ratio)),
		map[string]any{"ratio": ratio}))

	var labels []string
	for _, node := range nodes {
		if label := nodeLabel(node); label != "" {
			labels = append(labels, label)
		}
		if len(labels) == 5 {
			break
		}
	}
	if len(labels) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceCanvas, blackboard.CategoryInsight,
			"Key components: "+strings.Join(labels, ", "), map[string]any{"components": labels}))
	}

	return publish(ctx, run, canvas, entries...)
}

// ConnectivityBand describes an edges-per-node ratio.
func ConnectivityBand(ratio float64) string {
	switch {
	case ratio > 2:
		return "components are highly interconnected"
	case ratio > 1:
		return "components are moderately connected"
	default:
		return "components are loosely coupled"
	}
}

// RepoStructure reads the connected repositories and the file list of each.
func (c *Collector) RepoStructure(ctx context.Context, run *runstate.Run) Result {
	repos, err := c.fetch(ctx, run, datastore.OpRepos)
	if err != nil {
		return failed(err)
	}

	files := []runstate.Row{}
	for _, repo := range repos {
		repoID := rowString(repo, "id")
		if repoID == "" {
			continue
		}
		repoFiles, err := c.source.Fetch(ctx, datastore.OpRepoFiles, repoID, run.ShareToken)
		if err != nil {
			return failed(fmt.Errorf("failed to fetch files for repo %s: %w", repoID, err))
		}
		files = append(files, repoFiles...)
	}

	structure := runstate.RepoStructure{Repos: repos, Files: files}
	run.Data.RepoStructure = structure

	if len(repos) == 0 {
		return publish(ctx, run, structure,
			blackboard.NewEntry(sourceRepoStructure, blackboard.CategoryObservation, "No repositories are connected", nil))
	}

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceRepoStructure, blackboard.CategoryObservation,
			fmt.Sprintf("%d repositories containing %d files", len(repos), len(files)),
			map[string]any{"repos": len(repos), "files": len(files)}),
	}

	exts := map[string]int{}
	for _, f := range files {
		ext := strings.TrimPrefix(path.Ext(rowString(f, "path", "file_path", "name")), ".")
		if ext != "" {
			exts[strings.ToLower(ext)]++
		}
	}
	if len(exts) > 0 {
		ranked := rank(exts)
		entries = append(entries,
			blackboard.NewEntry(sourceRepoStructure, blackboard.CategoryObservation,
				"File composition: "+formatComposition(exts, 5), map[string]any{"extensions": exts}),
			blackboard.NewEntry(sourceRepoStructure, blackboard.CategoryInsight,
				fmt.Sprintf("Codebase is primarily .%s files", ranked[0]), map[string]any{"primary": ranked[0]}))
	} else if len(files) == 0 {
		entries = append(entries, blackboard.NewEntry(sourceRepoStructure, blackboard.CategoryQuestion,
			"Repositories are connected but contain no files yet. Has development started?", nil))
	}

	return publish(ctx, run, structure, entries...)
}

// Databases reads provisioned databases.
func (c *Collector) Databases(ctx context.Context, run *runstate.Run) Result {
	rows, err := c.fetch(ctx, run, datastore.OpDatabases)
	if err != nil {
		return failed(err)
	}
	run.Data.Databases = rows

	if len(rows) == 0 {
		return publish(ctx, run, rows,
			blackboard.NewEntry(sourceDatabases, blackboard.CategoryObservation, "No databases are provisioned", nil))
	}

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceDatabases, blackboard.CategoryObservation,
			fmt.Sprintf("%d databases provisioned", len(rows)), map[string]any{"total": len(rows)}),
	}
	if statuses := composition(rows, "status"); len(statuses) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceDatabases, blackboard.CategoryObservation,
			"Databases by status: "+formatComposition(statuses, 5), map[string]any{"statuses": statuses}))
	}

	return publish(ctx, run, rows, entries...)
}

// Connections reads external service integrations.
func (c *Collector) Connections(ctx context.Context, run *runstate.Run) Result {
	rows, err := c.fetch(ctx, run, datastore.OpConnections)
	if err != nil {
		return failed(err)
	}
	run.Data.Connections = rows

	if len(rows) == 0 {
		return publish(ctx, run, rows,
			blackboard.NewEntry(sourceConnections, blackboard.CategoryObservation, "No external services are connected", nil))
	}

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceConnections, blackboard.CategoryObservation,
			fmt.Sprintf("%d external connections configured", len(rows)), map[string]any{"total": len(rows)}),
	}
	if kinds := composition(rows, "connection_type", "type"); len(kinds) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceConnections, blackboard.CategoryInsight,
			"Integrates with "+formatComposition(kinds, 5), map[string]any{"types": kinds}))
	}

	return publish(ctx, run, rows, entries...)
}

// Deployments reads deployment environments and their state.
func (c *Collector) Deployments(ctx context.Context, run *runstate.Run) Result {
	rows, err := c.fetch(ctx, run, datastore.OpDeployments)
	if err != nil {
		return failed(err)
	}
	run.Data.Deployments = rows

	if len(rows) == 0 {
		return publish(ctx, run, rows,
			blackboard.NewEntry(sourceDeployments, blackboard.CategoryQuestion,
				"Nothing has been deployed yet. What is the path to production?", nil))
	}

	entries := []*blackboard.Entry{
		blackboard.NewEntry(sourceDeployments, blackboard.CategoryObservation,
			fmt.Sprintf("%d deployments recorded", len(rows)), map[string]any{"total": len(rows)}),
	}
	if envs := composition(rows, "environment"); len(envs) > 0 {
		entries = append(entries, blackboard.NewEntry(sourceDeployments, blackboard.CategoryObservation,
			"Deployments by environment: "+formatComposition(envs, 5), map[string]any{"environments": envs}))
	}

	for _, row := range rows {
		if strings.EqualFold(rowString(row, "environment"), "production") &&
			strings.EqualFold(rowString(row, "status"), "active") {
			entries = append(entries, blackboard.NewEntry(sourceDeployments, blackboard.CategoryInsight,
				"The project is live in production", nil))
			break
		}
	}

	return publish(ctx, run, rows, entries...)
}

// rowString returns the first non-empty string value among keys.
func rowString(row runstate.Row, keys ...string) string {
	for _, key := range keys {
		if s, ok := row[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// hasParent reports whether a requirement row references a parent of any type.
func hasParent(row runstate.Row) bool {
	switch v := row["parent_id"].(type) {
	case nil:
		return false
	case string:
		return v != ""
	default:
		return true
	}
}

// nodeLabel returns a canvas node's display label.
func nodeLabel(node runstate.Row) string {
	if data, ok := node["data"].(map[string]any); ok {
		if label := rowString(data, "label", "name"); label != "" {
			return label
		}
	}
	return rowString(node, "label", "name")
}

// composition counts rows by the first present key.
func composition(rows []runstate.Row, keys ...string) map[string]int {
	counts := map[string]int{}
	for _, row := range rows {
		if v := rowString(row, keys...); v != "" {
			counts[v]++
		}
	}
	return counts
}

// rank orders the keys of counts by descending count, then name.
func rank(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// formatComposition renders the top limit entries as "a 3, b 1".
func formatComposition(counts map[string]int, limit int) string {
	ranked := rank(counts)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	parts := make([]string, len(ranked))
	for i, k := range ranked {
		parts[i] = fmt.Sprintf("%s %d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

// parseTime accepts RFC 3339 timestamps with or without fractional seconds.
func parseTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
