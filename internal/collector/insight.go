package collector

import (
	"context"
	"fmt"
	"strings"

	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/blackboard"
)

const sourceSynthesis = "synthesize.insights"

// Completion weights per populated category. They sum to 100.
const (
	weightRequirements   = 15
	weightArchitecture   = 20
	weightCode           = 25
	weightSpecifications = 15
	weightArtifacts      = 10
	weightDatabases      = 8
	weightDeployments    = 7
)

// Synthesize derives aggregate metrics from the collected data, stores them on
// the run and appends one estimate entry and one narrative entry.
func Synthesize(ctx context.Context, run *runstate.Run) runstate.Metrics {
	d := run.Data

	m := runstate.Metrics{
		RequirementCount:       len(d.Requirements),
		ArchitectureComponents: len(d.Canvas.Nodes),
		FileCount:              len(d.RepoStructure.Files),
		SpecificationCount:     len(d.Specifications),
		ArtifactCount:          len(d.Artifacts),
		DatabaseCount:          len(d.Databases),
		DeploymentCount:        len(d.Deployments),
	}

	breakdown := map[string]int{}
	score := 0
	for _, part := range []struct {
		name   string
		count  int
		weight int
	}{
		{"requirements", m.RequirementCount, weightRequirements},
		{"architecture", m.ArchitectureComponents, weightArchitecture},
		{"code", m.FileCount, weightCode},
		{"specifications", m.SpecificationCount, weightSpecifications},
		{"artifacts", m.ArtifactCount, weightArtifacts},
		{"databases", m.DatabaseCount, weightDatabases},
		{"deployments", m.DeploymentCount, weightDeployments},
	} {
		if part.count > 0 {
			score += part.weight
			breakdown[part.name] = part.weight
		}
	}

	m.CompletionScore = min(score, 100)
	m.Stage = StageForScore(m.CompletionScore)
	run.Metrics = m

	run.Append(ctx, blackboard.NewEntry(sourceSynthesis, blackboard.CategoryEstimate,
		fmt.Sprintf("Completion score %d/100: the project is %s", m.CompletionScore, m.Stage),
		map[string]any{"score": m.CompletionScore, "stage": m.Stage, "breakdown": breakdown}))

	run.Append(ctx, blackboard.NewEntry(sourceSynthesis, blackboard.CategoryNarrative,
		fmt.Sprintf("%s is %s %s project with a completion score of %d/100, %d requirements, %d architecture components and %d files.",
			d.ProjectName(), article(m.Stage), m.Stage, m.CompletionScore, m.RequirementCount, m.ArchitectureComponents, m.FileCount),
		m))

	return m
}

// StageForScore bands a completion score.
func StageForScore(score int) string {
	switch {
	case score < 30:
		return "early-stage"
	case score < 60:
		return "mid-development"
	default:
		return "advanced"
	}
}

func article(word string) string {
	if word != "" && strings.ContainsRune("aeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}
