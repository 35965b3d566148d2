package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dyluth/pitch/internal/runstate"
	"github.com/dyluth/pitch/pkg/deck"
)

const systemPrompt = "You are a presentation writer. You write concise, concrete slide content " +
	"grounded only in the project data you are given."

const neighborWindow = 3

// BuildPrompt renders the slide request for outlines[index].
func BuildPrompt(run *runstate.Run, outlines []deck.SlideOutline, index int, ctx Context) string {
	o := outlines[index]
	var b strings.Builder

	fmt.Fprintf(&b, "Project: %s\n", run.Data.ProjectName())
	if desc := run.Data.ProjectDescription(); desc != "" {
		fmt.Fprintf(&b, "Description: %s\n", desc)
	}
	if run.InitialPrompt != "" {
		fmt.Fprintf(&b, "The presenter asked for: %s\n", run.InitialPrompt)
	}
	fmt.Fprintf(&b, "Presentation mode: %s\n", run.Mode)

	fmt.Fprintf(&b, "\nWrite slide %d of %d (%s of the story).\n", o.Order, len(outlines), StoryPosition(index, len(outlines)))
	fmt.Fprintf(&b, "Title: %s\nPurpose: %s\n", o.Title, o.Purpose)
	if len(o.KeyContent) > 0 {
		fmt.Fprintf(&b, "Key content: %s\n", strings.Join(o.KeyContent, "; "))
	}
	if o.ImagePrompt != "" {
		fmt.Fprintf(&b, "Image idea: %s\n", o.ImagePrompt)
	}

	if before := titles(outlines[max(0, index-neighborWindow):index]); before != "" {
		fmt.Fprintf(&b, "\nPreceding slides: %s\n", before)
	}
	if index+1 < len(outlines) {
		end := min(len(outlines), index+1+neighborWindow)
		fmt.Fprintf(&b, "Following slides: %s\n", titles(outlines[index+1:end]))
	}

	if len(ctx.Entries) > 0 {
		b.WriteString("\nRelevant analysis:\n")
		for _, e := range ctx.Entries {
			fmt.Fprintf(&b, "- [%s] %s\n", e.Category, e.Content)
		}
	}
	if len(ctx.Requirements) > 0 {
		b.WriteString("\nRequirements:\n")
		for _, r := range ctx.Requirements {
			fmt.Fprintf(&b, "- %s\n", describeRow(r, "title", "name", "description"))
		}
	}
	if len(ctx.Architecture) > 0 {
		b.WriteString("\nArchitecture components:\n")
		for _, n := range ctx.Architecture {
			fmt.Fprintf(&b, "- %s\n", describeNode(n))
		}
	}
	if ctx.Metrics != nil {
		if raw, err := json.Marshal(ctx.Metrics); err == nil {
			fmt.Fprintf(&b, "\nProject metrics: %s\n", raw)
		}
	}

	layout, ok := deck.LookupLayout(o.LayoutID)
	if ok {
		b.WriteString("\n")
		b.WriteString(layout.Describe())
	}

	fmt.Fprintf(&b, `
Return one JSON object with:
  "title": string
  "subtitle": optional string
  "content": array of {"regionId": string, "type": string, "data": object}, using only the regions of layout %q
  "notes": speaker notes
Text regions use {"text": "..."}; bullet regions use {"items": ["..."]}; stat regions use {"value": "...", "label": "..."}.
`, o.LayoutID)

	return b.String()
}

func titles(outlines []deck.SlideOutline) string {
	parts := make([]string, len(outlines))
	for i, o := range outlines {
		parts[i] = fmt.Sprintf("%d. %s", o.Order, o.Title)
	}
	return strings.Join(parts, ", ")
}

func describeRow(row runstate.Row, keys ...string) string {
	var parts []string
	for _, k := range keys {
		if s, ok := row[k].(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "(untitled)"
	}
	return strings.Join(parts, ": ")
}

func describeNode(node runstate.Row) string {
	label := ""
	if data, ok := node["data"].(map[string]any); ok {
		label, _ = data["label"].(string)
	}
	if label == "" {
		label = describeRow(node, "label", "name", "id")
	}
	if kind, ok := node["type"].(string); ok && kind != "" {
		return fmt.Sprintf("%s (%s)", label, kind)
	}
	return label
}
