package commands

import (
	"fmt"
	"strings"

	"github.com/dyluth/pitch/internal/planner"
	"github.com/dyluth/pitch/internal/printer"
	"github.com/dyluth/pitch/internal/server"
	"github.com/dyluth/pitch/pkg/deck"
	"github.com/spf13/cobra"
)

var (
	outlineSlides int
	outlineMode   string
)

var outlineCmd = &cobra.Command{
	Use:   "outline",
	Short: "Show how slides are allocated across story sections",
	Long: `Print the story structure the planner requests for a slide count and mode.
No network access is needed.

Examples:
  pitch outline --slides 8
  pitch outline --slides 25 --mode detailed`,
	Args: cobra.NoArgs,
	RunE: runOutline,
}

func init() {
	outlineCmd.Flags().IntVarP(&outlineSlides, "slides", "s", server.DefaultTargetSlides, "Target slide count")
	outlineCmd.Flags().StringVarP(&outlineMode, "mode", "m", "concise", "Presentation mode (concise or detailed)")
	rootCmd.AddCommand(outlineCmd)
}

func runOutline(cmd *cobra.Command, args []string) error {
	mode := deck.Mode(strings.ToLower(outlineMode))
	if mode != deck.ModeConcise && mode != deck.ModeDetailed {
		return printer.Error(
			"invalid mode",
			fmt.Sprintf("Unknown mode: %s", outlineMode),
			[]string{"Valid modes: concise, detailed"},
		)
	}

	target := server.ClampSlides(outlineSlides)
	sections := planner.BuildStoryStructure(target, mode)

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Story structure for %d slides (%s):\n\n", target, mode)
	fmt.Fprintf(w, "%-14s %-6s %-40s %s\n", "SECTION", "SLIDES", "LAYOUTS", "PURPOSE")
	fmt.Fprintf(w, "%-14s %-6s %-40s %s\n", "--------------", "------", "----------------------------------------", "-------")

	allocated := 0
	for _, s := range sections {
		allocated += s.SlideCount
		fmt.Fprintf(w, "%-14s %-6d %-40s %s\n", s.Section, s.SlideCount, strings.Join(s.Layouts, ", "), s.Purpose)
	}

	fmt.Fprintf(w, "\n%d slides allocated\n", allocated)
	if allocated < target {
		fmt.Fprintf(w, "The remaining %d are padded after the model outline (%s mode holds at most %d)\n",
			target-allocated, mode, planner.MaxSlides(mode))
	}
	return nil
}
