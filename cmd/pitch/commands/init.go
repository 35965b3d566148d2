package commands

import (
	"errors"

	"github.com/dyluth/pitch/internal/printer"
	"github.com/dyluth/pitch/internal/scaffold"
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Write a starter pitch.yml",
	Long: `Write a commented pitch.yml with every default spelled out.

Use --force to overwrite an existing file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "Overwrite an existing pitch.yml")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	path, err := scaffold.Initialize(dir, forceInit)
	if err != nil {
		var exists *scaffold.ErrExists
		if errors.As(err, &exists) {
			return printer.Error("project already initialized", err.Error(), nil)
		}
		return printer.Error("initialization failed", err.Error(), nil)
	}

	out := printer.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
	out.Success("Created %s\n", path)
	out.Info("\nNext steps:\n")
	out.Info("  1. Export PITCH_DATASTORE_URL, PITCH_DATASTORE_KEY and PITCH_LLM_API_KEY\n")
	out.Info("  2. Run 'pitch serve' or 'pitch generate --project <id> --token <token>'\n")
	return nil
}
