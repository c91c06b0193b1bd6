package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/tendril/internal/cli"
	"github.com/aretw0/tendril/internal/presentation/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph [dir]",
	Short: "Export the flow as a Mermaid diagram",
	Long: `Prints a Mermaid flowchart of the template tree. With --session the
templates the session went through are highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := projectDir(cmd, args)
		flowFile, _ := cmd.Flags().GetString("flow")
		sessionID, _ := cmd.Flags().GetString("session")

		p, err := cli.OpenProject(dir, flowFile, nil, false, cli.NewLogger(false))
		if err != nil {
			return err
		}

		var overlay *graph.Overlay
		if sessionID != "" {
			backend, err := openBackend(cmd, dir)
			if err != nil {
				return err
			}
			defer backend.Close()
			s, err := backend.Store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", sessionID, err)
			}
			overlay = graph.OverlayFor(s)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(p.Root, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the path of this session")
}
