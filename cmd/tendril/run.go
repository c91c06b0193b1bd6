package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tendril/internal/cli"
)

var runCmd = &cobra.Command{
	Use:   "run [dir]",
	Short: "Run the flow interactively",
	Long: `Runs the flow in the terminal. With --session the conversation is stored
and a later run resumes where the input stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := cli.RunOptions{Dir: projectDir(cmd, args)}
		f := cmd.Flags()
		opts.FlowFile, _ = f.GetString("flow")
		opts.Debug, _ = f.GetBool("debug")
		opts.Backend = backendOptions(cmd, opts.Dir)
		opts.Model.Name, _ = f.GetString("model")
		opts.Model.CacheSize, _ = f.GetInt("cache-size")
		opts.FileTools, _ = f.GetBool("file-tools")
		opts.SessionID, _ = f.GetString("session")
		opts.Fresh, _ = f.GetBool("fresh")
		opts.JSON, _ = f.GetBool("json")
		opts.Verbose, _ = f.GetBool("verbose")
		opts.Context, _ = f.GetString("context")
		opts.Yes, _ = f.GetBool("yes")
		opts.NoBanner, _ = f.GetBool("no-banner")
		return cli.Run(cmd.Context(), opts, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	addModelFlags(runCmd)

	runCmd.Flags().StringP("session", "s", "", "Store the conversation under this session id")
	runCmd.Flags().Bool("fresh", false, "Delete the stored session before running")
	runCmd.Flags().Bool("json", false, "Speak JSON Lines on stdin and stdout")
	runCmd.Flags().BoolP("verbose", "v", false, "Print system and user messages too")
	runCmd.Flags().String("context", "", "JSON object merged into the initial metadata")
	runCmd.Flags().BoolP("yes", "y", false, "Approve every tool call")
	runCmd.Flags().Bool("no-banner", false, "Do not print the banner")

	// Without a subcommand the flow runs with default flags.
	rootCmd.RunE = runCmd.RunE
	rootCmd.Args = runCmd.Args
}
