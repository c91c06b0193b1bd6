package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tendril/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the flow for consistency",
	Long:  `Loads the flow and its tools, reporting duplicate ids, unknown jump targets and unknown tools.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		flowFile, _ := cmd.Flags().GetString("flow")
		rep, err := cli.Validate(projectDir(cmd, args), flowFile)
		if err != nil {
			return err
		}
		rep.Print(os.Stdout)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
