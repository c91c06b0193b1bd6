package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/tendril/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "tendril",
	Short: "Tendril runs conversation flows against language models",
	Long: `Tendril renders conversation templates into sessions: a flow.yaml
describes the dialog, tools.yaml the commands the model may call.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("dir", ".", "Directory containing the flow")
	rootCmd.PersistentFlags().String("flow", "", "Flow file inside --dir (default flow.yaml)")
	rootCmd.PersistentFlags().String("redis", "", "Redis URL for sessions, locks and the response cache")
	rootCmd.PersistentFlags().StringSlice("redact", nil, "Mask metadata keys matching this pattern before storing (repeatable)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log to stderr at debug level")
}

// EncryptionKeyEnv names the variable holding a base64 AES-256 key for
// sessions at rest.
const EncryptionKeyEnv = "TENDRIL_ENCRYPTION_KEY"

func backendOptions(cmd *cobra.Command, dir string) cli.BackendOptions {
	opts := cli.BackendOptions{Dir: dir, EncryptionKey: os.Getenv(EncryptionKeyEnv)}
	opts.RedisURL, _ = cmd.Flags().GetString("redis")
	opts.Redact, _ = cmd.Flags().GetStringSlice("redact")
	return opts
}

// projectDir honours a positional directory when --dir was not given.
func projectDir(cmd *cobra.Command, args []string) string {
	dir, _ := cmd.Flags().GetString("dir")
	if !cmd.Flags().Changed("dir") && len(args) > 0 {
		dir = args[0]
	}
	return dir
}

func addModelFlags(cmd *cobra.Command) {
	cmd.Flags().String("model", "echo", "Model backend: echo or none")
	cmd.Flags().Int("cache-size", 0, "Cache this many model responses in memory (ignored with --redis)")
	cmd.Flags().Bool("file-tools", false, "Expose read_file, create_or_overwrite_file and tree_directory")
}
