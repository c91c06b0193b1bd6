package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/tendril/internal/cli"
)

var serveCmd = &cobra.Command{
	Use:   "serve [dir]",
	Short: "Serve the flow over HTTP",
	Long: `Exposes the flow as a JSON API: POST /runs advances a session, GET
/events streams session diffs and /metrics serves Prometheus metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		svc, err := cli.OpenService(serveOptions(cmd, args))
		if err != nil {
			return err
		}
		defer svc.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return cli.ServeHTTP(ctx, addr, svc.HTTPHandler(), svc.Logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addModelFlags(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().StringSlice("allow-tool", nil, "Only allow these tools (repeatable)")
	serveCmd.Flags().Bool("memory", false, "Keep sessions in memory only")
}

func serveOptions(cmd *cobra.Command, args []string) cli.ServeOptions {
	opts := cli.ServeOptions{Dir: projectDir(cmd, args)}
	f := cmd.Flags()
	opts.FlowFile, _ = f.GetString("flow")
	opts.Debug, _ = f.GetBool("debug")
	opts.FileTools, _ = f.GetBool("file-tools")
	opts.AllowTools, _ = f.GetStringSlice("allow-tool")
	opts.Backend = backendOptions(cmd, opts.Dir)
	opts.Backend.Memory, _ = f.GetBool("memory")
	opts.Model.Name, _ = f.GetString("model")
	opts.Model.CacheSize, _ = f.GetInt("cache-size")
	return opts
}
