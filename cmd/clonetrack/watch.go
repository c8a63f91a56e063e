package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/highbeam/clonetrack/internal/daemon"
	"github.com/highbeam/clonetrack/internal/ipc"
	"github.com/highbeam/clonetrack/internal/pipeline"
	"github.com/highbeam/clonetrack/internal/report"
)

func watchCmd(g *globalFlags) *cobra.Command {
	var flags mapFlags

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Remap whenever reports or change logs change",
		Long: `Map once, then watch the report and change log directories and map
again each time their files settle. Stops on SIGINT, SIGTERM or
"clonetrack watch stop".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			flags.apply(cmd, cfg)

			d := daemon.New(cfg)
			out := cmd.OutOrStdout()
			d.OnResult = func(res *pipeline.Result, err error) {
				if err != nil {
					fmt.Fprintf(out, "map failed: %v\n", err)
					return
				}
				fmt.Fprintf(out, "mapped revisions %d..%d: %d clones\n", res.MinRevision, res.MaxRevision, res.Clones)
			}
			return d.Run(cmd.Context())
		},
	}

	flags.register(cmd)
	cmd.AddCommand(watchStatusCmd(g), watchRemapCmd(g), watchStopCmd(g))

	return cmd
}

// daemonClient returns a client for the control socket of the configured
// daemon.
func (g *globalFlags) daemonClient() (*ipc.Client, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	return ipc.NewClient(cfg.SocketPath), nil
}

func watchStatusCmd(g *globalFlags) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the status of a running watch daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.daemonClient()
			if err != nil {
				return err
			}
			st, err := c.Status()
			if err != nil {
				return err
			}
			if jsonOutput {
				fmt.Fprintln(cmd.OutOrStdout(), report.FormatJSON(st))
			} else {
				fmt.Fprint(cmd.OutOrStdout(), report.FormatDaemonStatus(st))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func watchRemapCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remap",
		Short: "Ask a running watch daemon to map again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.daemonClient()
			if err != nil {
				return err
			}
			if err := c.Remap(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "remap queued")
			return nil
		},
	}
}

func watchStopCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop a running watch daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.daemonClient()
			if err != nil {
				return err
			}
			if err := c.RequestStop(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "daemon stopping")
			return nil
		},
	}
}
