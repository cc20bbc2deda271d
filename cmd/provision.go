package cmd

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sparkify/dwh/internal/aws"
	"github.com/sparkify/dwh/internal/ui"
)

var provisionCmd = &cobra.Command{
	Use:   "provision",
	Short: "Create the IAM role and Redshift cluster, and wait until it is available",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		var observe func(aws.ClusterState)
		var tracker *ui.Tracker
		if isatty.IsTerminal(os.Stdout.Fd()) {
			observe = func(s aws.ClusterState) {
				if tracker == nil {
					tracker = ui.StartTracker(os.Stdout, rt.cfg.Cluster.Identifier)
				}
				tracker.Observe(s)
				if s.Available() {
					tracker.Stop(nil)
					tracker = nil
				}
			}
		}

		_, err = rt.pipeline.Provision(ctx, observe)
		if tracker != nil {
			tracker.Stop(err)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(provisionCmd)
}
