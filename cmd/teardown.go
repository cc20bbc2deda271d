package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Delete the IAM role and the Redshift cluster",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		result, err := rt.pipeline.Teardown(ctx)
		if err != nil {
			if done := result.Completed(); len(done) > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Completed before failure: %s\n", strings.Join(done, ", "))
			}
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(teardownCmd)
}
