package cmd

import (
	"github.com/spf13/cobra"
)

var etlCmd = &cobra.Command{
	Use:   "etl",
	Short: "Load the staging tables from S3 and fill the star schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		return rt.pipeline.Load(ctx)
	},
}

func init() {
	rootCmd.AddCommand(etlCmd)
}
