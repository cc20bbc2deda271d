package cmd

import (
	"github.com/spf13/cobra"
)

var createTablesCmd = &cobra.Command{
	Use:   "create-tables",
	Short: "Drop and recreate every warehouse table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		rt, err := newRuntime(ctx, true)
		if err != nil {
			return err
		}
		defer rt.close()

		return rt.pipeline.ResetSchema(ctx)
	},
}

func init() {
	rootCmd.AddCommand(createTablesCmd)
}
