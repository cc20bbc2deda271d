package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sparkify/dwh/internal/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// v holds the persistent flags, overridable by DWH_CONFIG and DWH_LOG_LEVEL.
var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "dwh",
	Short: "Redshift warehouse for song play events",
	Long: `dwh provisions an Amazon Redshift cluster, loads the song and event
logs from S3 into staging tables, and builds a star schema from them.

Run the commands in order: provision, create-tables, etl. Run teardown
when finished to delete the cluster and its IAM role.`,
	SilenceUsage: true,
}

func Execute() {
	rootCmd.Version = version + " (" + commit + ", " + date + ")"
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func configPath() string {
	return v.GetString("config")
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultPath, "config file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error); overrides [PIPELINE] LOG_LEVEL")

	v.SetEnvPrefix("DWH")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = v.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}
