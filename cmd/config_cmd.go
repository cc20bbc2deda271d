package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sparkify/dwh/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "Configuration from %s:\n\n", configPath())
		fmt.Fprintf(w, "  AWS:\n")
		fmt.Fprintf(w, "    Key:            %s\n", maskSecret(cfg.AWS.Key))
		fmt.Fprintf(w, "    Secret:         %s\n", maskSecret(cfg.AWS.Secret))
		fmt.Fprintf(w, "    Region:         %s\n", cfg.Cluster.Region)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Cluster:\n")
		fmt.Fprintf(w, "    Identifier:     %s\n", cfg.Cluster.Identifier)
		fmt.Fprintf(w, "    Type:           %s\n", cfg.Cluster.ClusterType)
		fmt.Fprintf(w, "    Node Type:      %s\n", cfg.Cluster.NodeType)
		fmt.Fprintf(w, "    Nodes:          %d\n", cfg.Cluster.NumNodes)
		fmt.Fprintf(w, "    Database:       %s\n", cfg.Cluster.DBName)
		fmt.Fprintf(w, "    User:           %s\n", cfg.Cluster.MasterUser)
		fmt.Fprintf(w, "    Password:       %s\n", maskSecret(cfg.Cluster.MasterPassword))
		fmt.Fprintf(w, "    Port:           %d\n", cfg.Cluster.Port)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  IAM:\n")
		fmt.Fprintf(w, "    Role:           %s\n", cfg.Role.RoleName)
		fmt.Fprintf(w, "    Policy:         %s\n", cfg.Role.PolicyARN)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  S3:\n")
		fmt.Fprintf(w, "    Log Data:       %s\n", cfg.S3.LogData)
		fmt.Fprintf(w, "    Log JSONPath:   %s\n", cfg.S3.LogJSONPath)
		fmt.Fprintf(w, "    Song Data:      %s\n", cfg.S3.SongData)
		fmt.Fprintln(w)
		p := cfg.Pipeline
		fmt.Fprintf(w, "  Pipeline:\n")
		fmt.Fprintf(w, "    Poll:           every %s, timeout %s\n", p.PollInterval, p.PollTimeout)
		fmt.Fprintf(w, "    Driver:         %s (sslmode=%s)\n", p.DBDriver, p.SSLMode)
		if p.QueryFile != "" {
			fmt.Fprintf(w, "    Query File:     %s\n", p.QueryFile)
		}
		fmt.Fprintf(w, "    Preflight:      %v\n", !p.SkipPreflight)
		fmt.Fprintf(w, "    State File:     %s\n", p.StateFile)
		fmt.Fprintf(w, "    Logs:           %s (%s)\n", p.LogDir, p.LogLevel)

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()

		cfg, err := config.Load(configPath())
		if err != nil {
			var missing *config.MissingFieldsError
			if errors.As(err, &missing) {
				fmt.Fprintln(w, "Missing fields:")
				for _, f := range missing.Fields {
					fmt.Fprintf(w, "  - %s\n", f)
				}
			}
			return fmt.Errorf("config invalid: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			fmt.Fprintln(w, "Validation errors:")
			for _, line := range strings.Split(err.Error(), "\n") {
				fmt.Fprintf(w, "  - %s\n", line)
			}
			return errors.New("config invalid")
		}

		fmt.Fprintln(w, "Configuration is valid.")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
