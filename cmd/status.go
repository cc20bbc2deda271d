package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sparkify/dwh/internal/pipeline"
	"github.com/sparkify/dwh/internal/queries"
	"github.com/sparkify/dwh/internal/state"
	"github.com/sparkify/dwh/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the cluster status and what the pipeline has done",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		rt, err := newRuntime(ctx, false)
		if err != nil {
			return err
		}
		defer rt.close()

		report, err := rt.pipeline.Status(ctx)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), rt.cfg.Cluster.Identifier, report)
		return nil
	},
}

func printReport(w io.Writer, identifier string, r *pipeline.Report) {
	fmt.Fprintln(w, ui.TitleStyle.Render("dwh status"))
	fmt.Fprintln(w)

	if r.Identity != nil {
		fmt.Fprintf(w, "  Account:   %s\n", r.Identity.Account)
		fmt.Fprintf(w, "  Caller:    %s\n", ui.DimStyle.Render(r.Identity.ARN))
	} else {
		fmt.Fprintf(w, "  Account:   %s\n", ui.ErrStyle.Render("credentials could not be verified"))
	}

	fmt.Fprintf(w, "  Cluster:   %s\n", ui.HighlightStyle.Render(identifier))
	if r.Cluster == nil {
		fmt.Fprintf(w, "  Status:    %s\n", ui.DimStyle.Render("not found"))
	} else {
		fmt.Fprintf(w, "  Status:    %s\n", ui.StatusStyle(r.Cluster.Status).Render(r.Cluster.Status))
		if r.Cluster.Endpoint != "" {
			fmt.Fprintf(w, "  Endpoint:  %s:%d\n", r.Cluster.Endpoint, r.Cluster.Port)
		}
		if len(r.Cluster.RoleARNs) > 0 {
			fmt.Fprintf(w, "  Role:      %s\n", strings.Join(r.Cluster.RoleARNs, ", "))
		}
	}

	st := r.State
	if st == nil {
		return
	}
	fmt.Fprintln(w)
	phases := []struct {
		phase state.Phase
		label string
	}{
		{state.PhaseProvisioned, "provision"},
		{state.PhaseSchemaCreated, "create-tables"},
		{state.PhaseLoaded, "etl"},
	}
	for _, p := range phases {
		mark := "  "
		when := ""
		if st.IsComplete(p.phase) {
			mark = ui.SuccessStyle.Render("OK")
			when = ui.DimStyle.Render(st.Phases[p.phase].CompletedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintf(w, "  [%s] %-14s %s\n", mark, p.label, when)
	}

	if len(st.RowCounts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  Rows at last load:")
		tables := queries.TableNames()
		sort.Strings(tables)
		for _, t := range tables {
			if n, ok := st.RowCounts[t]; ok {
				fmt.Fprintf(w, "    %-16s %d\n", t, n)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
