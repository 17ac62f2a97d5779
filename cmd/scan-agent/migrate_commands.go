package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kubev2v/inventory-scan-agent/internal/store"
	"github.com/kubev2v/inventory-scan-agent/internal/store/migrations"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.EnsureReady(cmd.Context()); err != nil {
					return err
				}

				report := st.SchemaReport()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Schema version: %d (was %d)\n", report.Version, report.PreviousVersion)
				if !report.Changed() {
					fmt.Fprintln(out, "Schema is up to date")
					return nil
				}
				if len(report.CreatedTables) > 0 {
					fmt.Fprintf(out, "Created tables: %s\n", strings.Join(report.CreatedTables, ", "))
				}
				if len(report.AddedColumns) > 0 {
					fmt.Fprintf(out, "Added columns: %s\n", strings.Join(report.AddedColumns, ", "))
				}
				return nil
			})
		},
	}
}

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report schema drift and scan counts without changing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				out := cmd.OutOrStdout()

				version, err := migrations.CurrentVersion(cmd.Context(), st.DB())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Database: %s\n", st.DB().Path())
				fmt.Fprintf(out, "Schema version: %d (current %d)\n", version, migrations.SchemaVersion)

				missing, err := migrations.MissingColumns(cmd.Context(), st.DB())
				if err != nil {
					return err
				}
				if len(missing) == 0 {
					fmt.Fprintln(out, syncedLabel("Schema complete"))
				} else {
					rows := make([][]string, 0, len(missing))
					for _, table := range migrations.SortedTables(missing) {
						rows = append(rows, []string{table, strings.Join(missing[table], ", ")})
					}
					fmt.Fprintln(out, errorLabel("Missing columns (run `scan-agent migrate`):"))
					fmt.Fprintln(out, renderTable([]string{"Table", "Columns"}, rows, nil))
					return nil
				}

				stats, err := st.Scans().Stats(cmd.Context())
				if err != nil {
					return err
				}
				if len(stats) == 0 {
					fmt.Fprintln(out, "No scans recorded")
					return nil
				}
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					rows = append(rows, []string{
						s.CampaignID,
						strconv.Itoa(s.Total),
						strconv.Itoa(s.Synced),
						strconv.Itoa(s.Pending),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Campaign", "Total", "Synced", "Pending"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}
