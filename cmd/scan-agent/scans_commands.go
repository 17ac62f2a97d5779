package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubev2v/inventory-scan-agent/internal/export"
	"github.com/kubev2v/inventory-scan-agent/internal/models"
	"github.com/kubev2v/inventory-scan-agent/internal/services"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
)

func newScansCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scans",
		Short: "Record, list and sync scans",
	}
	cmd.AddCommand(newScansListCommand(ctx))
	cmd.AddCommand(newScansRecordCommand(ctx))
	cmd.AddCommand(newScansEditCommand(ctx))
	cmd.AddCommand(newScansMarkSyncedCommand(ctx))
	cmd.AddCommand(newScansExportCommand(ctx))
	cmd.AddCommand(newScansStatsCommand(ctx))
	return cmd
}

type scanFilterFlags struct {
	campaign string
	group    string
	location string
	synced   bool
	pending  bool
	limit    uint64
}

func (f *scanFilterFlags) register(cmd *cobra.Command, defaultLimit uint64) {
	cmd.Flags().StringVar(&f.campaign, "campaign", "", "Campaign id")
	cmd.Flags().StringVar(&f.group, "group", "", "Group id")
	cmd.Flags().StringVar(&f.location, "location", "", "Location id")
	cmd.Flags().BoolVar(&f.synced, "synced", false, "Only scans acknowledged by the remote system")
	cmd.Flags().BoolVar(&f.pending, "pending", false, "Only scans waiting for submission")
	cmd.Flags().Uint64Var(&f.limit, "limit", defaultLimit, "Maximum number of scans (0 for all)")
	cmd.MarkFlagsMutuallyExclusive("synced", "pending")
}

func (f *scanFilterFlags) filter() models.ScanFilter {
	filter := models.ScanFilter{
		CampaignID: f.campaign,
		GroupID:    f.group,
		LocationID: f.location,
		Limit:      f.limit,
	}
	switch {
	case f.synced:
		synced := true
		filter.IsSynced = &synced
	case f.pending:
		synced := false
		filter.IsSynced = &synced
	}
	return filter
}

func newScansListCommand(ctx *commandContext) *cobra.Command {
	var flags scanFilterFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List scans, most recently captured first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withScanService(cmd.Context(), func(_ *store.Store, srv *services.ScanService) error {
				result, err := srv.List(cmd.Context(), flags.filter())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(result.Scans) == 0 {
					fmt.Fprintln(out, "No scans found")
					return nil
				}

				rows := make([][]string, 0, len(result.Scans))
				for _, s := range result.Scans {
					rows = append(rows, []string{
						s.ID,
						s.CapturedAt.Local().Format(time.DateTime),
						s.CodeArticle,
						s.Description(),
						s.LocationName,
						string(s.Status),
						syncState(s.IsSynced),
						deref(s.RemoteID),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Captured", "Code", "Description", "Location", "Status", "Sync", "Remote ID"},
					rows,
					nil,
				))
				fmt.Fprintf(out, "%d of %d scans\n", len(result.Scans), result.Total)
				return nil
			})
		},
	}
	flags.register(cmd, 50)
	return cmd
}

func newScansRecordCommand(ctx *commandContext) *cobra.Command {
	var (
		in     models.NewScan
		source string
		status string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a scan",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(in.ImageURIs) > models.MaxScanImages {
				return fmt.Errorf("at most %d images can be attached", models.MaxScanImages)
			}
			in.CaptureSource = models.CaptureSource(source)
			in.Status = models.ScanStatus(status)

			return ctx.withScanService(cmd.Context(), func(_ *store.Store, srv *services.ScanService) error {
				rec, err := srv.Record(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded scan %s (%s)\n", rec.ID, rec.Description())
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&in.CampaignID, "campaign", "", "Campaign id")
	cmd.Flags().StringVar(&in.GroupID, "group", "", "Group id")
	cmd.Flags().StringVar(&in.LocationID, "location", "", "Location id")
	cmd.Flags().StringVar(&in.LocationName, "location-name", "", "Location name")
	cmd.Flags().StringVar(&in.CodeArticle, "code", "", "Scanned code")
	cmd.Flags().StringVar(&in.Comment, "comment", "", "Free text comment")
	cmd.Flags().StringVar(&in.CustomDescription, "description", "", "Custom description")
	cmd.Flags().StringVar(&in.Observation, "observation", "", "Observation")
	cmd.Flags().StringVar(&in.SerialNumber, "serial", "", "Serial number")
	cmd.Flags().StringVar(&in.ConditionState, "condition", "", "Condition state")
	cmd.Flags().StringVar(&in.StatusLabel, "status-label", "", "Status label shown to the operator")
	cmd.Flags().StringSliceVar(&in.ImageURIs, "image", nil, "Image reference (repeatable, up to 3)")
	cmd.Flags().StringVar(&source, "source", string(models.CaptureSourceManual), "Capture source: camera or manual")
	cmd.Flags().StringVar(&status, "status", string(models.ScanStatusScanned), "Scan status")
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newScansEditCommand(ctx *commandContext) *cobra.Command {
	var observation, serial, condition string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit the operator details of a scan; the scan becomes pending again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := models.ScanDetailsUpdate{ID: args[0]}
			if cmd.Flags().Changed("observation") {
				update.Observation = &observation
			}
			if cmd.Flags().Changed("serial") {
				update.SerialNumber = &serial
			}
			if cmd.Flags().Changed("condition") {
				update.ConditionState = &condition
			}

			return ctx.withScanService(cmd.Context(), func(_ *store.Store, srv *services.ScanService) error {
				rec, err := srv.EditDetails(cmd.Context(), update)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated scan %s (%s)\n", rec.ID, syncState(rec.IsSynced))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&observation, "observation", "", "Observation")
	cmd.Flags().StringVar(&serial, "serial", "", "Serial number")
	cmd.Flags().StringVar(&condition, "condition", "", "Condition state")
	return cmd
}

func newScansMarkSyncedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-synced LOCAL=REMOTE...",
		Short: "Record remote acknowledgements for scans",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := parseAcks(args)
			if err != nil {
				return err
			}

			return ctx.withScanService(cmd.Context(), func(_ *store.Store, srv *services.ScanService) error {
				outcome, err := srv.ApplySyncResults(cmd.Context(), results)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d of %d scans\n", syncedLabel("Synced"), outcome.Updated, len(results))
				return nil
			})
		},
	}
}

func parseAcks(args []string) ([]models.SubmissionResult, error) {
	results := make([]models.SubmissionResult, 0, len(args))
	for _, arg := range args {
		local, remote, ok := strings.Cut(arg, "=")
		local = strings.TrimSpace(local)
		remote = strings.TrimSpace(remote)
		if !ok || local == "" || remote == "" {
			return nil, fmt.Errorf("invalid acknowledgement %q: expected LOCAL=REMOTE", arg)
		}
		results = append(results, models.SubmissionResult{LocalID: local, RemoteID: remote, Success: true})
	}
	return results, nil
}

func newScansExportCommand(ctx *commandContext) *cobra.Command {
	var (
		flags scanFilterFlags
		out   string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export scans to an XLSX workbook",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out is required")
			}

			return ctx.withScanService(cmd.Context(), func(_ *store.Store, srv *services.ScanService) error {
				result, err := srv.List(cmd.Context(), flags.filter())
				if err != nil {
					return err
				}

				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				if err := export.WriteXLSX(f, result.Scans); err != nil {
					_ = f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close %s: %w", out, err)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d scans to %s\n", len(result.Scans), out)
				return nil
			})
		},
	}
	flags.register(cmd, 0)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file")
	return cmd
}

func newScansStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count synced and pending scans per campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withScanService(cmd.Context(), func(_ *store.Store, srv *services.ScanService) error {
				stats, err := srv.Stats(cmd.Context())
				if err != nil {
					return err
				}

				rows := make([][]string, 0, len(stats))
				for _, st := range stats {
					rows = append(rows, []string{
						st.CampaignID,
						strconv.Itoa(st.Total),
						syncedLabel(strconv.Itoa(st.Synced)),
						pendingLabel(strconv.Itoa(st.Pending)),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Campaign", "Total", "Synced", "Pending"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
