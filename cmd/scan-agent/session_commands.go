package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kubev2v/inventory-scan-agent/internal/models"
	"github.com/kubev2v/inventory-scan-agent/internal/store"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Show, set or clear the saved campaign, group and location",
	}
	cmd.AddCommand(newSessionShowCommand(ctx))
	cmd.AddCommand(newSessionSetCommand(ctx))
	cmd.AddCommand(newSessionClearCommand(ctx))
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				snapshot, err := st.Session().Load(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if snapshot == nil {
					fmt.Fprintln(out, "No saved session")
					return nil
				}

				fmt.Fprintln(out, renderTable(
					[]string{"Level", "ID", "Name"},
					[][]string{
						refRow("campaign", snapshot.Campaign),
						refRow("group", snapshot.Group),
						refRow("location", snapshot.Location),
					},
					nil,
				))
				return nil
			})
		},
	}
}

func refRow(level string, ref *models.Ref) []string {
	if ref == nil {
		return []string{level, "-", "-"}
	}
	return []string{level, ref.ID, ref.Name}
}

type refFlags struct {
	id   string
	name string
}

func (r *refFlags) register(cmd *cobra.Command, level string) {
	cmd.Flags().StringVar(&r.id, level+"-id", "", level+" id")
	cmd.Flags().StringVar(&r.name, level+"-name", "", level+" name")
}

func (r *refFlags) ref() *models.Ref {
	if r.id == "" {
		return nil
	}
	return &models.Ref{ID: r.id, Name: r.name}
}

func newSessionSetCommand(ctx *commandContext) *cobra.Command {
	var campaign, group, location refFlags

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot := models.SessionSnapshot{
				Campaign: campaign.ref(),
				Group:    group.ref(),
				Location: location.ref(),
			}

			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.Session().Save(cmd.Context(), snapshot); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session saved")
				return nil
			})
		},
	}
	campaign.register(cmd, "campaign")
	group.register(cmd, "group")
	location.register(cmd, "location")
	return cmd
}

func newSessionClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd.Context(), func(st *store.Store) error {
				if err := st.Session().Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
				return nil
			})
		},
	}
}
