package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// runContext is cancelled on SIGINT or SIGTERM. A cancelled run stops before
// its next remote call.
func runContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Fetch and normalize every Administrative Templates policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := runContext(cmd)
			defer stop()
			s, _, err := a.session(ctx)
			if err != nil {
				return err
			}
			set, err := s.Export(ctx, printer(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d policies (%d warnings)\n", len(set.Policies), len(set.Warnings))
			return nil
		},
	}
}

func (a *app) mapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "map",
		Short: "Suggest Settings Catalog targets and build the mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := runContext(cmd)
			defer stop()
			s, _, err := a.session(ctx)
			if err != nil {
				return err
			}
			sum, err := s.Map(ctx, printer(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Suggestions: %d (high %d, medium %d, none %d); mapped %d, curated %d\n",
				sum.Suggestions, sum.High, sum.Medium, sum.None, sum.Mapped, sum.Curated)
			return nil
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	var apply bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create Settings Catalog policies from the mapping (preview unless --apply)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := runContext(cmd)
			defer stop()
			s, _, err := a.session(ctx)
			if err != nil {
				return err
			}
			m, err := s.Migrate(ctx, apply, printer(cmd))
			if m != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Manifest run id: %s\n", m.RunID)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&apply, "apply", false, "write to the tenant (default is a what-if preview)")
	return cmd
}

func (a *app) rollbackCmd() *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Delete the policies a migration run created",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := runContext(cmd)
			defer stop()
			s, _, err := a.session(ctx)
			if err != nil {
				return err
			}
			report, err := s.Rollback(ctx, runID, printer(cmd))
			if report != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d, failed %d\n", report.Deleted, report.Failed)
			}
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "manifest run id (default: latest run)")
	return cmd
}

func (a *app) duplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "Report settings configured by more than one policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := runContext(cmd)
			defer stop()
			report, err := a.offlineSession().Duplicates(ctx, printer(cmd))
			if err != nil {
				return err
			}
			sum := report.Summary
			fmt.Fprintf(cmd.OutOrStdout(), "Duplicate groups %d (%d conflicting), merge candidates %d (%d auto-mergeable)\n",
				sum.DuplicateGroups, sum.ConflictGroups, sum.MergeCandidates, sum.AutoMergeable)
			return nil
		},
	}
}
