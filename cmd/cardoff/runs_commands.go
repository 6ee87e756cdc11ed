package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cardoff/internal/journal"
)

func newRunsCommand(ctx *commandContext) *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the import journal",
	}
	runsCmd.AddCommand(newRunsListCommand(ctx))
	runsCmd.AddCommand(newRunsShowCommand(ctx))
	return runsCmd
}

func newRunsListCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openJournal(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet.")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				status := string(run.Status)
				if run.FailureKind != "" {
					status = fmt.Sprintf("%s (%s)", run.Status, run.FailureKind)
				}
				rows = append(rows, []string{
					shortID(run.ID),
					run.CreatedAt.Local().Format(time.DateTime),
					run.Profile,
					run.Route,
					status,
					strconv.Itoa(run.Files),
					humanize.IBytes(uint64(run.Bytes)),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Camera", "Route", "Status", "Files", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	return cmd
}

func newRunsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run with its cleanup audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openJournal(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := resolveRun(cmd, store, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			completed := "-"
			if run.CompletedAt != nil {
				completed = run.CompletedAt.Local().Format(time.DateTime)
			}
			rows := [][]string{
				{"Run", run.ID},
				{"Camera", run.Profile},
				{"Source", run.Source},
				{"Destination", run.Destination},
				{"Route", run.Route},
				{"Status", string(run.Status)},
				{"Files", strconv.Itoa(run.Files)},
				{"Size", humanize.IBytes(uint64(run.Bytes))},
				{"Started", run.CreatedAt.Local().Format(time.DateTime)},
				{"Completed", completed},
			}
			if run.FailureKind != "" {
				rows = append(rows,
					[]string{"Failure", run.FailureKind},
					[]string{"Detail", run.FailureMessage},
				)
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			audit, err := store.CleanupAudit(cmd.Context(), run.ID)
			if err != nil {
				return err
			}
			if len(audit) == 0 {
				fmt.Fprintln(out, "No source files were deleted for this run.")
				return nil
			}
			auditRows := make([][]string, 0, len(audit))
			for _, record := range audit {
				auditRows = append(auditRows, []string{
					record.Rel,
					humanize.IBytes(uint64(record.Size)),
					record.Digest,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Deleted file", "Size", "SHA-256"},
				auditRows,
				[]columnAlignment{alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

// resolveRun accepts a full run ID or an unambiguous prefix.
func resolveRun(cmd *cobra.Command, store *journal.Store, id string) (*journal.Run, error) {
	run, err := store.GetRun(cmd.Context(), id)
	if err == nil {
		return run, nil
	}

	runs, listErr := store.ListRuns(cmd.Context(), 0)
	if listErr != nil {
		return nil, err
	}
	var match *journal.Run
	for _, candidate := range runs {
		if len(id) >= 4 && candidate.ID[:min(len(id), len(candidate.ID))] == id {
			if match != nil {
				return nil, fmt.Errorf("run prefix %q is ambiguous", id)
			}
			match = candidate
		}
	}
	if match == nil {
		return nil, err
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
