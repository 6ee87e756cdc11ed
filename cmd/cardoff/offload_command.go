package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cardoff/internal/config"
	"cardoff/internal/notifications"
	"cardoff/internal/pipeline"
)

func newOffloadCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	var keepOriginals bool

	cmd := &cobra.Command{
		Use:   "offload <source>",
		Short: "Import a mounted card end to end",
		Long: `Offload runs the full import pipeline against a mounted card: identify the
camera, check for a destination collision, pick the network store or local
staging, copy with verification, and apply the cleanup policy.

Examples:
  cardoff offload /media/user/SDCARD
  cardoff offload --yes /media/user/SDCARD        # skip confirmation
  cardoff offload --keep /media/user/SDCARD       # never delete originals`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cams, err := ctx.ensureProfiles()
			if err != nil {
				return err
			}
			logger, err := ctx.buildLogger(cfg)
			if err != nil {
				return fmt.Errorf("setup logging: %w", err)
			}
			store, err := ctx.openJournal(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if keepOriginals {
				cfg.Cleanup.DeleteOriginals = false
			}

			var gate pipeline.Gate
			if !yes && stdinIsTerminal() {
				gate = newConsoleGate(cmd.InOrStdin(), cmd.OutOrStdout())
			}

			orch := pipeline.New(cfg, cams, store, notifications.NewService(cfg), gate, logger)
			outcome, err := orch.Run(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			printOutcome(cmd, cfg, outcome)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Proceed without interactive confirmation")
	cmd.Flags().BoolVar(&keepOriginals, "keep", false, "Keep source files regardless of the cleanup policy")
	return cmd
}

func printOutcome(cmd *cobra.Command, cfg *config.Config, outcome *pipeline.Outcome) {
	out := cmd.OutOrStdout()

	deleted := 0
	cleanupNote := yesNo(cfg.Cleanup.DeleteOriginals)
	if outcome.Cleanup != nil {
		deleted = outcome.Cleanup.Deleted
		if outcome.Cleanup.Skipped {
			cleanupNote = "skipped by policy"
		}
	}

	rows := [][]string{
		{"Run", outcome.RunID},
		{"Camera", outcome.Profile},
		{"Route", outcome.Route},
		{"Destination", outcome.Destination},
		{"Files", fmt.Sprintf("%d", outcome.Summary.Files)},
		{"Size", humanize.IBytes(uint64(outcome.Summary.TotalBytes))},
		{"Duration", outcome.Duration.Round(time.Second).String()},
		{"Originals deleted", fmt.Sprintf("%d (%s)", deleted, cleanupNote)},
	}
	fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

	if outcome.CleanupWarning != nil {
		fmt.Fprintf(out, "warning: %v\n", outcome.CleanupWarning)
	}
	if outcome.Route == "staging" {
		fmt.Fprintln(out, "Store was unreachable; files were staged locally and must be swept later.")
	}
}
