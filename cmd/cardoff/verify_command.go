package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cardoff/internal/identify"
	"cardoff/internal/scan"
	"cardoff/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <source> <destination>",
		Short: "Re-verify a card against an already-imported day-folder",
		Long: `Verify re-digests every included file on the card and under the destination
day-folder and reports any missing, truncated, or corrupted copies, plus any
file present only at the destination. It never modifies either side.

Example:
  cardoff verify /media/user/SDCARD "/mnt/nas/Photos/Sony A7C/20260831"`,
		Args: cobra.ExactArgs(2),
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

			source := strings.TrimSpace(args[0])
			destination := strings.TrimSpace(args[1])

			scanner := scan.New(cfg.Transfer.DigestWorkers)
			identifier := identify.New(cams, scanner, nil, cfg.Identify.SampleFiles, cfg.Identify.ConfidenceThreshold, logger)
			ident, err := identifier.Identify(cmd.Context(), source)
			if err != nil {
				return err
			}

			records, err := scanner.Digest(cmd.Context(), source, ident.Profile.SourceTrees())
			if err != nil {
				return fmt.Errorf("digest source: %w", err)
			}

			verifier := verify.New(scanner, logger)
			report, err := verifier.Verify(cmd.Context(), destination, ident.Profile.SourceTrees(), records)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Passed() {
				fmt.Fprintf(out, "OK: all %d files verified against %s\n", report.Matched, destination)
				return nil
			}

			rows := make([][]string, 0, report.Failed)
			for _, failure := range report.Failures() {
				rows = append(rows, []string{
					failure.Rel,
					string(failure.Status),
					fmt.Sprintf("%d", failure.SourceSize),
					fmt.Sprintf("%d", failure.DestSize),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"File", "Status", "Source bytes", "Destination bytes"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
			))
			return fmt.Errorf("%d of %d files failed verification", report.Failed, len(report.Files))
		},
	}
	return cmd
}
