package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"cardoff/internal/identify"
	"cardoff/internal/scan"
)

func newIdentifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identify <source>",
		Short: "Identify the camera behind a mounted card without importing",
		Long: `Identify evaluates every configured camera profile against the card's folder
structure and sampled file metadata, then reports which profile matched and
with what confidence. Useful for troubleshooting detection rules before an
import.`,
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

			source := strings.TrimSpace(args[0])
			scanner := scan.New(cfg.Transfer.DigestWorkers)
			identifier := identify.New(cams, scanner, nil, cfg.Identify.SampleFiles, cfg.Identify.ConfidenceThreshold, logger)

			ident, err := identifier.Identify(cmd.Context(), source)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			rows := [][]string{
				{"Camera", ident.Profile.Name},
				{"Confidence", strconv.Itoa(ident.Confidence)},
				{"Threshold", strconv.Itoa(cfg.Identify.ConfidenceThreshold)},
			}
			fmt.Fprintln(out, renderTable([]string{"Field", "Value"}, rows, nil))

			if len(ident.Samples) > 0 {
				sampleRows := make([][]string, 0, len(ident.Samples))
				for _, sample := range ident.Samples {
					sampleRows = append(sampleRows, []string{sample.Rel, sample.Metadata.String()})
				}
				fmt.Fprintln(out, renderTable([]string{"Sampled file", "Metadata"}, sampleRows, nil))
			}

			entries, err := scanner.Enumerate(cmd.Context(), source, ident.Profile.SourceTrees())
			if err != nil {
				return fmt.Errorf("enumerate card: %w", err)
			}
			summary := scan.Summarize(entries)
			fmt.Fprintf(out, "%d files would be imported (%d photos, %d videos)\n",
				summary.Files, summary.Photos, summary.Videos)
			return nil
		},
	}
	return cmd
}
