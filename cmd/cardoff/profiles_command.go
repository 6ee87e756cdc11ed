package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newProfilesCommand(ctx *commandContext) *cobra.Command {
	profilesCmd := &cobra.Command{
		Use:   "profiles",
		Short: "Camera profile utilities",
	}
	profilesCmd.AddCommand(newProfilesListCommand(ctx))
	profilesCmd.AddCommand(newProfilesValidateCommand(ctx))
	return profilesCmd
}

func newProfilesListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured camera profiles in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			cams, err := ctx.ensureProfiles()
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(cams))
			for i := range cams {
				profile := &cams[i]
				trees := make([]string, 0, 2)
				for _, tree := range profile.SourceTrees() {
					trees = append(trees, tree.Path)
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					profile.Name,
					strings.Join(trees, ", "),
					strconv.Itoa(len(profile.DetectionRules.FilePatterns)),
					profile.DestinationStructure,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Priority", "Camera", "Source trees", "Metadata rules", "Destination"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func newProfilesValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the camera profiles file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cams, err := ctx.ensureProfiles()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Profiles path: %s\n", cfg.Paths.ProfilesPath)
			fmt.Fprintf(out, "%d camera profiles loaded, all valid\n", len(cams))
			return nil
		},
	}
}
