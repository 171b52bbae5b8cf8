package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"dicomstack/internal/engine"
)

func newCategorizeCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "categorize <path>...",
		Short: "Partition slice files into volume groups",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := loadFiles(args)
			if err != nil {
				return err
			}
			return cmdCtx.withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				groups, err := eng.Categorize(ctx, files)
				if err != nil {
					return err
				}

				volumes := make([]string, 0, len(groups))
				for volume := range groups {
					volumes = append(volumes, volume)
				}
				sort.Strings(volumes)

				if jsonOutput {
					out := make(map[string][]string, len(groups))
					for volume, members := range groups {
						names := make([]string, len(members))
						for i, member := range members {
							names[i] = member.Name
						}
						out[volume] = names
					}
					return writeJSON(cmd, out)
				}

				rows := make([][]string, 0, len(volumes))
				for _, volume := range volumes {
					for i, member := range groups[volume] {
						label := ""
						if i == 0 {
							label = volume
						}
						rows = append(rows, []string{label, member.Name})
					}
				}
				w := cmd.OutOrStdout()
				fmt.Fprintln(w, heading(w, strconv.Itoa(len(files))+" files in "+strconv.Itoa(len(volumes))+" volumes"))
				fmt.Fprintln(w, renderTable([]string{"Volume", "File"}, rows, nil))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
