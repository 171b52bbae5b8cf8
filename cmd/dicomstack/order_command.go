package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"dicomstack/internal/engine"
)

func newOrderCommand(cmdCtx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "order <path>...",
		Short: "Sort the slices of one volume by instance number",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := loadFiles(args)
			if err != nil {
				return err
			}
			return cmdCtx.withEngine(cmd, func(ctx context.Context, eng *engine.Engine) error {
				ordered, err := eng.OrderByInstance(ctx, files)
				if err != nil {
					return err
				}

				if jsonOutput {
					names := make([]string, len(ordered))
					for i, file := range ordered {
						names[i] = file.Name
					}
					return writeJSON(cmd, names)
				}

				rows := make([][]string, len(ordered))
				for i, file := range ordered {
					rows[i] = []string{strconv.Itoa(i + 1), file.Name}
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Position", "File"},
					rows,
					[]columnAlignment{alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable JSON")
	return cmd
}
