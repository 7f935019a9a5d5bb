package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"morph/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded conversions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Records) == 0 {
					fmt.Fprintln(stdout, "History is empty")
					return nil
				}
				rows := make([][]string, 0, len(resp.Records))
				for _, record := range resp.Records {
					rows = append(rows, []string{
						strconv.FormatInt(record.ID, 10),
						record.SourceName,
						record.ArtifactName,
						record.Format,
						record.ConvertedAt,
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Source", "Output", "Format", "Converted"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum records to show (0 for all)")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all history records",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.HistoryClear()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d record(s)\n", resp.Removed)
				return nil
			})
		},
	})

	return historyCmd
}
