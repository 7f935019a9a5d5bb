package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"morph/internal/api"
	"morph/internal/ipc"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>...",
		Short: "Register local files with the conversion session",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Add(args)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				for _, outcome := range resp.Outcomes {
					if outcome.Error != "" {
						fmt.Fprintf(stdout, "%s: %s\n", outcome.Name, outcome.Error)
						continue
					}
					fmt.Fprintf(stdout, "%s: added (id %s)\n", outcome.Name, outcome.EntryID)
				}
				fmt.Fprintf(stdout, "Accepted %d of %d file(s)\n", resp.Accepted, len(resp.Outcomes))
				printNotices(stdout, resp.Notices)
				return nil
			})
		},
	}
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a file from the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Remove(args[0]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Removed")
				return nil
			})
		},
	}
}

func newFormatCommand(ctx *commandContext) *cobra.Command {
	var clear bool
	cmd := &cobra.Command{
		Use:   "format <id> [target]",
		Short: "Select the target format for a session entry",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format := ""
			if len(args) == 2 {
				format = strings.TrimSpace(args[1])
			}
			if !clear && format == "" {
				return errors.New("provide a target format or pass --clear")
			}
			if clear {
				format = ""
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.SelectFormat(args[0], format); err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if format == "" {
					fmt.Fprintln(stdout, "Selection cleared")
				} else {
					fmt.Fprintf(stdout, "Target format set to %s\n", format)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clear, "clear", false, "Clear the entry's format selection")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SessionShow()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				renderSessionView(stdout, resp.View)
				printNotices(stdout, resp.Notices)
				return nil
			})
		},
	}
}

func newClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every file from the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearSession()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s)\n", resp.Removed)
				return nil
			})
		},
	}
}

func renderSessionView(stdout io.Writer, view api.SessionView) {
	fmt.Fprintf(stdout, "Mode: %s\n", view.AuthMode)
	if len(view.Entries) == 0 {
		fmt.Fprintln(stdout, "Session is empty")
	} else {
		textual, playable := api.GroupByKind(view.Entries)
		if len(textual) > 0 {
			fmt.Fprintln(stdout, "Documents and images:")
			fmt.Fprintln(stdout, renderTable(entryHeaders(), buildEntryRows(textual), entryAlignments()))
		}
		if len(playable) > 0 {
			fmt.Fprintln(stdout, "Audio and video:")
			fmt.Fprintln(stdout, renderTable(entryHeaders(), buildEntryRows(playable), entryAlignments()))
		}
	}
	if len(view.Artifacts) > 0 {
		fmt.Fprintln(stdout, "Converted:")
		fmt.Fprintln(stdout, renderTable(
			[]string{"Name", "Format", "URL"},
			buildArtifactRows(view.Artifacts),
			[]columnAlignment{alignLeft, alignLeft, alignLeft},
		))
	}
}

func entryHeaders() []string {
	return []string{"ID", "Name", "Size", "Type", "Target", "Status"}
}

func entryAlignments() []columnAlignment {
	return []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft, alignLeft}
}

func buildEntryRows(entries []api.Entry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		status := entry.Status
		if entry.ErrorMessage != "" {
			status = fmt.Sprintf("%s (%s)", entry.Status, entry.ErrorMessage)
		}
		target := entry.SelectedFormat
		if target == "" {
			target = "-"
		}
		rows = append(rows, []string{
			entry.ID,
			entry.Name,
			entry.SizeHuman,
			entry.MimeType,
			target,
			status,
		})
	}
	return rows
}

func buildArtifactRows(artifacts []api.Artifact) [][]string {
	rows := make([][]string, 0, len(artifacts))
	for _, artifact := range artifacts {
		rows = append(rows, []string{artifact.Name, artifact.Format, artifact.DownloadURL})
	}
	return rows
}
