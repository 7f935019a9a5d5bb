package main

import (
	"fmt"
	"path"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"morph/internal/ipc"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "convert <id>",
		Short: "Convert a single session entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ConvertOne(args[0], format)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Converted to %s (%s)\n", resp.Artifact.Name, resp.Artifact.DownloadURL)
				printNotices(stdout, resp.Notices)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "to", "t", "", "Target format (defaults to the entry's selection)")
	return cmd
}

func newConvertAllCommand(ctx *commandContext) *cobra.Command {
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "convert-all",
		Short: "Convert every entry with a selected format",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()

				type result struct {
					resp *ipc.ConvertAllResponse
					err  error
				}
				done := make(chan result, 1)
				go func() {
					resp, err := client.ConvertAll()
					done <- result{resp: resp, err: err}
				}()

				var bar *progressbar.ProgressBar
				if !noProgress && shouldColorize(stdout) {
					bar = progressbar.NewOptions(100,
						progressbar.OptionSetWriter(stdout),
						progressbar.OptionSetDescription("converting"),
						progressbar.OptionClearOnFinish(),
					)
				}

				var res result
				ticker := time.NewTicker(150 * time.Millisecond)
				defer ticker.Stop()
			poll:
				for {
					select {
					case res = <-done:
						break poll
					case <-ticker.C:
						if bar == nil {
							continue
						}
						// Progress polling uses a second connection so the
						// blocking batch call is not disturbed.
						if status, err := ctx.pollStatus(); err == nil {
							_ = bar.Set(status.ProgressPercent)
						}
					}
				}
				if bar != nil {
					_ = bar.Finish()
				}
				if res.err != nil {
					return res.err
				}

				resp := res.resp
				fmt.Fprintf(stdout, "Converted %d of %d file(s)\n", resp.Converted, resp.Total)
				for _, artifact := range resp.Artifacts {
					fmt.Fprintf(stdout, "  %s (%s)\n", artifact.Name, artifact.DownloadURL)
				}
				if resp.Error != "" {
					fmt.Fprintf(stdout, "Stopped early: %s\n", resp.Error)
				}
				printNotices(stdout, resp.Notices)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	return cmd
}

func (c *commandContext) pollStatus() (*ipc.StatusResponse, error) {
	client, err := c.dialClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.Status()
}

func newArtifactsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "artifacts",
		Short: "List conversion outputs from the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Artifacts()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Artifacts) == 0 {
					fmt.Fprintln(stdout, "No conversions yet")
					return nil
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Name", "Format", "URL"},
					buildArtifactRows(resp.Artifacts),
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "download <url>",
		Short: "Download a converted file into the download directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := name
			if dest == "" {
				dest = path.Base(args[0])
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Download(dest, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved to %s\n", resp.Path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Destination file name (defaults to the URL's base name)")
	return cmd
}
