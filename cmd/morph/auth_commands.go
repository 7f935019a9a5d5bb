package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"morph/internal/ipc"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username-or-email>",
		Short: "Sign in to the conversion backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := resolvePassword(cmd, password)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Login(args[0], secret)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Logged in as %s\n", resp.Username)
				printNotices(stdout, resp.Notices)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out from the conversion backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Logout(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
				return nil
			})
		},
	}
}

func newRegisterCommand(ctx *commandContext) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username> <email>",
		Short: "Create a backend account",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := resolvePassword(cmd, password)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if err := client.Register(args[0], args[1], secret); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Account %s created; run `morph login %s` to sign in\n", args[0], args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	return cmd
}

func newWhoAmICommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WhoAmI()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if !resp.Authenticated {
					fmt.Fprintln(stdout, "Not logged in (guest session)")
					return nil
				}
				if resp.Email != "" {
					fmt.Fprintf(stdout, "Logged in as %s <%s>\n", resp.Username, resp.Email)
				} else {
					fmt.Fprintf(stdout, "Logged in as %s\n", resp.Username)
				}
				return nil
			})
		},
	}
}

func newConvertedCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "converted",
		Short: "List converted files saved to your account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ConvertedList()
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Files) == 0 {
					fmt.Fprintln(stdout, "No saved conversions")
					return nil
				}
				rows := make([][]string, 0, len(resp.Files))
				for _, file := range resp.Files {
					rows = append(rows, []string{file.Name, file.URL})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Name", "URL"},
					rows,
					[]columnAlignment{alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func resolvePassword(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	stdin := cmd.InOrStdin()
	if file, ok := stdin.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		fmt.Fprint(cmd.OutOrStdout(), "Password: ")
		secret, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(secret), nil
	}

	reader := bufio.NewReader(stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
