package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/output"
	"github.com/sambrocindrela-ctrl/gestor-assignatures/internal/settings"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the GitHub location of the catalog",
	}
	cmd.AddCommand(newSettingsShowCmd(a), newSettingsSetCmd(a))
	return cmd
}

func newSettingsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the current settings with the token masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := a.settings.Get()
			s.Token = maskToken(s.Token)
			table := output.Data{
				Headers: []string{"Owner", "Repo", "Path", "Branch", "Token"},
				Rows:    [][]string{{s.Owner, s.Repo, s.Path, s.Branch, s.Token}},
			}
			return a.render(cmd, s, table)
		},
	}
}

func newSettingsSetCmd(a *app) *cobra.Command {
	var next settings.Settings
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update and save the settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			err := a.settings.Update(func(s *settings.Settings) {
				if flags.Changed("owner") {
					s.Owner = next.Owner
				}
				if flags.Changed("repo") {
					s.Repo = next.Repo
				}
				if flags.Changed("path") {
					s.Path = next.Path
				}
				if flags.Changed("branch") {
					s.Branch = next.Branch
				}
				if flags.Changed("token") {
					s.Token = next.Token
				}
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "settings saved")
			return nil
		},
	}
	cmd.Flags().StringVar(&next.Owner, "owner", "", "repository owner")
	cmd.Flags().StringVar(&next.Repo, "repo", "", "repository name")
	cmd.Flags().StringVar(&next.Path, "path", "", "catalog file path in the repository")
	cmd.Flags().StringVar(&next.Branch, "branch", "", "branch")
	cmd.Flags().StringVar(&next.Token, "token", "", "GitHub token")
	return cmd
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}
