package app

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/application"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/errs"
)

func NewUser(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user <cmd>",
		Short: "manage users",
	}
	cmd.AddCommand(newUserCreate(opts))
	cmd.AddCommand(newUserList(opts))
	return cmd
}

func newUserCreate(opts *Options) *cobra.Command {
	var (
		password string
		group    string
		first    string
		last     string
	)
	cmd := &cobra.Command{
		Use:   "create <name> <options>",
		Short: "create an enabled user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				ctx := cmd.Context()
				groups, err := m.Application().Groups(ctx)
				if err != nil {
					return err
				}
				groupID := ""
				for _, g := range groups {
					if g.Name == group {
						groupID = g.ID
					}
				}
				if groupID == "" {
					return errs.ApplicationObjectNotFound("group", group)
				}
				user := &application.User{
					Name:      args[0],
					FirstName: first,
					LastName:  last,
					Enabled:   true,
					Type:      application.UserTypeGUI,
				}
				id, err := m.Application().CreateUser(ctx, user, password, groupID)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&password, "password", "P", "", "initial password")
	flags.StringVarP(&group, "group", "g", application.AdminGroup, "name of the group")
	flags.StringVar(&first, "first-name", "", "first name")
	flags.StringVar(&last, "last-name", "", "last name")
	return cmd
}

func newUserList(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list the users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				list, err := m.Application().Users(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(list))
				for _, u := range list {
					rows = append(rows, []string{u.ID, u.Name, strconv.FormatBool(u.Enabled)})
				}
				return opts.print(cmd.OutOrStdout(), list, []string{"ID", "NAME", "ENABLED"}, rows)
			})
		},
	}
}
