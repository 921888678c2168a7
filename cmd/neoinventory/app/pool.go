package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func NewPool(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pool <cmd>",
		Short: "manage pools",
	}
	cmd.AddCommand(newPoolCreate(opts))
	cmd.AddCommand(newPoolList(opts))
	cmd.AddCommand(newPoolItems(opts))
	cmd.AddCommand(newPoolAdd(opts))
	return cmd
}

func newPoolCreate(opts *Options) *cobra.Command {
	var description string
	cmd := &cobra.Command{
		Use:   "create <name> <class>",
		Short: "create a root pool for instances of a class",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				id, err := m.Objects().CreateRootPool(cmd.Context(), args[0], description, args[1], models.PoolTypeGeneralPurpose)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&description, "description", "d", "", "pool description")
	return cmd
}

func newPoolList(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list [<class>]",
		Short: "list the root pools",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			class := ""
			if len(args) > 0 {
				class = args[0]
			}
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				list, err := m.Objects().RootPools(cmd.Context(), class, models.PoolTypeGeneralPurpose, true)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(list))
				for _, p := range list {
					rows = append(rows, []string{p.ID, p.Name, p.ClassName})
				}
				return opts.print(cmd.OutOrStdout(), list, []string{"ID", "NAME", "CLASS"}, rows)
			})
		},
	}
}

func newPoolItems(opts *Options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "items <pool>",
		Short: "list the items of a pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				list, err := m.Objects().PoolItems(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				return opts.printObjects(cmd, list)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of items")
	return cmd
}

func newPoolAdd(opts *Options) *cobra.Command {
	var attributes map[string]string
	cmd := &cobra.Command{
		Use:   "add <pool> <class>",
		Short: "create an item in a pool",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				id, err := m.Objects().CreatePoolItem(cmd.Context(), args[0], args[1], attributes, "")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	cmd.Flags().StringToStringVarP(&attributes, "attribute", "a", nil, "attribute value")
	return cmd
}
