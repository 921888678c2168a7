package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/models"
)

func NewObject(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "object <cmd>",
		Short: "manage inventory objects",
	}
	cmd.AddCommand(newObjectCreate(opts))
	cmd.AddCommand(newObjectGet(opts))
	cmd.AddCommand(newObjectChildren(opts))
	cmd.AddCommand(newObjectDelete(opts))
	return cmd
}

func newObjectCreate(opts *Options) *cobra.Command {
	var (
		parentClass string
		parentID    string
		template    string
		attributes  map[string]string
	)
	cmd := &cobra.Command{
		Use:   "create <class> <options>",
		Short: "create an object below a parent or the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				id, err := m.Objects().Create(cmd.Context(), args[0], parentClass, parentID, attributes, template)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&parentClass, "parent-class", "C", "", "class of the parent object")
	flags.StringVarP(&parentID, "parent", "p", "-1", "id of the parent object, -1 for the root")
	flags.StringVarP(&template, "template", "t", "", "template to spawn the object from")
	flags.StringToStringVarP(&attributes, "attribute", "a", nil, "attribute value")
	return cmd
}

func newObjectGet(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <class> <id>",
		Short: "show an object with its attributes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				obj, err := m.Objects().Get(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				var rows [][]string
				rows = append(rows, []string{"id", obj.ID}, []string{"class", obj.ClassName})
				for _, k := range sortedKeys(obj.Attributes) {
					rows = append(rows, []string{k, obj.Attributes[k]})
				}
				return opts.print(cmd.OutOrStdout(), obj, []string{"ATTRIBUTE", "VALUE"}, rows)
			})
		},
	}
}

func newObjectChildren(opts *Options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "children <class> <id>",
		Short: "list the children of an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				list, err := m.Objects().Children(cmd.Context(), args[0], args[1], limit)
				if err != nil {
					return err
				}
				return opts.printObjects(cmd, list)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 0, "maximum number of children")
	return cmd
}

func newObjectDelete(opts *Options) *cobra.Command {
	var release bool
	cmd := &cobra.Command{
		Use:   "delete <class> <id>",
		Short: "delete an object with its subtree",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				return m.Objects().Delete(cmd.Context(), args[0], args[1], release)
			})
		},
	}
	cmd.Flags().BoolVarP(&release, "release", "r", false, "release relationships blocking the deletion")
	return cmd
}

func (o *Options) printObjects(cmd *cobra.Command, list []models.ObjectLight) error {
	rows := make([][]string, 0, len(list))
	for _, obj := range list {
		rows = append(rows, []string{obj.ClassName, obj.ID, obj.Name})
	}
	return o.print(cmd.OutOrStdout(), list, []string{"CLASS", "ID", "NAME"}, rows)
}
