package app

import (
	"sort"
	"strconv"

	"github.com/mandelsoft/goutils/maputils"
	"github.com/spf13/cobra"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/metadata"
)

func NewClasses(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes <cmd>",
		Short: "inspect the class catalog",
	}
	cmd.AddCommand(newClassesList(opts))
	return cmd
}

func newClassesList(opts *Options) *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "list [<options>]",
		Short: "list the classes of the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				catalog := m.Catalog()
				names := catalog.Classes()
				if parent != "" {
					if _, err := catalog.GetClass(parent); err != nil {
						return err
					}
					names = catalog.Subclasses(parent, true)
				}
				sort.Strings(names)
				var list []*metadata.Class
				rows := make([][]string, 0, len(names))
				for _, n := range names {
					cls, err := catalog.GetClass(n)
					if err != nil {
						return err
					}
					list = append(list, cls)
					rows = append(rows, []string{cls.Name, cls.Parent, strconv.FormatBool(cls.Abstract)})
				}
				return opts.print(cmd.OutOrStdout(), list, []string{"NAME", "PARENT", "ABSTRACT"}, rows)
			})
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "restrict to the subclasses of a class")
	return cmd
}

func sortedKeys(m map[string]string) []string {
	return maputils.OrderedKeys(m)
}
