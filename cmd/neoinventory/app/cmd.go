// Package app implements the neoinventory command line client. Every
// command opens the configured instance, executes and closes it again, so
// a memory store keeps its state in the configured snapshot.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mandelsoft/goutils/general"
	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"sigs.k8s.io/yaml"

	"github.com/saulfrancisco-ruizacevedo/go-neoinventory"
	"github.com/saulfrancisco-ruizacevedo/go-neoinventory/config"
)

type Options struct {
	config   string
	logLevel string
	output   string
	fs       vfs.FileSystem
}

func New(fss ...vfs.FileSystem) *cobra.Command {
	opts := &Options{
		fs:     general.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...),
		config: os.Getenv("NEOINVENTORY_CONFIG"),
	}

	maincmd := &cobra.Command{
		Use:   "neoinventory <options> <cmd> <args>",
		Short: "manage a graph based inventory",
		Long: `
This command manipulates the inventory objects, pools and users of an
inventory instance described by a configuration file. Without
configuration a volatile memory store is used.
`,
		SilenceUsage:     true,
		TraverseChildren: true,
	}

	opts.AddFlags(maincmd.PersistentFlags())

	maincmd.AddCommand(NewInit(opts))
	maincmd.AddCommand(NewClasses(opts))
	maincmd.AddCommand(NewObject(opts))
	maincmd.AddCommand(NewPool(opts))
	maincmd.AddCommand(NewUser(opts))
	return maincmd
}

// AddFlags adds the global options to a flag set.
func (o *Options) AddFlags(flags *pflag.FlagSet) {
	flags.StringVarP(&o.config, "config", "c", o.config, "configuration file")
	flags.StringVarP(&o.logLevel, "log-level", "L", "", "log level overriding the configuration")
	flags.StringVarP(&o.output, "output", "o", "", "output format (yaml)")
}

func (o *Options) load() (*config.Config, error) {
	cfg := config.Default()
	if o.config != "" {
		var err error
		cfg, err = config.Load(o.config, o.fs)
		if err != nil {
			return nil, err
		}
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, nil
}

// run executes fn on an opened instance and closes it afterwards.
func (o *Options) run(ctx context.Context, fn func(m *neoinventory.Manager) error) (err error) {
	cfg, err := o.load()
	if err != nil {
		return err
	}
	m, err := neoinventory.New(ctx, cfg, neoinventory.WithFileSystem(o.fs))
	if err != nil {
		return err
	}
	defer func() {
		if cerr := m.Close(ctx); err == nil {
			err = cerr
		}
	}()
	return fn(m)
}

// print writes data as YAML if requested, as table otherwise.
func (o *Options) print(w io.Writer, data any, header []string, rows [][]string) error {
	if o.output == "yaml" {
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	}
	if o.output != "" {
		return fmt.Errorf("unknown output format %q", o.output)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	line := func(cols []string) {
		for i, c := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, c)
		}
		fmt.Fprintln(tw)
	}
	line(header)
	for _, r := range rows {
		line(r)
	}
	return tw.Flush()
}

func NewInit(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "install the classes and the administrator account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), func(m *neoinventory.Manager) error {
				fmt.Fprintf(cmd.OutOrStdout(), "inventory initialized with %d classes\n", len(m.Catalog().Classes()))
				return nil
			})
		},
	}
}
