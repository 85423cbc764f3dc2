package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/dataplay/internal/config"
	"github.com/JonMunkholm/dataplay/internal/core"
	"github.com/JonMunkholm/dataplay/internal/logging"
	"github.com/JonMunkholm/dataplay/internal/session"
	"github.com/JonMunkholm/dataplay/internal/table"
	"github.com/JonMunkholm/dataplay/internal/tableio"
)

// app is the state shared by one CLI invocation: a private workspace the
// input files are loaded into.
type app struct {
	service *core.Service
	sess    *session.Session
	stdout  io.Writer

	outPath string
	lenient bool
	verbose bool
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	a := &app{stdout: stdout}

	rootCmd := &cobra.Command{
		Use:           "dataplay",
		Short:         "Explore CSV, TSV and Parquet files from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.PersistentFlags().StringVarP(&a.outPath, "out", "o", "", "write the result to a .csv, .tsv or .parquet file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&a.lenient, "lenient-numbers", false, `accept "$1,234" and "(12)" style numbers`)
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log operations to stderr")

	rootCmd.AddCommand(
		a.describeCmd(),
		a.filterCmd(),
		a.aggregateCmd(),
		a.joinCmd(),
	)
	return rootCmd
}

func (a *app) init() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Local files are trusted; only the row limit still applies.
	cfg.Upload.MaxFileSize = 1 << 62
	cfg.Upload.LenientNumbers = cfg.Upload.LenientNumbers || a.lenient

	level := "error"
	if a.verbose {
		level = "debug"
	}
	logging.SetupWriter(os.Stderr, level, "text")

	a.service = core.NewService(cfg, nil)
	a.sess = session.New(0)
	return nil
}

// load registers a file in the workspace and returns its table name.
func (a *app) load(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	res, err := a.service.LoadUpload(ctx, a.sess, core.UploadRequest{
		Filename: filepath.Base(path),
		Body:     f,
	})
	if err != nil {
		return "", err
	}
	return res.Name, nil
}

// writeResult exports the last result to --out, or as CSV to stdout.
func (a *app) writeResult(ctx context.Context) error {
	format := tableio.FormatCSV
	if a.outPath != "" {
		var err error
		if format, err = tableio.ParseFormat(filepath.Ext(a.outPath)); err != nil {
			return err
		}
	}
	exp, err := a.service.Export(ctx, a.sess, "", format)
	if err != nil {
		return err
	}
	if a.outPath == "" {
		_, err = a.stdout.Write(exp.Data)
		return err
	}
	if err := os.WriteFile(a.outPath, exp.Data, 0o644); err != nil {
		return err
	}
	res, _ := a.service.LastResult(a.sess)
	fmt.Fprintf(a.stdout, "wrote %d rows to %s\n", res.Table.NumRows(), a.outPath)
	return nil
}

func (a *app) describeCmd() *cobra.Command {
	var head int
	cmd := &cobra.Command{
		Use:   "describe FILE",
		Short: "Show shape, column types, null counts and the first rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}
			ov, err := a.service.Overview(ctx, a.sess, name, head)
			if err != nil {
				return err
			}
			return printOverview(a.stdout, ov)
		},
	}
	cmd.Flags().IntVarP(&head, "head", "n", 5, "number of rows to show")
	return cmd
}

func printOverview(w io.Writer, ov *core.Overview) error {
	fmt.Fprintf(w, "%s: %d rows × %d columns\n\n", ov.Name, ov.Rows, ov.Columns)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLS")
	for _, c := range ov.Schema {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Type, c.Nulls)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	for _, group := range []struct {
		label string
		cols  []string
	}{
		{"numeric", ov.Classes.Numeric},
		{"categorical", ov.Classes.Categorical},
		{"datetime", ov.Classes.Datetime},
		{"boolean", ov.Classes.Boolean},
	} {
		if len(group.cols) > 0 {
			fmt.Fprintf(w, "%s: %s\n", group.label, strings.Join(group.cols, ", "))
		}
	}

	fmt.Fprintln(w)
	return tableio.EncodeCSV(w, ov.Head)
}

func (a *app) filterCmd() *cobra.Command {
	var (
		where   []string
		columns []string
		sortBy  []string
		desc    bool
	)
	cmd := &cobra.Command{
		Use:   "filter FILE",
		Short: "Keep rows matching every --where clause",
		Long: `Keep rows matching every --where clause, then project and sort.

A clause is column:op:value or column:value (equals). Operators:
eq, ne, gt, lt, contains, in and between. in and between take
comma-separated values, e.g. region:in:north,south or amount:between:10,20.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}
			conds := make([]core.Condition, len(where))
			for i, expr := range where {
				conds[i] = core.Condition{Expr: expr}
			}
			sorts := make([]table.SortKey, len(sortBy))
			for i, col := range sortBy {
				sorts[i] = table.SortKey{Column: col, Descending: desc}
			}
			if _, err := a.service.Filter(ctx, a.sess, name, core.FilterRequest{
				Where:   conds,
				Columns: columns,
				Sort:    sorts,
			}); err != nil {
				return err
			}
			return a.writeResult(ctx)
		},
	}
	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "filter clause column:op:value (repeatable)")
	cmd.Flags().StringSliceVarP(&columns, "columns", "c", nil, "columns to keep, in order")
	cmd.Flags().StringSliceVarP(&sortBy, "sort", "s", nil, "columns to sort by")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func (a *app) aggregateCmd() *cobra.Command {
	var keys, values, funcs []string
	cmd := &cobra.Command{
		Use:   "aggregate FILE",
		Short: "Group rows and compute statistics",
		Long: `Group rows by the --group columns and compute every --funcs statistic
over every --values column. Functions: count, sum, mean, min, max, median
and std. Output columns are named <value>_<func>.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			name, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}
			spec, err := groupSpec(keys, values, funcs)
			if err != nil {
				return err
			}
			if _, err := a.service.Aggregate(ctx, a.sess, name, core.AggregateRequest{Spec: spec}); err != nil {
				return err
			}
			return a.writeResult(ctx)
		},
	}
	cmd.Flags().StringSliceVarP(&keys, "group", "g", nil, "columns to group by")
	cmd.Flags().StringSliceVar(&values, "values", nil, "columns to aggregate")
	cmd.Flags().StringSliceVarP(&funcs, "funcs", "f", []string{"sum"}, "aggregation functions")
	_ = cmd.MarkFlagRequired("group")
	_ = cmd.MarkFlagRequired("values")
	return cmd
}

func groupSpec(keys, values, names []string) (table.GroupSpec, error) {
	funcs := make([]table.AggFunc, 0, len(names))
	for _, n := range names {
		f, err := table.ParseAggFunc(n)
		if err != nil {
			return table.GroupSpec{}, err
		}
		funcs = append(funcs, f)
	}
	return table.NewGroupSpec(keys, values, funcs)
}

func (a *app) joinCmd() *cobra.Command {
	var (
		how             string
		on              []string
		leftOn, rightOn []string
	)
	cmd := &cobra.Command{
		Use:   "join LEFT RIGHT",
		Short: "Join two files on key columns",
		Long: `Join two files on key columns. --on names keys shared by both files;
--left-on and --right-on pair differently named keys in order.
--how is inner, left, right or outer.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			left, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}
			right, err := a.load(ctx, args[1])
			if err != nil {
				return err
			}

			if len(on) > 0 {
				leftOn, rightOn = on, on
			}
			if len(rightOn) == 0 {
				rightOn = leftOn
			}
			kind, err := table.ParseJoinKind(how)
			if err != nil {
				return err
			}
			spec, err := table.NewJoinSpec(kind, leftOn, rightOn)
			if err != nil {
				return err
			}
			res, err := a.service.Join(ctx, a.sess, core.JoinRequest{Left: left, Right: right, Spec: spec})
			if err != nil {
				return err
			}
			if a.verbose {
				fmt.Fprintf(os.Stderr, "%d left rows, %d right rows, %d result rows\n",
					res.LeftRows, res.RightRows, res.Rows())
			}
			return a.writeResult(ctx)
		},
	}
	cmd.Flags().StringVar(&how, "how", "inner", "join kind: inner, left, right or outer")
	cmd.Flags().StringSliceVar(&on, "on", nil, "key columns present in both files")
	cmd.Flags().StringSliceVar(&leftOn, "left-on", nil, "key columns of the left file")
	cmd.Flags().StringSliceVar(&rightOn, "right-on", nil, "key columns of the right file (default --left-on)")
	cmd.MarkFlagsMutuallyExclusive("on", "left-on")
	return cmd
}
