package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/tablens/internal/domain/column"
	"github.com/kailas-cloud/tablens/internal/parser"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show how a file is parsed",
	Long: `Parse a local CSV or spreadsheet and print the strategy that read it,
the text encoding, the header depth and the inferred column schema.`,
	Args: cobra.ExactArgs(1),
	Run:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) {
	res, err := parseFile(cmd.Context(), args[0])
	if err != nil {
		exitError("%v", err)
	}
	printInspect(cmd.OutOrStdout(), args[0], res)
}

func printInspect(w io.Writer, path string, res *parser.Result) {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	_, _ = bold.Fprintf(w, "%s\n", path)
	fmt.Fprintf(w, "  strategy:     %s\n", res.Strategy)
	if res.Encoding != "" {
		fmt.Fprintf(w, "  encoding:     %s\n", res.Encoding)
	}
	fmt.Fprintf(w, "  header depth: %d\n", res.HeaderDepth)
	fmt.Fprintf(w, "  rows:         %d\n", res.Table.NumRows())
	fmt.Fprintf(w, "  columns:      %d\n", len(res.Columns))
	if res.Advisory != "" {
		_, _ = yellow.Fprintf(w, "  note: %s\n", res.Advisory)
	}
	fmt.Fprintln(w)

	for _, c := range res.Columns {
		_, _ = cyan.Fprintf(w, "  %3d  %-32s", c.Index, c.Name)
		fmt.Fprintf(w, " %-7s nulls=%d unique=%d", c.Type, c.Stats.NullCount, c.Stats.UniqueCount)
		if extra := statsSummary(c); extra != "" {
			fmt.Fprintf(w, " %s", extra)
		}
		fmt.Fprintln(w)
		if c.Label != "" && c.Label != c.Name {
			fmt.Fprintf(w, "       label: %s\n", c.Label)
		}
	}
}

func statsSummary(c column.Column) string {
	s := c.Stats
	var parts []string
	switch {
	case c.Type.IsNumeric():
		if s.Min != nil && s.Max != nil {
			parts = append(parts, fmt.Sprintf("min=%g max=%g", *s.Min, *s.Max))
		}
		if s.Mean != nil {
			parts = append(parts, fmt.Sprintf("mean=%.4g", *s.Mean))
		}
	case c.Type == column.TypeDate:
		if s.MinDate != nil && s.MaxDate != nil {
			parts = append(parts, fmt.Sprintf("from=%q to=%q", *s.MinDate, *s.MaxDate))
		}
	case c.Type == column.TypeString:
		if s.MinLength != nil && s.MaxLength != nil {
			parts = append(parts, fmt.Sprintf("len=%d..%d", *s.MinLength, *s.MaxLength))
		}
	}
	return strings.Join(parts, " ")
}
