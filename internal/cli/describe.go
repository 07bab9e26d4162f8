package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/tablens/internal/describe"
	"github.com/kailas-cloud/tablens/internal/domain/column"
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Print the text each column is embedded with",
	Args:  cobra.ExactArgs(1),
	Run:   runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) {
	res, err := parseFile(cmd.Context(), args[0])
	if err != nil {
		exitError("%v", err)
	}
	printDescriptions(cmd.OutOrStdout(), res.Columns)
}

func printDescriptions(w io.Writer, cols []column.Column) {
	dim := color.New(color.Faint)
	for i, text := range describe.Columns(cols) {
		_, _ = dim.Fprintf(w, "%3d  ", cols[i].Index)
		fmt.Fprintln(w, text)
	}
}
