package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kailas-cloud/tablens/internal/columnar"
)

var convertOutput string

var convertCmd = &cobra.Command{
	Use:   "convert <file>",
	Short: "Write the columnar file tablens would store",
	Long: `Parse a local file, run the columnar-safety pass and write the result
as Parquet. The default output is the input path with a .parquet extension.`,
	Args: cobra.ExactArgs(1),
	Run:  runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output path")
}

func runConvert(cmd *cobra.Command, args []string) {
	res, err := parseFile(cmd.Context(), args[0])
	if err != nil {
		exitError("%v", err)
	}

	data, err := columnar.Marshal(res.Table)
	if err != nil {
		exitError("%v", err)
	}

	out := convertOutput
	if out == "" {
		out = outputPath(args[0])
	}
	if err := os.WriteFile(filepath.Clean(out), data, 0o600); err != nil {
		exitError("write %s: %v", out, err)
	}

	green := color.New(color.FgGreen)
	_, _ = green.Fprintf(cmd.OutOrStdout(), "wrote %s", out)
	fmt.Fprintf(cmd.OutOrStdout(), " (%d rows, %d columns, %d bytes)\n",
		res.Table.NumRows(), res.Table.NumColumns(), len(data))
}

func outputPath(in string) string {
	return strings.TrimSuffix(in, filepath.Ext(in)) + ".parquet"
}
