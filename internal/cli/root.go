// Package cli implements tablensctl, the local companion of the tablens server.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tablens/internal/parser"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "tablensctl",
	Short: "Inspect tabular files the way tablens ingests them",
	Long: `tablensctl runs the tablens parser on local files. It shows the strategy
that read the file, the detected header depth, the inferred schema and the
text each column is embedded with, and can write the columnar file the
server would store.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log failed parse strategies")
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(convertCmd)
}

// parseFile reads path and runs the default parser chain on it.
func parseFile(ctx context.Context, path string) (*parser.Result, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	logger := zap.NewNop()
	if verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			logger = l
		}
	}
	return parser.New(logger).Parse(ctx, data, filepath.Base(path))
}

// exitError prints an error and exits
func exitError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
