// Package cli defines the tabtune command-line interface.
package cli

import (
	"github.com/spf13/cobra"
)

var (
	// cfgFile stores the path to the config file when set via flag.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "tabtune",
		Short: "Hyperparameter search for tabular transformer classifiers",
		Long: `tabtune runs sequential model-based hyperparameter search with
median pruning over a tabular transformer classifier, persisting results
incrementally for later analysis. Use 'run --help' for search options.`,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./tabtune.yaml)")
}
