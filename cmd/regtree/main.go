// Command regtree loads XGBoost JSON models to predict, explain and
// dump their trees.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose bool
	logFile string
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "regtree",
		Short: "regtree predicts and explains tree-ensemble models",
		Long:  `A tool to run XGBoost JSON models: batch predictions, per-feature SHAP contributions, and human-readable tree dumps`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP(&config.verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&config.logFile, "log-file", "", "write logs to this rotating file instead of stderr")
	rootCmd.AddCommand(predictCmd(config), contribsCmd(config), dumpCmd(config))
	return rootCmd
}
