// Package cli implements the evalflowd command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "evalflowd",
	Short: "Evalflowd - response re-generation and multi-judge evaluation service",
	Long: `Evalflowd re-generates the final assistant turn of a conversation with a
configured LLM and scores the result with concurrent judge models for
relevance, completeness, and factual accuracy against the retrieved
context. It serves the evaluation over HTTP and exposes Prometheus
metrics.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("evalflowd v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./evalflow.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
}

// initConfig loads the config file and EVALFLOW_* environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("evalflow")
	}

	viper.SetEnvPrefix("EVALFLOW")
	viper.AutomaticEnv()

	_ = viper.ReadInConfig()
}
