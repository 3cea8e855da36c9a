package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bedrock-loadtest/internal/report"
)

var version = "1.0.0"

var (
	configPath string
	modelsPath string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "bedrock-loadtest",
	Short:   "Load testing harness for Amazon Bedrock",
	Version: version,
	Long: `bedrock-loadtest drives concurrent load against Amazon Bedrock foundation
models and knowledge bases, walking a ladder of concurrency levels while
collecting latency percentiles, token usage, cost estimates and error
breakdowns into console, markdown and JSON reports.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		report.NewConsoleReporter(os.Stderr).PrintError(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/test_config.yaml", "path to the test configuration file")
	rootCmd.PersistentFlags().StringVar(&modelsPath, "models", "config/models_config.yaml", "path to the models configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("bedrock-loadtest %s\n", version)
	},
}

// newLogger builds the process logger. --verbose switches to the
// development encoding at debug level.
func newLogger() (*zap.Logger, error) {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.DisableStacktrace = true
	return cfg.Build()
}
