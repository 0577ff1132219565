// Package commands provides the CLI commands for PromptLab.
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/config"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/internal/logging"
	"github.com/Life-Hackers-inc/Raycast-PromptLab/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	printLogs bool
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:   "promptlab",
	Short: "PromptLab - prompt automation against configurable model endpoints",
	Long: `PromptLab resolves placeholder-rich prompts and runs them against
configurable model endpoints.

Run 'promptlab run' to execute a prompt, or 'promptlab serve' to start
the HTTP server.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	// Global flags available to all commands
	rootCmd.PersistentFlags().BoolVar(&printLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR), overrides config")

	rootCmd.SetVersionTemplate(fmt.Sprintf("promptlab %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(profilesCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetWorkDir returns the working directory from flag or current directory.
func GetWorkDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	return os.Getwd()
}

// setupLogging applies the logging configuration, letting the global flags
// override the config file. Logs go to stderr when --print-logs is set (or
// alwaysPrint asks for it, as the server does), to the configured log file
// when one is enabled, and nowhere otherwise.
func setupLogging(appConfig *types.Config, alwaysPrint bool) {
	cfg := logging.FromTypes(appConfig.Log)
	if logLevel != "" {
		cfg.Level = logging.ParseLevel(logLevel)
	}
	if printLogs || alwaysPrint {
		cfg.Output = os.Stderr
		cfg.Pretty = true
	} else {
		cfg.Output = io.Discard
	}
	if cfg.LogToFile && cfg.LogDir == "" {
		cfg.LogDir = config.GetPaths().LogsPath()
	}
	logging.Init(cfg)
}
