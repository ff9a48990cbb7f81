// Package cmd implements the faultline CLI: replaying, tailing, and serving
// captured event streams through the filter stage.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "faultline",
	Short: "Failure event filtering toolbox",
	Long: `faultline replays, tails, and serves captured failure event streams,
running every event through the same inbound filter and scrubbing stage the
SDK applies before delivery. Use it to tune allow/deny/ignore lists against
recorded traffic before shipping them.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./.faultline.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.PersistentFlags().StringSlice("allow-urls", nil, "allow patterns for the origin URL")
	rootCmd.PersistentFlags().StringSlice("deny-urls", nil, "deny patterns for the origin URL")
	rootCmd.PersistentFlags().StringSlice("ignore-errors", nil, "message patterns to drop")
	rootCmd.PersistentFlags().Bool("ignore-internal", true, "drop SDK-internal errors")
	rootCmd.PersistentFlags().Bool("scrub", true, "redact secrets and PII before output")

	_ = viper.BindPFlag("allow_urls", rootCmd.PersistentFlags().Lookup("allow-urls"))
	_ = viper.BindPFlag("deny_urls", rootCmd.PersistentFlags().Lookup("deny-urls"))
	_ = viper.BindPFlag("ignore_errors", rootCmd.PersistentFlags().Lookup("ignore-errors"))
	_ = viper.BindPFlag("ignore_internal", rootCmd.PersistentFlags().Lookup("ignore-internal"))
	_ = viper.BindPFlag("scrub", rootCmd.PersistentFlags().Lookup("scrub"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".faultline")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("FAULTLINE")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// initLogging sets the package-level slog default. Diagnostics go to stderr
// so they never mix with NDJSON event output on stdout.
func initLogging() {
	level := slog.LevelInfo
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
