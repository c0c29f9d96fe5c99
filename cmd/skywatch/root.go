package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skywatch-sim/internal/logging"
)

var logCloser io.Closer

var rootCmd = &cobra.Command{
	Use:   "skywatch",
	Short: "Airspace detection simulator",
	Long: `skywatch simulates radar, optical and radio sensors detecting drones in a
shared airspace, with target state taken from an external vehicle simulator
or a built-in generator.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger, closer := logging.NewWithOptions(logging.Options{
			Level:      viper.GetString("log-level"),
			File:       viper.GetString("log-file"),
			MaxSizeMB:  50,
			MaxBackups: 3,
		})
		logCloser = closer
		slog.SetDefault(logger)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCloser != nil {
			logCloser.Close()
		}
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

	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-file", "", "write JSON logs to this file with rotation")
	_ = viper.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// initConfig maps SKYWATCH_* environment variables onto flags.
func initConfig() {
	viper.SetEnvPrefix("SKYWATCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}
