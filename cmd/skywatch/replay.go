package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skywatch-sim/internal/sim"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a detection event log",
	Long:  "replay feeds events from a JSONL log back into a sink at a speed multiplier.",
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		opts := sinkOptions{
			Sink:         v.GetString("sink"),
			GreptimeHost: v.GetString("greptime-host"),
			GreptimePort: v.GetInt("greptime-port"),
			GreptimeDB:   v.GetString("greptime-database"),
		}
		// the TUI quits on its own; keep replays on plain sinks
		if resolveSink(opts) == sinkTUI {
			opts.Sink = sinkColor
		}
		writer, cleanup, err := newWriters(v.GetString("airspace-id"), nil, opts)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return sim.ReplayLogFile(ctx, v.GetString("input"), writer, v.GetFloat64("speed"))
	},
}

func init() {
	f := replayCmd.Flags()
	f.String("input", "", "path to a JSONL event log")
	f.Float64("speed", 1.0, "playback speed multiplier")
	f.String("sink", sinkAuto, "event sink: auto, stdout, color or greptime")
	f.String("airspace-id", "replay", "airspace id written with replayed events")
	f.String("greptime-host", "", "GreptimeDB host")
	f.Int("greptime-port", 4001, "GreptimeDB gRPC port")
	f.String("greptime-database", "public", "GreptimeDB database")
	_ = replayCmd.MarkFlagRequired("input")
}
