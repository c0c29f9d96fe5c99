package main

import (
	"context"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"skywatch-sim/internal/admin"
	"skywatch-sim/internal/config"
	"skywatch-sim/internal/gateway"
	"skywatch-sim/internal/logging"
	"skywatch-sim/internal/publish"
	"skywatch-sim/internal/session"
	"skywatch-sim/internal/sim"
	"skywatch-sim/internal/simerr"
	"skywatch-sim/internal/telemetry"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the detection simulator",
	Long: `simulate loads an airspace configuration, serves the control API and the
live event stream, and runs detection ticks until interrupted.`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		cfg, err := config.Load(v.GetString("config"))
		if err != nil {
			return err
		}
		specs, err := cfg.DeviceSpecs()
		if err != nil {
			return err
		}

		opts := sinkOptions{
			Sink:         v.GetString("sink"),
			LogFile:      v.GetString("event-log"),
			GreptimeHost: v.GetString("greptime-host"),
			GreptimePort: v.GetInt("greptime-port"),
			GreptimeDB:   v.GetString("greptime-database"),
		}
		opts.Sink = resolveSink(opts)
		if opts.Sink == sinkTUI && v.GetString("log-file") == "" {
			// keep log lines off the TUI screen
			logger, closer := logging.NewWithOptions(logging.Options{
				Level: v.GetString("log-level"), File: "skywatch.log", MaxSizeMB: 50, MaxBackups: 3,
			})
			defer closer.Close()
			slog.SetDefault(logger)
		}
		log := slog.Default()

		writer, cleanup, err := newWriters(cfg.AirspaceID, specs, opts)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		hub := publish.NewHub(log)
		defer hub.Close()

		manager := session.NewManager(ctx, sessionFactory(ctx, cfg, writer, hub))
		defer manager.Close()

		srv := admin.NewServer(manager, hub, log)
		ln, err := net.Listen("tcp", v.GetString("admin-addr"))
		if err != nil {
			return err
		}
		if aw, ok := writer.(sim.AdminStatusWriter); ok {
			aw.SetAdminStatus(true)
		}
		go func() {
			if err := srv.Serve(ctx, ln); err != nil {
				log.Error("admin server failed", "err", err)
			}
			if aw, ok := writer.(sim.AdminStatusWriter); ok {
				aw.SetAdminStatus(false)
			}
		}()

		if v.GetBool("autostart") {
			if _, err := manager.Start(cfg.AirspaceID); err != nil {
				return err
			}
		}

		<-ctx.Done()
		log.Info("detection simulation stopped", "airspace_id", cfg.AirspaceID)
		return nil
	},
}

// sessionFactory builds sessions for the configured airspace. Other ids are
// unknown.
func sessionFactory(ctx context.Context, cfg *config.Config, writer sim.EventWriter, hub *publish.Hub) session.Factory {
	return func(id string) (*session.Session, error) {
		if id != cfg.AirspaceID {
			return nil, simerr.NotFound("airspace %s is not configured", id)
		}
		gw, err := newGateway(ctx, cfg)
		if err != nil {
			return nil, err
		}
		env, err := cfg.EnvironmentProvider()
		if err != nil {
			gw.Close()
			return nil, err
		}
		// sensors are rebuilt per session so a restart begins with empty logs
		sensors, err := cfg.Sensors()
		if err != nil {
			gw.Close()
			return nil, err
		}
		orch, err := sim.NewOrchestrator(cfg.OrchestratorOptions(), gw, env, sensors, cfg.TargetList(), writer)
		if err != nil {
			gw.Close()
			return nil, err
		}
		orch.SetPublisher(hub.For(id))
		s, err := session.New(id, cfg.TimeStep(), orch)
		if err != nil {
			orch.Close()
			gw.Close()
			return nil, err
		}
		s.OnClose(gw.Close)
		return s, nil
	}
}

func newGateway(ctx context.Context, cfg *config.Config) (gateway.Gateway, error) {
	if cfg.Gateway.Mode == "rpc" {
		c, err := gateway.Dial(ctx, cfg.Gateway.ClientConfig())
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	gen := telemetry.NewGenerator(cfg.Gateway.Seed, cfg.Gateway.BoundsM, cfg.Drones())
	return gateway.NewLocal(gen), nil
}

func init() {
	f := simulateCmd.Flags()
	f.String("config", "config/skywatch.yaml", "airspace configuration YAML")
	f.String("admin-addr", ":8080", "control API listen address")
	f.String("sink", sinkAuto, "event sink: auto, stdout, color, tui or greptime")
	f.String("event-log", "", "export events as JSONL to this path")
	f.String("greptime-host", "", "GreptimeDB host")
	f.Int("greptime-port", 4001, "GreptimeDB gRPC port")
	f.String("greptime-database", "public", "GreptimeDB database")
	f.Bool("autostart", true, "start the configured airspace immediately")
}
