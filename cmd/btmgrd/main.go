// Command btmgrd is the Bluetooth management daemon: it boots the service
// root, registers every profile's RPC router (no profile stack is bound to
// an adapter here), exposes the D-Bus RPC surface, and serves Prometheus
// metrics until asked to stop.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/anttech/btmgrd/internal/avrcp"
	"github.com/anttech/btmgrd/internal/config"
	"github.com/anttech/btmgrd/internal/metrics"
	"github.com/anttech/btmgrd/internal/opp"
	"github.com/anttech/btmgrd/internal/profiles"
	"github.com/anttech/btmgrd/internal/rpcbus/dbusbus"
	"github.com/anttech/btmgrd/internal/service"
	"github.com/anttech/btmgrd/internal/sil"
	appversion "github.com/anttech/btmgrd/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "btmgrd:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/btmgrd/btmgrd.yml", "path to the configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appversion.Full("btmgrd"))
		return nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	levelVar := new(slog.LevelVar)
	levelVar.Set(config.ParseLogLevel(cfg.Log.Level))
	log := newLogger(cfg.Log.Format, levelVar)

	log.Info("starting btmgrd", "version", appversion.Version, "busName", cfg.DBus.BusName)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	// The concrete Bluetooth stack (BlueZ, Fluoride, a vendor SIL) is out
	// of scope here; production deployments supply their own sil.Handle
	// binding. Absent that, we boot with no adapters rather than fabricate
	// one, so every adapter-scoped RPC legitimately reports
	// adapterNotAvailable until a real SIL is wired in.
	var handle sil.Handle

	root := service.New(handle, log)
	root.Bootstrap()

	set := profiles.NewSet(log)
	for category, router := range set.Routers() {
		root.RegisterProfile(category, router)
	}
	root.RegisterProfile("avrcp", avrcp.New(log))
	root.RegisterProfile("opp", opp.New(cfg.OPP.StorageRoot, log))

	bus, err := dbusbus.Connect(cfg.DBus.BusName, root, log)
	if err != nil {
		return fmt.Errorf("connect dbus: %w", err)
	}

	if err := bus.Start(ctx); err != nil {
		_ = bus.Close()
		return fmt.Errorf("start dbus transport: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return root.Run(gctx)
	})

	metricsSrv := newMetricsServer(cfg.Metrics.Addr, cfg.Metrics.Path, reg)
	g.Go(func() error {
		log.Info("metrics endpoint listening", "addr", cfg.Metrics.Addr, "path", cfg.Metrics.Path)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return watchSignals(gctx, levelVar, log)
	})

	if ok, _ := daemon.SdNotify(false, daemon.SdNotifyReady); ok {
		log.Debug("sd_notify READY=1 delivered")
	}
	g.Go(func() error {
		return runWatchdog(gctx, log)
	})

	g.Go(func() error {
		return reportInventory(gctx, root, collector)
	})

	<-gctx.Done()
	log.Info("shutdown signal received, draining")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("metrics server shutdown did not complete cleanly", "error", err)
	}
	_ = bus.Close()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("btmgrd stopped")
	return nil
}

func newMetricsServer(addr, path string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// newLogger builds the root slog.Logger per cfg.Log.Format, gated by a
// shared LevelVar so watchSignals can lower or raise verbosity without a
// restart.
func newLogger(format string, level *slog.LevelVar) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// watchSignals toggles the log level on SIGHUP: one SIGHUP switches to
// debug, the next returns to the level the process started at.
func watchSignals(ctx context.Context, level *slog.LevelVar, log *slog.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	startLevel := level.Level()
	debugging := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			debugging = !debugging
			if debugging {
				level.Set(slog.LevelDebug)
			} else {
				level.Set(startLevel)
			}
			log.Info("log level reloaded via SIGHUP", "level", level.Level())
		}
	}
}

const inventoryReportInterval = 30 * time.Second

// reportInventory periodically refreshes the adapter/device gauges.
// Inventory reads must run on the dispatcher goroutine, so the work is
// queued through Submit rather than read directly.
func reportInventory(ctx context.Context, root *service.Root, collector *metrics.Collector) error {
	ticker := time.NewTicker(inventoryReportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			root.Submit(func() {
				adapters := root.Adapters()
				collector.SetAdapters(len(adapters))
				for _, a := range adapters {
					collector.SetDevices(a.Address(), len(a.Inventory().All()))
				}
			})
		}
	}
}

// runWatchdog pings systemd's watchdog at half the configured interval, if
// the unit enabled one. No-op under environments without a watchdog.
func runWatchdog(ctx context.Context, log *slog.Logger) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return nil
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if ok, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				log.Warn("sd_notify watchdog ping failed", "error", err)
			} else if !ok {
				return nil
			}
		}
	}
}
