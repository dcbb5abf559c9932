// Command wmbusgw is the gateway daemon: it loads a YAML configuration
// (optionally layered with ad-hoc --device specs), opens every configured
// wM-Bus/M-Bus device, and drives the bus manager's read loops until
// interrupted. Thin wiring over internal/busmanager, matching doismellburning/samoyed's
// own cmd/direwolf vs. src split — flag parsing, config loading, logger
// setup, and goroutine supervision live here; none of the protocol or
// device-lifecycle logic does.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/wmbus-tools/wmbusgw/internal/alarm"
	"github.com/wmbus-tools/wmbusgw/internal/busmanager"
	"github.com/wmbus-tools/wmbusgw/internal/config"
	"github.com/wmbus-tools/wmbusgw/internal/dedupe"
	"github.com/wmbus-tools/wmbusgw/internal/rigcontrol"
	"github.com/wmbus-tools/wmbusgw/internal/serialio"
	"github.com/wmbus-tools/wmbusgw/internal/telegram"
)

// tickInterval is how often Manager.Tick and DrainSendQueue run.
const tickInterval = 5 * time.Second

func main() {
	var configFile = pflag.StringP("config-file", "c", "", "YAML configuration file.")
	var deviceSpecs = pflag.StringArrayP("device", "d", nil, "Ad-hoc device spec (§6.3 grammar), may be repeated. Added on top of any --config-file devices.")
	var logLevel = pflag.StringP("log-level", "l", "", "Log level: debug, info, warn, error. Overrides the config file's log_level.")
	var dedupeEnabled = pflag.BoolP("dedupe", "u", false, "Suppress duplicate frames seen across overlapping devices.")
	var exitOnNoDevice = pflag.BoolP("exit-on-no-device", "x", false, "Shut down once every configured device has failed, instead of running with zero devices.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: wmbusgw [options]")
		pflag.PrintDefaults()
	}
	pflag.Parse()
	if *help {
		pflag.Usage()
		return
	}

	var cfg = &config.Config{}
	if *configFile != "" {
		var loaded, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	for _, spec := range *deviceSpecs {
		cfg.Devices = append(cfg.Devices, config.DeviceEntry{Spec: spec})
	}
	if *dedupeEnabled {
		cfg.DedupeEnabled = true
	}
	if *exitOnNoDevice {
		cfg.ExitOnNoDevice = true
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	var logger = log.New(os.Stderr)
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("wmbusgw exiting", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	var keys, err = cfg.Keystore()
	if err != nil {
		return fmt.Errorf("wmbusgw: %w", err)
	}
	var formats = telegram.NewMapFormatCache()

	var ctx, cancel = signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var listen = func(about telegram.About, frame []byte) {
		var tg, err = telegram.Parse(about, frame, keys, formats)
		if err != nil {
			logger.Warn("telegram parse failed", "device", about.Device, "err", err)
			return
		}
		for _, line := range telegram.RenderLines(tg) {
			logger.Info(line, "device", about.Device)
		}
	}

	var m = busmanager.NewManager(listen,
		busmanager.WithAlarmSink(alarm.NewThrottled(alarm.NewLogSink(logger))),
		busmanager.WithDedupe(dedupe.NewFrameCache(cfg.DedupeEnabled)),
		busmanager.WithExitOnNoDevice(cfg.ExitOnNoDevice),
		busmanager.WithShutdownFunc(cancel),
		busmanager.WithLogger(logger),
		busmanager.WithReopen(func(alias string) (serialio.Port, error) {
			return reopenByAlias(cfg, alias)
		}),
	)

	if err := addConfiguredDevices(m, cfg, logger); err != nil {
		return err
	}
	if m.Count() == 0 {
		return fmt.Errorf("wmbusgw: no devices configured")
	}

	var g, gctx = errgroup.WithContext(ctx)
	for _, dev := range m.Devices() {
		var dev = dev
		g.Go(func() error {
			var err = m.RunDevice(gctx, dev)
			if gctx.Err() != nil {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		var ticker = time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case now := <-ticker.C:
				m.Tick(now)
				m.DrainSendQueue(nil)
			}
		}
	})

	<-ctx.Done()
	logger.Info("shutting down")
	return g.Wait()
}

// addConfiguredDevices resolves every config.DeviceEntry into a live
// *busmanager.BusDevice and registers it. One bad entry logs and is skipped
// rather than aborting the whole gateway.
func addConfiguredDevices(m *busmanager.Manager, cfg *config.Config, logger *log.Logger) error {
	for _, entry := range cfg.Devices {
		var spec, err = entry.SpecifiedDevice()
		if err != nil {
			logger.Error("device spec invalid, skipping", "spec", entry.Spec, "err", err)
			continue
		}

		var port serialio.Port
		port, err = busmanager.OpenPort(spec)
		if err != nil {
			logger.Error("device open failed, skipping", "device", spec.BusAlias, "err", err)
			continue
		}

		var f = func([]byte) error { return nil }
		var framer, ferr = busmanager.NewFramer(spec.Type, spec, f)
		if ferr != nil {
			logger.Error("device framer unsupported, skipping", "device", spec.BusAlias, "type", spec.Type, "err", ferr)
			port.Close()
			continue
		}

		var rig rigcontrol.Controller
		if entry.RigModel != 0 {
			rig, err = rigcontrol.Open(entry.RigModel, entry.RigDevice)
			if err != nil {
				logger.Warn("rig control unavailable, continuing without", "device", spec.BusAlias, "err", err)
			}
		}

		var alias = spec.BusAlias
		if alias == "" {
			alias = spec.File
		}
		var dev = busmanager.NewBusDevice(alias, spec.Type, port, framer, rig)
		dev.ReadOnly = entry.ReadOnly
		dev.ResetInterval = entry.ResetInterval(cfg.DefaultResetIntervalHours)
		dev.Timeout = entry.Timeout(cfg.DefaultTimeoutSeconds)

		var window, werr = busmanager.ParseActivityWindow(entry.ActivityWindow)
		if werr != nil {
			logger.Error("activity window invalid, skipping", "device", alias, "err", werr)
			port.Close()
			continue
		}
		dev.ActivityWindow = window

		if err := dev.ApplyLinkModes(spec.LinkModes); err != nil {
			logger.Warn("initial link mode apply failed", "device", alias, "err", err)
		}

		m.AddDevice(dev)
		logger.Info("device added", "device", alias, "type", spec.Type)
	}
	return nil
}

// reopenByAlias re-resolves alias's original device spec from cfg and opens
// a fresh port for it, used by busmanager's reset path.
func reopenByAlias(cfg *config.Config, alias string) (serialio.Port, error) {
	for _, entry := range cfg.Devices {
		var spec, err = entry.SpecifiedDevice()
		if err != nil {
			continue
		}
		var candidate = spec.BusAlias
		if candidate == "" {
			candidate = spec.File
		}
		if candidate != alias {
			continue
		}
		return busmanager.OpenPort(spec)
	}
	return nil, fmt.Errorf("wmbusgw: no device spec found for alias %q", alias)
}

