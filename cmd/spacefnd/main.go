// spacefnd - SpaceFn layout for any Linux keyboard
//
// The space bar types a space when tapped and switches to a second layer
// while held. spacefnd grabs the physical keyboard and re-emits its
// remapped stream through a virtual uinput keyboard:
//
//	spacefnd run [-config FILE]   Remap the configured keyboard
//	spacefnd -config FILE         Same as run
//	spacefnd check [FILE]         Validate a configuration file
//	spacefnd list                 List keyboards under /dev/input
//	spacefnd version              Print the version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/erikdubbelboer/gspt"

	"spacefn/internal/config"
	"spacefn/internal/device"
	"spacefn/internal/engine"
	"spacefn/internal/logging"
	"spacefn/internal/metrics"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const defaultConfigPath = "/etc/spacefn/spacefn.toml"

func main() {
	os.Exit(dispatch(os.Args[1:], os.Stdout, os.Stderr))
}

func dispatch(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 1
	}

	switch args[0] {
	case "run":
		return cmdRun(args[1:], stderr)
	case "check":
		return cmdCheck(args[1:], stdout, stderr)
	case "list":
		return cmdList(stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "spacefnd %s\n", version)
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}

	// leading flags belong to run: spacefnd -config FILE
	if strings.HasPrefix(args[0], "-") {
		return cmdRun(args, stderr)
	}

	// spacefnd FILE behaves like spacefnd run FILE
	if _, err := os.Stat(args[0]); err == nil {
		return cmdRun(args, stderr)
	}

	fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
	usage(stderr)
	return 1
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `spacefnd - SpaceFn dual-purpose space bar

USAGE:
    spacefnd <command> [options]
    spacefnd [run options] [config-file]

COMMANDS:
    run [-config FILE]  Grab the keyboard and start remapping
    check [FILE]        Validate a configuration file and print it
    list                List keyboards that can be used as the device
    version             Print the version
    help                Show this help message

The tap-or-hold window, the trigger key and the three remap tables
(remap, shift, layer) are read from the configuration file, by default
`+defaultConfigPath+`. TOML, YAML and JSON are accepted.

spacefnd needs read access to the input device and write access to
/dev/uinput; run it as root or from a user in the input group.`)
}

func cmdRun(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "Configuration file")
	devicePath := fs.String("device", "", "Input device, overrides the configuration")
	debug := fs.Bool("debug", false, "Log every state change")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		*configPath = fs.Arg(0)
	}

	cfg, err := config.Load(*configPath, func(c *config.Config) {
		if *devicePath != "" {
			c.Device = *devicePath
		}
		if *debug {
			c.Logging.Level = "debug"
		}
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(stderr, "Error: flush log: %v\n", err)
		}
		logger.Close()
	}()
	logging.SetDefault(logger)

	for _, w := range config.Check(cfg).Warnings() {
		logger.Warn("config warning", "field", w.Field, "message", w.Message)
	}

	gspt.SetProcTitle("spacefnd " + cfg.Device)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("spacefnd stopped", "error", err)
		return 1
	}
	logger.Info("spacefnd stopped")
	return 0
}

// run owns the devices for one session. It returns nil when ctx is
// cancelled and the devices were released.
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	log := logger.Logger

	if wait := cfg.WaitForDevice(); wait > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, wait)
		err := device.WaitForPath(waitCtx, cfg.Device)
		cancel()
		if err != nil {
			return err
		}
	}

	layers, err := cfg.Tables()
	if err != nil {
		return err
	}

	in, err := device.OpenInput(cfg.Device, device.InputOptions{
		Logger: logger.WithComponent("input").Logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Warn("release input device", "error", err)
		}
	}()

	out, err := device.CreateOutput(cfg.VirtualName, in, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warn("destroy virtual keyboard", "error", err)
		}
	}()

	if err := in.Grab(ctx, cfg.GrabDelay()); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Listen != "" || cfg.Metrics.ReportIntervalSec > 0 {
		m = metrics.New(logger.WithComponent("metrics").Logger)
		if cfg.Metrics.Listen != "" {
			if _, err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
				return err
			}
		}
		stopReporter, err := m.StartReporter(cfg.ReportInterval())
		if err != nil {
			return err
		}
		defer stopReporter()
	}

	eng := engine.New(in, out, engine.Options{
		Trigger:  cfg.Trigger.Code(),
		Gate:     cfg.Gate(),
		Layers:   layers,
		Logger:   logger.WithComponent("engine").Logger,
		Observer: m,
	})

	log.Info("remapping",
		"device", cfg.Device,
		"name", in.Name(),
		"virtual", out.Name(),
		"trigger", cfg.Trigger,
		"gate", cfg.Gate(),
		"layer_keys", layers.Layer.Len(),
	)

	err = eng.Run(ctx)
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		log.Info("shutting down")
		return nil
	}
	return err
}

func newLogger(lc config.LoggingConfig) (*logging.Logger, error) {
	level, err := logging.ParseLevel(lc.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(lc.Format)
	if err != nil {
		return nil, err
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.Output = lc.Output
	if lc.FilePath != "" {
		cfg.FilePath = lc.FilePath
	}
	cfg.MaxSize = int64(lc.MaxSizeMB)
	cfg.MaxBackups = lc.MaxBackups
	cfg.Compress = true
	return logging.New(cfg)
}

func cmdCheck(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", defaultConfigPath, "Configuration file")
	quiet := fs.Bool("q", false, "Only report problems")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() > 0 {
		*configPath = fs.Arg(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	for _, w := range config.Check(cfg).Warnings() {
		fmt.Fprintf(stderr, "Warning: %v\n", &w)
	}

	if *quiet {
		return 0
	}

	fmt.Fprintf(stdout, "# %s is valid\n", *configPath)
	if err := cfg.Encode(stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func cmdList(stdout, stderr io.Writer) int {
	kbds, err := device.ListKeyboards()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if len(kbds) == 0 {
		fmt.Fprintln(stderr, "No keyboards found. Are you in the input group?")
		return 1
	}

	for _, k := range kbds {
		fmt.Fprintf(stdout, "%s\t%s\n", k.Path, k.Name)
	}
	return 0
}
