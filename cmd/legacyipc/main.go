package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/legacyipc"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "v0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "query" {
		os.Exit(query(os.Args[2:]))
	}

	configPath := flag.String("config", "", "path to a YAML config file")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := legacyipc.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logger, err := legacyipc.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	addr, err := cfg.TCPAddr()
	if err != nil {
		return err
	}
	order, err := cfg.FrameByteOrder()
	if err != nil {
		return err
	}

	calculator, err := legacyipc.NewExecCalculator(cfg.Calculator.Command, cfg.Calculator.Timeout)
	if err != nil {
		return errors.Wrap(err, "calculator.command")
	}

	server, err := legacyipc.New(addr, calculator,
		legacyipc.LoggerOption(logger),
		legacyipc.ByteOrderOption(order),
		legacyipc.MaxFrameSizeOption(cfg.MaxFrameSize),
		legacyipc.ReadTimeoutOption(cfg.ReadTimeout),
		legacyipc.WriteTimeoutOption(cfg.WriteTimeout),
	)
	if err != nil {
		return err
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, child := errgroup.WithContext(ctx)

	if cfg.Update.Enabled {
		checker := legacyipc.NewUpdateChecker(cfg.Update, version, logger)
		group.Go(func() error {
			checker.Run(child)
			return nil
		})
	}

	group.Go(func() error {
		return server.Serve(child)
	})

	if err = group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shut down")
	return nil
}

// query acts as the legacy peer and prints the rating of one beatmap.
func query(args []string) int {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	addr := fs.String("addr", legacyipc.DefaultListenAddr, "bridge address")
	ruleset := fs.Uint("ruleset", 0, "ruleset id (0 standard, 1 taiko, 2 catch, 3 mania)")
	mods := fs.Uint("mods", 0, "mods bitmask")
	byteOrder := fs.String("byte-order", legacyipc.ByteOrderNative, "length prefix byte order")
	timeout := fs.Duration("timeout", 30*time.Second, "request timeout")
	_ = fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: legacyipc query [flags] <beatmap.osu>")
		return 2
	}
	if *ruleset > 255 || *mods > 1<<32-1 {
		fmt.Fprintln(os.Stderr, "ruleset or mods out of range")
		return 2
	}

	order, err := legacyipc.ParseByteOrder(*byteOrder)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rating, err := legacyipc.NewClient(*addr, order).Calculate(ctx, legacyipc.RequestPayload{
		BeatmapFile: fs.Arg(0),
		RulesetID:   uint8(*ruleset),
		Mods:        uint32(*mods),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Println(rating)
	return 0
}
