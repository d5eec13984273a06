package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/opcua-bridge/client"
	"github.com/wippyai/opcua-bridge/config"
	"github.com/wippyai/opcua-bridge/datasource"
	"github.com/wippyai/opcua-bridge/dispatch"
	"github.com/wippyai/opcua-bridge/metrics"
	"github.com/wippyai/opcua-bridge/resolver"
	"github.com/wippyai/opcua-bridge/transcoder"
)

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: uabind layout -config <file.yaml> -type <name> [-elements n]")
	fmt.Fprintln(os.Stderr, "       uabind run -config <file.yaml> [-cycles n] [-interval d] [-metrics addr] [-v]")
	fmt.Fprintln(os.Stderr, "       uabind run -config <file.yaml> -i  (interactive monitor)")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "layout":
		err = layoutCmd(os.Args[2:])
	case "run":
		err = runCmd(os.Args[2:])
	case "-h", "-help", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func layoutCmd(args []string) error {
	fs := flag.NewFlagSet("layout", flag.ExitOnError)
	var (
		cfgFile  = fs.String("config", "", "Path to configuration file")
		typeName = fs.String("type", "", "Structure type to flatten")
		elements = fs.Uint("elements", 1, "Top-level instance count")
		plain    = fs.Bool("plain", false, "Print the raw table without styling")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgFile == "" || *typeName == "" {
		usage()
		return fmt.Errorf("layout needs -config and -type")
	}

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return err
	}
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	l, err := transcoder.BuildLayout(reg, *typeName, uint32(*elements))
	if err != nil {
		return err
	}

	if *plain {
		fmt.Print(l.String())
		return nil
	}
	fmt.Println(renderLayout(l))
	return nil
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	var (
		cfgFile     = fs.String("config", "", "Path to configuration file")
		cycles      = fs.Int("cycles", 10, "Number of cycles to run (0 runs until interrupted)")
		interval    = fs.Duration("interval", 100*time.Millisecond, "Cycle interval")
		metricsAddr = fs.String("metrics", "", "Serve prometheus metrics on this address")
		verbose     = fs.Bool("v", false, "Verbose logging")
		interactive = fs.Bool("i", false, "Interactive mode with TUI")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cfgFile == "" {
		usage()
		return fmt.Errorf("run needs -config")
	}

	log := zap.NewNop()
	if *verbose && !*interactive {
		dev, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		log = dev
		defer func() { _ = log.Sync() }()
	}
	resolver.SetLogger(log)
	client.SetLogger(log)
	dispatch.SetLogger(log)
	datasource.SetLogger(log)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	if *metricsAddr != "" {
		srv := &http.Server{
			Addr:              *metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sim, err := simulate(cfg)
	if err != nil {
		return fmt.Errorf("build simulated server: %w", err)
	}

	src, err := datasource.Open(ctx, cfg, sim, datasource.Options{Logger: log, Metrics: m})
	if err != nil {
		return err
	}
	defer src.Shutdown(context.Background())

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("interactive mode needs a terminal")
		}
		return runInteractive(ctx, src, sim, *interval)
	}

	fmt.Printf("Endpoint: %s (simulated)\n", cfg.Endpoint)
	fmt.Printf("Mode: %s\n", cfg.Mode)
	fmt.Printf("Signals: %d\n\n", len(src.Signals()))

	if *cycles == 0 {
		err := src.Run(ctx, *interval, func(err error) {
			if err != nil {
				fmt.Printf("cycle failed: %v\n", err)
			}
		})
		if err == context.Canceled {
			return nil
		}
		return err
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for i := 1; i <= *cycles; i++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		err := src.Transfer(ctx)
		fmt.Printf("cycle %d: %s\n", i, metrics.Status(err))
		if err != nil {
			fmt.Printf("  %v\n", err)
		}
	}

	fmt.Println()
	for _, name := range src.Signals() {
		h, _ := src.Handle(name)
		b, _ := src.Session().Binding(h)
		fmt.Printf("  %-24s %s\n", name, formatBinding(b, src.Session()))
	}
	return nil
}
