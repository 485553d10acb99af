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

	"reachgraph/internal/core/app"
	"reachgraph/internal/core/config"
	"reachgraph/internal/engine/graph"
)

var (
	configPath   = flag.String("config", "./reachgraph.toml", "Path to config file")
	once         = flag.Bool("once", false, "Run single scan and exit")
	trace        = flag.Bool("trace", false, "Trace a dependency path between two node ids")
	impactTarget = flag.String("impact", "", "Report the blast radius of a node id")
	nodeTarget   = flag.String("node", "", "Print one node with its incident edges")
	deadCode     = flag.Bool("deadcode", false, "Report declarations unreachable from the entry set")
	validateOnly = flag.Bool("validate", false, "Cross-check scene wiring and exit non-zero on errors")
	dotPath      = flag.String("dot", "", "Write a Graphviz export to this path")
	tsvPath      = flag.String("tsv", "", "Write a TSV edge export to this path")
	verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	version      = flag.Bool("version", false, "Print version and exit")
)

const VERSION = "1.0.0"

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("reachgraph v%s\n", VERSION)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		if *configPath != "./reachgraph.toml" {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		// No config next to the project is fine; run on defaults.
		cfg = config.Default()
	}

	logLevel := levelFromConfig(cfg.Logging.Level)
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if *trace {
		if flag.NArg() != 2 {
			fmt.Fprintln(os.Stderr, "trace mode requires two node ids: reachgraph --trace <from> <to>")
			os.Exit(1)
		}
	} else if flag.NArg() > 0 {
		cfg.ProjectRoot = flag.Arg(0)
		cfg.WatchPaths = []string{flag.Arg(0)}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		slog.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	a.StartMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if err := a.InitialScan(ctx); err != nil {
		slog.Error("initial scan failed", "error", err)
		os.Exit(1)
	}
	slog.Info("initial scan complete", "duration", time.Since(start))

	switch {
	case *trace:
		path, err := a.Queries.FindPath(ctx, graph.NodeID(flag.Arg(0)), graph.NodeID(flag.Arg(1)), 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(formatPath(path))
		os.Exit(0)
	case *impactTarget != "":
		report, err := a.Queries.Impact(ctx, graph.NodeID(*impactTarget), graph.DirOutgoing, 0)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(formatImpact(report))
		os.Exit(0)
	case *nodeTarget != "":
		record, ok := a.Store.Snapshot().NodeRecord(graph.NodeID(*nodeTarget))
		if !ok {
			fmt.Fprintf(os.Stderr, "node %q not found\n", *nodeTarget)
			os.Exit(1)
		}
		fmt.Print(formatNodeRecord(record))
		os.Exit(0)
	case *deadCode:
		report, err := a.Queries.DeadCode(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(formatDeadCode(a.Store.Snapshot(), report))
		os.Exit(0)
	case *validateOnly:
		report, err := a.Queries.Validate(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		fmt.Print(formatValidation(report))
		if report.Errors() > 0 {
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := writeExports(ctx, a); err != nil {
		slog.Error("failed to write exports", "error", err)
	}
	printSummary(ctx, a, time.Since(start))

	if *once {
		os.Exit(0)
	}

	if err := a.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}
	slog.Info("watching for changes", "paths", cfg.WatchPaths)

	<-ctx.Done()
	if err := a.Close(); err != nil {
		slog.Warn("watcher shutdown failed", "error", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.StopMetrics(shutdownCtx); err != nil {
		slog.Warn("metrics shutdown failed", "error", err)
	}
}

func levelFromConfig(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
