package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	progressbar "github.com/schollz/progressbar/v3"

	"github.com/packbridge/packbridge/core/backend"
	"github.com/packbridge/packbridge/core/infra/bus"
	"github.com/packbridge/packbridge/core/infra/config"
	"github.com/packbridge/packbridge/core/infra/locks"
	"github.com/packbridge/packbridge/core/infra/logging"
	"github.com/packbridge/packbridge/core/infra/metrics"
	"github.com/packbridge/packbridge/core/publish/deploy"
)

func runPublishCmd(args []string) {
	fs := newFlagSet("publish")
	id := fs.String("id", "", "package id")
	name := fs.String("name", "", "package display name")
	publisher := fs.String("publisher", "", "package publisher")
	force := fs.Bool("force", false, "publish even when the artifact already exists")
	available := fs.String("available", string(deploy.AvailabilityNone), "available install mode (None|User|Device|Both)")
	workDir := fs.String("work-dir", "", "working directory (default: temp dir)")
	noProgress := fs.Bool("no-progress", false, "disable the upload progress bar")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.ParseArgs(args)

	if strings.TrimSpace(*id) == "" || strings.TrimSpace(*name) == "" {
		fail("--id and --name required")
	}
	mode, ok := deploy.ParseAvailability(*available)
	if !ok {
		fail(fmt.Sprintf("invalid --available %q", *available))
	}

	orch, cleanup := buildOrchestrator(fs, *noProgress, *metricsAddr)
	defer cleanup()

	runner := &deploy.Runner{Orch: orch, WorkRoot: *workDir}
	pkgs := []deploy.Package{{ID: *id, DisplayName: *name, Publisher: *publisher}}
	runBatch(runner, pkgs, deploy.Options{Force: *force, AvailableInstall: mode})
}

func runBatchCmd(args []string) {
	fs := newFlagSet("batch")
	file := fs.String("file", "", "batch manifest yaml file")
	workDir := fs.String("work-dir", "", "working directory (default: temp dir)")
	noProgress := fs.Bool("no-progress", false, "disable the upload progress bar")
	metricsAddr := fs.String("metrics-addr", "", "serve Prometheus metrics on this address")
	fs.ParseArgs(args)

	if *file == "" {
		fail("--file required")
	}
	manifest, err := deploy.LoadManifest(*file)
	check(err)
	opts, err := manifest.Options()
	check(err)

	orch, cleanup := buildOrchestrator(fs, *noProgress, *metricsAddr)
	defer cleanup()

	runner := &deploy.Runner{Orch: orch, WorkRoot: *workDir}
	runBatch(runner, manifest.Packages, opts)
}

func runBatch(runner *deploy.Runner, pkgs []deploy.Package, opts deploy.Options) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := runner.Run(ctx, pkgs, opts)
	if summary != nil {
		printSummary(summary)
	}
	check(err)
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func printSummary(summary *deploy.Summary) {
	for _, unit := range summary.Units {
		line := fmt.Sprintf("%-8s %s", unit.Status, unit.PackageID)
		if unit.Error != "" {
			line += "  (" + unit.Error + ")"
		}
		fmt.Println(line)
	}
	fmt.Printf("%d succeeded, %d failed, %d skipped\n", summary.Success, summary.Failed, summary.Skipped)
}

// buildOrchestrator assembles the publishing pipeline from flags and
// environment configuration. The returned cleanup closes external
// connections.
func buildOrchestrator(fs *flagSet, noProgress bool, metricsAddr string) (*deploy.Orchestrator, func()) {
	cfg := config.Load()
	cleanup := func() {}

	var tokens backend.TokenSource
	switch {
	case strings.TrimSpace(*fs.token) != "":
		tokens = backend.StaticToken(strings.TrimSpace(*fs.token))
	case cfg.Token != "":
		tokens = backend.StaticToken(cfg.Token)
	default:
		tokens = backend.KeyringToken{}
	}

	client := backend.New(strings.TrimRight(*fs.baseURL, "/"), tokens)
	orch := deploy.New(client, cfg.DescriptionTag)
	orch.Icons = deploy.DirIconResolver{Dir: cfg.IconDir}

	orch.Uploader.ChunkSize = cfg.ChunkSize
	orch.Uploader.RenewalThreshold = cfg.RenewalThreshold
	orch.Uploader.BlockPutRetries = cfg.BlockPutRetries
	orch.Waiter.Interval = cfg.PollInterval
	orch.Waiter.Attempts = cfg.PollAttempts

	prom := metrics.NewProm("packbridge")
	orch.Metrics = prom
	orch.Uploader.Metrics = prom
	orch.Waiter.Metrics = prom
	if metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				logging.Warn("cli", "metrics server stopped", "error", err)
			}
		}()
	}

	if cfg.RedisURL != "" {
		store, err := locks.NewRedisStore(cfg.RedisURL)
		check(err)
		orch.Reconciler.Locks = store
	}
	if cfg.NATSURL != "" {
		events, err := bus.NewNatsBus(cfg.NATSURL)
		check(err)
		orch.Events = events
		cleanup = events.Close
	}

	if !noProgress {
		var bar *progressbar.ProgressBar
		orch.Uploader.Progress = func(done, total int64) {
			if bar == nil {
				bar = progressbar.DefaultBytes(total, "uploading")
			}
			_ = bar.Set64(done)
		}
	}
	return orch, cleanup
}
