package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/jasonCodeSpace/articles-x-sub002/pkg/config"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/domain"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/ingest"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/llm"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/quota"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/repository"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/scheduler"
	"github.com/jasonCodeSpace/articles-x-sub002/pkg/timeline"
	"github.com/jasonCodeSpace/articles-x-sub002/server"
)

// Opts with all CLI options
type Opts struct {
	Config string `short:"c" long:"config" env:"CONFIG" default:"config.yml" description:"config file path"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(opts.Config)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	setupLog(opts.Debug, opts.NoColor, cfg.Upstream.APIKey, cfg.LLM.APIKey, cfg.Server.TriggerSecret)

	log.Printf("[INFO] starting xarticles version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	if err := run(ctx, cfg, opts.Debug); err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(1)
	}

	log.Print("[INFO] shutdown complete")
}

// run wires components and blocks until the context is canceled
func run(ctx context.Context, cfg *config.Config, debug bool) error {
	repos, err := repository.NewRepositories(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Database.ConnMaxLifetime) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer func() {
		if err := repos.Close(); err != nil {
			log.Printf("[WARN] failed to close database: %v", err)
		}
	}()

	// seed the list registry from config so runs have lists to resolve
	seed := make([]domain.List, 0, len(cfg.Ingest.ListIDs))
	for _, id := range cfg.Ingest.ListIDs {
		seed = append(seed, domain.List{ListID: id, Active: true})
	}
	if err := repos.List.EnsureLists(ctx, seed); err != nil {
		return fmt.Errorf("seed lists: %w", err)
	}

	gate := quota.New(repos.Usage, cfg.Quota.DailyLimits)

	client := timeline.NewClient(timeline.Config{
		BaseURL:      cfg.Upstream.BaseURL,
		APIKey:       cfg.Upstream.APIKey,
		APIHost:      cfg.Upstream.APIHost,
		MaxPages:     cfg.Upstream.MaxPages,
		Timeout:      cfg.Upstream.Timeout,
		CallInterval: cfg.Upstream.CallInterval,
	}, gate)

	ingestor := ingest.NewIngestor(client, repos.List, ingest.NewUpserter(repos.Article), ingest.Config{
		DefaultListIDs: cfg.Ingest.ListIDs,
		ListDelay:      cfg.Ingest.ListDelay,
	})

	var enricher scheduler.Enricher
	if cfg.LLM.Enabled {
		enricher = llm.NewSummarizer(cfg.GetLLMConfig())
		log.Printf("[INFO] llm enrichment enabled, model %s", cfg.LLM.Model)
	}

	sched := scheduler.NewScheduler(ingestor, repos.Article, enricher, scheduler.Config{
		IngestInterval: cfg.Schedule.IngestInterval,
		EnrichInterval: cfg.Schedule.EnrichInterval,
		MaxWorkers:     cfg.Schedule.MaxWorkers,
		EnrichBatch:    cfg.Schedule.EnrichBatch,
	})
	sched.Start(ctx)
	defer sched.Stop()

	srv := server.New(cfg, repos.Article, repos.List, gate, sched, revision, debug)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func setupLog(dbg, noColor bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.CallerFile, lgr.CallerFunc, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	if !noColor {
		colorizer := lgr.Mapper{
			ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
			WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
			InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
			DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
			CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
			TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
		}
		logOpts = append(logOpts, lgr.Map(colorizer))
	}

	secrets := make([]string, 0, len(secs))
	for _, s := range secs {
		if s != "" {
			secrets = append(secrets, s)
		}
	}
	if len(secrets) > 0 {
		logOpts = append(logOpts, lgr.Secret(secrets...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
