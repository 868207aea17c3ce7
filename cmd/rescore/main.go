// Command main recalculates every listing's quality score and recounts
// every listing's reports. Safe to run repeatedly.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classifieds/internal/bootstrap"
	"classifieds/internal/config"
	"classifieds/internal/observability"
)

func main() {
	concurrency := flag.Int("concurrency", 0, "Worker count (defaults to RESCORE_CONCURRENCY)")
	skipScores := flag.Bool("skip-scores", false, "Only recount reports")
	skipReports := flag.Bool("skip-reports", false, "Only recalculate quality scores")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *concurrency <= 0 {
		*concurrency = cfg.RescoreConcurrency
	}

	shutdownTracing, err := observability.InitTracing(bootstrap.TracingConfig(cfg, "classifieds-rescore"))
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, _, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	svcs := bootstrap.NewServices(cfg, db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	if !*skipScores {
		sum, err := svcs.Quality.RecalculateAll(ctx, *concurrency)
		if err != nil {
			log.Fatalf("❌ Rescore failed after %d listings: %v", sum.Scored, err)
		}
		log.Printf("📊 Scored %d listings (%d vanished mid-run)", sum.Scored, sum.Missing)
	}

	if !*skipReports {
		sum, err := svcs.Moderator.RecountAll(ctx, *concurrency)
		if err != nil {
			log.Fatalf("❌ Report recount failed after %d listings: %v", sum.Checked, err)
		}
		log.Printf("🚩 Recounted %d listings, %d newly hidden", sum.Checked, sum.Hidden)
	}

	log.Printf("✨ Done in %s", time.Since(start).Round(time.Millisecond))
}
