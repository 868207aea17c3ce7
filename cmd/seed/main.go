// Command main runs the demo data seeder.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"classifieds/internal/bootstrap"
	"classifieds/internal/config"
	"classifieds/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 20, "Number of users to create")
	numListings := flag.Int("listings", 100, "Number of listings to create")
	reported := flag.Float64("reported", 0.2, "Share of listings that receive demo reports")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for repeatable data")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Printf("Target: %d users, %d listings, reported=%.2f, clean=%v\n", *numUsers, *numListings, *reported, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(db, bootstrap.NewServices(cfg, db), *randSeed)
	if *shouldClean {
		if err := s.ClearAll(); err != nil {
			log.Fatalf("❌ Cleanup failed: %v", err)
		}
	}

	if _, err := s.Run(context.Background(), seed.Options{
		NumUsers:      *numUsers,
		NumListings:   *numListings,
		ReportedShare: *reported,
	}); err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with demo listings.")
}
