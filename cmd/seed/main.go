// Command seed fills the comment board with demo data.
package main

import (
	"context"
	"flag"
	"log"

	"commentboard/internal/config"
	"commentboard/internal/database"
	"commentboard/internal/seed"
)

func main() {
	numComments := flag.Int("comments", 25, "Number of comments to create")
	maxLikes := flag.Int("max-likes", 5, "Maximum likes per comment")
	shouldClean := flag.Bool("clean", true, "Remove existing comments before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed for reproducible data (0 = time based)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	s := seed.NewSeeder(db, seed.Options{
		Comments:  *numComments,
		MaxLikes:  *maxLikes,
		Seed:      *randSeed,
		VoterSalt: cfg.VoterIDSalt,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	created, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed after %d comments: %v", len(created), err)
	}
	log.Printf("Seeded %d comments", len(created))
}
