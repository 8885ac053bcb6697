// Command seed fills the local gateway database with demo confessions.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/Rylogix/VentBoard/internal/config"
	"github.com/Rylogix/VentBoard/internal/database"
	"github.com/Rylogix/VentBoard/internal/seed"
)

func main() {
	opts := seed.DefaultOptions
	flag.IntVar(&opts.Posts, "posts", opts.Posts, "Number of confessions to create")
	flag.IntVar(&opts.MaxReplies, "replies", opts.MaxReplies, "Maximum replies per confession")
	flag.Float64Var(&opts.NamedRatio, "named", opts.NamedRatio, "Share of posts and replies with a display name")
	flag.IntVar(&opts.MaxDays, "days", opts.MaxDays, "Spread creation times over this many days")
	flag.Int64Var(&opts.Seed, "seed", 0, "Random seed (0 for random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Gateway != config.GatewayLocal {
		log.Printf("GATEWAY is %q; seeding the local database anyway", cfg.Gateway)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() { _ = database.Close(db) }()

	ctx := context.Background()
	s := seed.NewSeeder(db, opts)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	posts, replies, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d confessions and %d replies", posts, replies)
}
