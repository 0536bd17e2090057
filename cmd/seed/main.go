// Package main provides a CLI that seeds the training program catalog.
// Seeding is idempotent: programs and drills are matched by slug and order
// and updated in place.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"agent-arena/pkg/db"
	"agent-arena/pkg/logger"
	"agent-arena/pkg/models"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// CLI flags
var (
	configFile = flag.String("config", "", "Path to .env config file (optional)")
	dbPath     = flag.String("db", "", "Override ARENA_DB_PATH")
	dryRun     = flag.Bool("dry-run", false, "List the catalog without writing it")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	if *configFile != "" {
		if err := godotenv.Load(*configFile); err != nil {
			fmt.Printf("Failed to load config file %s: %v\n", *configFile, err)
			os.Exit(1)
		}
	} else {
		_ = godotenv.Load()
	}

	level := "info"
	if *verbose {
		level = "debug"
	}
	lg := logger.NewCategoryLogger(level, logger.Seeder, logger.Startup, false)

	path := *dbPath
	if path == "" {
		path = os.Getenv("ARENA_DB_PATH")
	}
	if path == "" {
		path = "arena.db"
	}

	programs := db.DefaultPrograms()

	if *dryRun {
		printCatalog(os.Stdout, programs)
		lg.Info().Int("programs", len(programs)).Msg("Dry run complete, nothing written")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, path, programs, lg); err != nil {
		lg.Fatal().Err(err).Msg("Seeding failed")
	}
}

// run seeds programs into the database at path and logs the resulting catalog.
func run(ctx context.Context, path string, programs []models.Program, lg zerolog.Logger) error {
	database, err := db.NewArenaDB(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	if err := database.SeedPrograms(ctx, programs); err != nil {
		return err
	}

	stored, err := database.ListPrograms(ctx)
	if err != nil {
		return fmt.Errorf("failed to list programs: %w", err)
	}

	for _, p := range stored {
		lg.Info().
			Str("slug", p.Slug).
			Str("challenge_type", string(p.ChallengeType)).
			Int("drills", len(p.Drills)).
			Msg("Program seeded")
	}
	lg.Info().Str("db_path", path).Int("programs", len(stored)).Msg("Seeding complete")

	return nil
}

func printCatalog(w io.Writer, programs []models.Program) {
	for _, p := range programs {
		fmt.Fprintf(w, "%s (%s) - %s\n", p.Title, p.Slug, p.ChallengeType)
		for _, d := range p.Drills {
			fmt.Fprintf(w, "  %2d. [%d] %s\n", d.OrderIndex, d.Difficulty, d.Title)
		}
	}
}
