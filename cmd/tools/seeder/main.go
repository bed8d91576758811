package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/noah-isme/parkconnect-api/internal/app"
	"github.com/noah-isme/parkconnect-api/internal/config"
	"github.com/noah-isme/parkconnect-api/internal/obs"
	"github.com/noah-isme/parkconnect-api/internal/repo"
)

func main() {
	file := flag.String("file", "", "YAML seed file (defaults to the built-in demo data)")
	migrate := flag.Bool("migrate", true, "apply schema migrations before seeding")
	flag.Parse()

	logger := obs.NewLogger("console", "info").With().Str("component", "seeder").Logger()
	if err := godotenv.Load(); err != nil {
		logger.Info().Msg("no .env file found, relying on environment variables")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}

	seed, err := loadSeed(*file)
	if err != nil {
		logger.Fatal().Err(err).Msg("load seed")
	}

	if *migrate {
		if err := repo.Migrate(databaseURL); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := app.OpenPostgres(ctx, &config.Config{DatabaseURL: databaseURL})
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer pool.Close()

	inserted, err := (&repo.Postgres{Pool: pool}).ImportSeed(ctx, seed)
	if err != nil {
		logger.Fatal().Err(err).Int("inserted", inserted).Msg("seed bookings")
	}
	logger.Info().
		Int("inserted", inserted).
		Int("skipped", len(seed.Bookings)-inserted).
		Interface("pricing", seed.Pricing).
		Msg("seeding completed")
}

func loadSeed(path string) (repo.Seed, error) {
	if path == "" {
		return repo.DemoSeed()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return repo.Seed{}, err
	}
	return repo.ParseSeed(data)
}
