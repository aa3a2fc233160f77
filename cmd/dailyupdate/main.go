// Command dailyupdate runs one ingestion pass from the command line: fetch
// finalized games for a date, ingest them, and recompute forecast derived
// fields. It always prints a numeric summary, partial failures included.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"sportseval/ingestion/internal/cache"
	"sportseval/ingestion/internal/config"
	"sportseval/ingestion/internal/eval"
	"sportseval/ingestion/internal/models"
	"sportseval/ingestion/internal/pipeline"
	"sportseval/ingestion/internal/repository"
	"sportseval/ingestion/internal/source"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	sportFlag := flag.String("sport", "all", "sport to update (nba|nhl|nfl|all)")
	dateFlag := flag.String("date", "", "game date YYYY-MM-DD (default: yesterday)")
	recomputeOnly := flag.Bool("recompute-only", false, "skip ingestion, only recompute forecast derived fields")
	forceDate := flag.String("force-date", "", "overwrite already-populated derived fields for this date (YYYY-MM-DD)")
	flag.Parse()

	setupLogger()

	ctx := context.Background()
	cfg := config.MustLoad()

	date := time.Now().UTC().AddDate(0, 0, -1)
	if *dateFlag != "" {
		parsed, err := time.Parse(models.GameDateFormat, *dateFlag)
		if err != nil {
			log.Fatal().Err(err).Str("date", *dateFlag).Msg("Invalid -date")
		}
		date = parsed
	}

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	}, cfg.ForecastTable, cfg.Sports)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	redisCache, err := cache.NewRedisCache(cache.Config{
		Host:     cfg.RedisHost,
		Port:     strconv.Itoa(cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, time.Duration(cfg.CacheTTLIdentityIndex)*time.Second)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		redisCache = nil
	} else {
		defer redisCache.Close()
	}

	client := source.NewClient(cfg.ScoreboardBaseURL, cfg.ScoreboardTimeout)
	p := pipeline.New(cfg, db, client, redisCache)

	if *recomputeOnly {
		os.Exit(runRecompute(ctx, cfg, p, *forceDate))
	}

	sports := cfg.Sports
	if *sportFlag != "all" {
		sports = []string{*sportFlag}
	}

	exitCode := 0
	for _, sport := range sports {
		summary, err := p.RunDailyUpdate(ctx, sport, date)
		fmt.Printf("%s %s: inserted=%d skipped=%d errors=%d\n",
			sport, date.Format(models.GameDateFormat),
			summary.Inserted, summary.Skipped, summary.Errors)
		if err != nil {
			log.Error().Err(err).Str("sport", sport).Msg("Daily update failed")
			exitCode = 1
		}
	}

	if *forceDate != "" {
		if code := runRecompute(ctx, cfg, p, *forceDate); code != 0 {
			exitCode = code
		}
	}

	os.Exit(exitCode)
}

func runRecompute(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, forceDate string) int {
	scope := eval.Normal()
	if forceDate != "" {
		parsed, err := time.Parse(models.GameDateFormat, forceDate)
		if err != nil {
			log.Fatal().Err(err).Str("date", forceDate).Msg("Invalid -force-date")
		}
		scope = eval.ForceDate(parsed)
	}

	affected, err := p.RunRecompute(ctx, cfg.ForecastSport, scope)
	fmt.Printf("recompute %s: rows_affected=%d\n", cfg.ForecastSport, affected)
	if err != nil {
		log.Error().Err(err).Msg("Recompute failed")
		return 1
	}
	return 0
}

func setupLogger() {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	})

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}
