// Package pipeline orchestrates the daily update: fetch finalized
// scoreboards, ingest them as result rows, then rebuild the forecast
// table's derived fields. It assumes a single writer per store; mutual
// exclusion across concurrent runs is the scheduler's job.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"sportseval/ingestion/internal/cache"
	"sportseval/ingestion/internal/config"
	"sportseval/ingestion/internal/eval"
	"sportseval/ingestion/internal/ingest"
	"sportseval/ingestion/internal/match"
	"sportseval/ingestion/internal/metrics"
	"sportseval/ingestion/internal/models"
	"sportseval/ingestion/internal/repository"
	"sportseval/ingestion/internal/source"
)

// Pipeline wires the source client, the per-sport ingestion writers and
// the derived-field computer together
type Pipeline struct {
	cfg       *config.Config
	db        *repository.Database
	client    *source.Client
	extractor source.Extractor
	redis     *cache.RedisCache
}

// New creates a pipeline. The redis cache may be nil; identity indexes
// are then rebuilt from the database on every run.
func New(cfg *config.Config, db *repository.Database, client *source.Client, redis *cache.RedisCache) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		db:        db,
		client:    client,
		extractor: source.ScoreboardExtractor{},
		redis:     redis,
	}
}

// forecastSource returns the forecast table as a match source for sports
// that have forecasts; other sports ingest with unresolved identities.
func (p *Pipeline) forecastSource(sport string) match.ForecastSource {
	if sport == p.cfg.ForecastSport {
		return p.db.Forecasts
	}
	return nil
}

func (p *Pipeline) writer(sport string) (*ingest.Writer, *repository.ResultRepository, error) {
	results, err := p.db.Results(sport)
	if err != nil {
		return nil, nil, err
	}
	builder := match.NewBuilder(sport, p.forecastSource(sport), p.redis)
	return ingest.NewWriter(sport, results, builder), results, nil
}

// RunDailyUpdate fetches and ingests one sport's finalized games for one
// date, then recomputes derived fields when the sport carries forecasts
// and new rows arrived. A summary is returned even on partial failure;
// only a store-level fault aborts without one.
func (p *Pipeline) RunDailyUpdate(ctx context.Context, sport string, date time.Time) (ingest.Summary, error) {
	var summary ingest.Summary

	writer, results, err := p.writer(sport)
	if err != nil {
		return summary, err
	}

	if err := results.EnsureTable(ctx); err != nil {
		metrics.RecordDailyUpdate(sport, "error")
		return summary, fmt.Errorf("failed to prepare results table: %w", err)
	}

	scoreboard, err := p.client.FetchScoreboard(ctx, sport, date)
	if err != nil {
		// A missing or unreachable day yields zero records, it does not
		// fail the run
		log.Warn().
			Err(err).
			Str("sport", sport).
			Str("date", date.Format(models.GameDateFormat)).
			Msg("Scoreboard fetch failed, skipping day")
		metrics.RecordError("source", "transient")
		metrics.RecordDailyUpdate(sport, "skipped")
		return summary, nil
	}

	records := p.extractor.Extract(scoreboard, date)
	if len(records) == 0 {
		log.Info().
			Str("sport", sport).
			Str("date", date.Format(models.GameDateFormat)).
			Msg("No finalized games for date")
		metrics.RecordDailyUpdate(sport, "success")
		return summary, nil
	}

	summary = writer.Ingest(ctx, records, true)

	if sport == p.cfg.ForecastSport && summary.Inserted > 0 {
		affected, err := p.RunRecompute(ctx, sport, eval.Normal())
		if err != nil {
			metrics.RecordDailyUpdate(sport, "error")
			return summary, fmt.Errorf("derived-field recompute failed: %w", err)
		}
		log.Info().Int("rows_affected", affected).Str("sport", sport).Msg("Post-ingest recompute complete")
	}

	metrics.RecordDailyUpdate(sport, "success")
	return summary, nil
}

// RunRecompute rebuilds derived fields on the forecast table from the
// sport's resolved results, then logs evaluation coverage
func (p *Pipeline) RunRecompute(ctx context.Context, sport string, scope eval.Scope) (int, error) {
	if sport != p.cfg.ForecastSport {
		return 0, fmt.Errorf("no forecast table configured for sport: %q", sport)
	}

	results, err := p.db.Results(sport)
	if err != nil {
		return 0, err
	}

	computer := eval.NewComputer(p.db.Forecasts, results)
	affected, err := computer.Recompute(ctx, scope)
	if err != nil {
		return 0, err
	}

	if cov, err := p.db.Forecasts.EvalCoverage(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to aggregate eval coverage")
	} else {
		log.Info().
			Int("total", cov.Total).
			Int("with_result", cov.WithResult).
			Int("tenki_evaluated", cov.TenkiEvaluated).
			Int("tenki_correct", cov.TenkiCorrect).
			Int("kalshi_evaluated", cov.KalshiEvaluated).
			Int("kalshi_correct", cov.KalshiCorrect).
			Msg("Forecast evaluation coverage")
	}

	return affected, nil
}

// RunAllSports runs the daily update for every configured sport. A failed
// sport is logged and collected; it never aborts the remaining sports.
func (p *Pipeline) RunAllSports(ctx context.Context, date time.Time) (map[string]ingest.Summary, error) {
	summaries := make(map[string]ingest.Summary, len(p.cfg.Sports))
	var failed []string
	for _, sport := range p.cfg.Sports {
		summary, err := p.RunDailyUpdate(ctx, sport, date)
		if err != nil {
			log.Error().
				Err(err).
				Str("sport", sport).
				Str("date", date.Format(models.GameDateFormat)).
				Msg("Daily update failed")
			failed = append(failed, sport)
		}
		summaries[sport] = summary
	}
	if len(failed) > 0 {
		return summaries, fmt.Errorf("daily update failed for: %v", failed)
	}
	return summaries, nil
}
