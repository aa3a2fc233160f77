// Package eval recomputes result-dependent fields on forecast rows joined
// to game results by game identifier. The store disallows fine-grained
// mutation of recently appended rows, so persistence is a snapshot read,
// an in-memory transform and one atomic whole-table swap.
package eval

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"sportseval/ingestion/internal/metrics"
	"sportseval/ingestion/internal/models"
)

// Scope controls which rows a recompute pass may overwrite. Under the
// normal scope a non-null derived field is preserved; a forcing scope
// authorizes overwriting rows whose result date the predicate matches.
type Scope struct {
	force func(gameDate time.Time) bool
}

// Normal returns the default scope: write only null derived fields
func Normal() Scope {
	return Scope{}
}

// ForceDate returns a scope that overwrites derived fields on rows whose
// game result falls on the given calendar date. Used for one-time
// corrections of a known-bad batch.
func ForceDate(date time.Time) Scope {
	want := date.Format(models.GameDateFormat)
	return ForcePredicate(func(d time.Time) bool {
		return d.Format(models.GameDateFormat) == want
	})
}

// ForcePredicate returns a scope forcing every row whose result date the
// predicate matches
func ForcePredicate(f func(gameDate time.Time) bool) Scope {
	return Scope{force: f}
}

// Forces reports whether the scope authorizes overwriting rows joined to
// a result on the given date
func (s Scope) Forces(gameDate time.Time) bool {
	return s.force != nil && s.force(gameDate)
}

// ForecastStore is the slice of the forecast store the computer needs:
// a full snapshot read and one atomic whole-table replacement. A failed
// replacement must leave the original table intact.
type ForecastStore interface {
	Snapshot(ctx context.Context) ([]models.ForecastRecord, error)
	ReplaceAll(ctx context.Context, rows []models.ForecastRecord) error
}

// ResultSource supplies game results that carry a resolved game identifier
type ResultSource interface {
	ListResolved(ctx context.Context) ([]models.GameResult, error)
}

// Computer recomputes the derived-field block of the forecast table
type Computer struct {
	forecasts ForecastStore
	results   ResultSource
}

// NewComputer creates a derived-field computer
func NewComputer(forecasts ForecastStore, results ResultSource) *Computer {
	return &Computer{forecasts: forecasts, results: results}
}

// Recompute joins forecast rows to results by game id and writes derived
// fields under the preserve-unless-forced-or-null policy. Returns the
// number of rows whose derived block changed. When nothing changed the
// table is not touched, which makes back-to-back runs idempotent. Any
// failure before the swap commits leaves the forecast table unchanged.
func (c *Computer) Recompute(ctx context.Context, scope Scope) (int, error) {
	start := time.Now()

	rows, err := c.forecasts.Snapshot(ctx)
	if err != nil {
		metrics.RecordRecompute("failure", 0, time.Since(start).Seconds())
		return 0, fmt.Errorf("failed to snapshot forecasts: %w", err)
	}

	results, err := c.results.ListResolved(ctx)
	if err != nil {
		metrics.RecordRecompute("failure", 0, time.Since(start).Seconds())
		return 0, fmt.Errorf("failed to list resolved results: %w", err)
	}

	byGameID := make(map[string]models.GameResult, len(results))
	for _, r := range results {
		byGameID[r.GameID.String] = r
	}

	affected := 0
	for i := range rows {
		result, ok := byGameID[rows[i].GameID]
		if !ok {
			// Left join: forecasts without a result pass through untouched
			continue
		}

		updated, changed := applyResult(rows[i], result, scope.Forces(result.GameDate))
		rows[i] = updated
		if changed {
			affected++
		}
	}

	if affected == 0 {
		log.Info().Msg("All forecast derived fields already populated, nothing to rebuild")
		metrics.RecordRecompute("success", 0, time.Since(start).Seconds())
		return 0, nil
	}

	if err := c.forecasts.ReplaceAll(ctx, rows); err != nil {
		metrics.RecordRecompute("failure", 0, time.Since(start).Seconds())
		return 0, fmt.Errorf("failed to rebuild forecast table: %w", err)
	}

	log.Info().
		Int("rows_affected", affected).
		Int("forecast_rows", len(rows)).
		Int("resolved_results", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Forecast derived fields rebuilt")
	metrics.RecordRecompute("success", affected, time.Since(start).Seconds())

	return affected, nil
}

// applyResult computes the derived block for one forecast row from its
// joined game result. Each field is written only when forced or when the
// stored value is null; changed reports whether any field's value moved.
func applyResult(rec models.ForecastRecord, res models.GameResult, force bool) (models.ForecastRecord, bool) {
	changed := false

	set := func(field *sql.NullInt32, v sql.NullInt32) {
		if !force && field.Valid {
			return
		}
		if field.Valid != v.Valid || (v.Valid && field.Int32 != v.Int32) {
			changed = true
		}
		*field = v
	}

	var homeWin int32
	if res.HomeScore > res.AwayScore {
		homeWin = 1
	}

	var over int32
	if rec.PointsTotalOver.Valid && float64(res.PointsTotal) > rec.PointsTotalOver.Float64 {
		over = 1
	}

	set(&rec.ActualTeamAwayPoints, nullInt32(int32(res.AwayScore)))
	set(&rec.ActualTeamHomePoints, nullInt32(int32(res.HomeScore)))
	set(&rec.ActualPointsTotal, nullInt32(int32(res.PointsTotal)))
	set(&rec.ActualTeamHomeWin, nullInt32(homeWin))
	set(&rec.ActualPointsTotalOver, nullInt32(over))
	set(&rec.TenkiBetCorrect, betCorrect(rec.TenkiHomeWinnerBet, rec.TenkiPointsOverBet, homeWin, over))
	set(&rec.KalshiBetCorrect, betCorrect(rec.KalshiHomeWinnerBet, rec.KalshiPointsOverBet, homeWin, over))

	return rec, changed
}

// betCorrect evaluates one party's bet against the actual outcome.
// Precedence: a set winner bet is judged on the winner outcome even when a
// totals flag is also set; a totals flag of 1 is an over bet, 0 an under
// bet; with no flags set correctness stays null.
func betCorrect(homeWinnerBet, pointsOverBet sql.NullInt32, homeWin, over int32) sql.NullInt32 {
	switch {
	case homeWinnerBet.Valid && homeWinnerBet.Int32 == 1:
		return nullInt32(boolInt32(homeWin == 1))
	case pointsOverBet.Valid && pointsOverBet.Int32 == 1:
		return nullInt32(boolInt32(over == 1))
	case pointsOverBet.Valid && pointsOverBet.Int32 == 0:
		return nullInt32(boolInt32(over == 0))
	default:
		return sql.NullInt32{}
	}
}

func nullInt32(v int32) sql.NullInt32 {
	return sql.NullInt32{Int32: v, Valid: true}
}

func boolInt32(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
