package repository

import (
	"context"
	"fmt"
	"time"

	"sportseval/ingestion/internal/metrics"
	"sportseval/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// ForecastRepository handles forecast table database operations. Forecast
// rows are written by the external forecasting process; this repository
// only reads them and performs the whole-table rebuild that carries the
// derived fields.
type ForecastRepository struct {
	db    *Database
	table string
}

var forecastColumns = []string{
	"game_id", "game_date", "team_away", "team_home",
	"points_total_over",
	"tenki_team_home_winner_bet", "tenki_points_total_over_bet",
	"kalshi_team_home_winner_bet", "kalshi_points_total_over_bet",
	"actual_team_away_points", "actual_team_home_points", "actual_points_total",
	"actual_team_home_win", "actual_points_total_over",
	"tenki_bet_correct", "kalshi_bet_correct",
}

const forecastSelectColumns = `game_id, game_date, team_away, team_home,
	       points_total_over,
	       tenki_team_home_winner_bet, tenki_points_total_over_bet,
	       kalshi_team_home_winner_bet, kalshi_points_total_over_bet,
	       actual_team_away_points, actual_team_home_points, actual_points_total,
	       actual_team_home_win, actual_points_total_over,
	       tenki_bet_correct, kalshi_bet_correct`

// EnsureTable creates the forecast table if it does not exist. Production
// deployments already have it; this covers fresh environments.
func (r *ForecastRepository) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			game_id TEXT NOT NULL,
			game_date DATE NOT NULL,
			team_away TEXT NOT NULL,
			team_home TEXT NOT NULL,
			points_total_over DOUBLE PRECISION,
			tenki_team_home_winner_bet INTEGER,
			tenki_points_total_over_bet INTEGER,
			kalshi_team_home_winner_bet INTEGER,
			kalshi_points_total_over_bet INTEGER,
			actual_team_away_points INTEGER,
			actual_team_home_points INTEGER,
			actual_points_total INTEGER,
			actual_team_home_win INTEGER,
			actual_points_total_over INTEGER,
			tenki_bet_correct INTEGER,
			kalshi_bet_correct INTEGER
		)
	`, r.table)

	if _, err := r.db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.table, err)
	}

	return nil
}

// ListByDate retrieves forecast rows for one game date, the input for
// building a per-date identity index
func (r *ForecastRepository) ListByDate(ctx context.Context, gameDate time.Time) ([]models.ForecastRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE game_date = $1
	`, forecastSelectColumns, r.table)

	rows, err := r.db.Pool.Query(ctx, query, gameDate)
	if err != nil {
		metrics.RecordDBQuery("select", r.table, "error")
		return nil, fmt.Errorf("failed to get forecasts by date: %w", err)
	}
	metrics.RecordDBQuery("select", r.table, "success")
	defer rows.Close()

	return scanForecasts(rows)
}

// Snapshot retrieves every forecast row. The derived-field rebuild works
// on a full snapshot because the replacement table must carry all rows,
// touched or not.
func (r *ForecastRepository) Snapshot(ctx context.Context) ([]models.ForecastRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s`, forecastSelectColumns, r.table)

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		metrics.RecordDBQuery("select", r.table, "error")
		return nil, fmt.Errorf("failed to snapshot forecasts: %w", err)
	}
	metrics.RecordDBQuery("select", r.table, "success")
	defer rows.Close()

	return scanForecasts(rows)
}

// ReplaceAll atomically replaces the forecast table's contents. A shadow
// table is built and swapped in within one transaction; a failure at any
// point rolls back and leaves the original table untouched.
func (r *ForecastRepository) ReplaceAll(ctx context.Context, records []models.ForecastRecord) error {
	shadow := r.table + "_rebuild"

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin rebuild transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// A crashed prior run can leave the shadow table behind
	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE IF EXISTS %s`, shadow)); err != nil {
		return fmt.Errorf("failed to drop stale shadow table: %w", err)
	}

	createQuery := fmt.Sprintf(`CREATE TABLE %s (LIKE %s INCLUDING ALL)`, shadow, r.table)
	if _, err := tx.Exec(ctx, createQuery); err != nil {
		return fmt.Errorf("failed to create shadow table: %w", err)
	}

	copied, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{shadow},
		forecastColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]interface{}, error) {
			rec := records[i]
			return []interface{}{
				rec.GameID, rec.GameDate, rec.TeamAway, rec.TeamHome,
				rec.PointsTotalOver,
				rec.TenkiHomeWinnerBet, rec.TenkiPointsOverBet,
				rec.KalshiHomeWinnerBet, rec.KalshiPointsOverBet,
				rec.ActualTeamAwayPoints, rec.ActualTeamHomePoints, rec.ActualPointsTotal,
				rec.ActualTeamHomeWin, rec.ActualPointsTotalOver,
				rec.TenkiBetCorrect, rec.KalshiBetCorrect,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to copy rows into shadow table: %w", err)
	}
	if int(copied) != len(records) {
		return fmt.Errorf("shadow table copy incomplete: copied %d of %d rows", copied, len(records))
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TABLE %s`, r.table)); err != nil {
		return fmt.Errorf("failed to drop forecast table: %w", err)
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s RENAME TO %s`, shadow, r.table)); err != nil {
		return fmt.Errorf("failed to rename shadow table: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit rebuild transaction: %w", err)
	}

	log.Info().
		Str("table", r.table).
		Int("rows", len(records)).
		Msg("Forecast table rebuilt")

	return nil
}

// Coverage summarizes how far result evaluation has progressed. The
// evaluated counts cover bets with a non-null correctness verdict.
type Coverage struct {
	Total           int `json:"total"`
	WithResult      int `json:"with_result"`
	TenkiEvaluated  int `json:"tenki_evaluated"`
	TenkiCorrect    int `json:"tenki_correct"`
	KalshiEvaluated int `json:"kalshi_evaluated"`
	KalshiCorrect   int `json:"kalshi_correct"`
}

// EvalCoverage aggregates evaluation coverage over the whole forecast table
func (r *ForecastRepository) EvalCoverage(ctx context.Context) (Coverage, error) {
	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       COUNT(actual_points_total),
		       COUNT(tenki_bet_correct),
		       COUNT(*) FILTER (WHERE tenki_bet_correct = 1),
		       COUNT(kalshi_bet_correct),
		       COUNT(*) FILTER (WHERE kalshi_bet_correct = 1)
		FROM %s
	`, r.table)

	var cov Coverage
	err := r.db.Pool.QueryRow(ctx, query).Scan(
		&cov.Total, &cov.WithResult,
		&cov.TenkiEvaluated, &cov.TenkiCorrect,
		&cov.KalshiEvaluated, &cov.KalshiCorrect,
	)
	if err != nil {
		return Coverage{}, fmt.Errorf("failed to aggregate eval coverage: %w", err)
	}

	return cov, nil
}

func scanForecasts(rows pgx.Rows) ([]models.ForecastRecord, error) {
	var forecasts []models.ForecastRecord
	for rows.Next() {
		var rec models.ForecastRecord
		err := rows.Scan(
			&rec.GameID, &rec.GameDate, &rec.TeamAway, &rec.TeamHome,
			&rec.PointsTotalOver,
			&rec.TenkiHomeWinnerBet, &rec.TenkiPointsOverBet,
			&rec.KalshiHomeWinnerBet, &rec.KalshiPointsOverBet,
			&rec.ActualTeamAwayPoints, &rec.ActualTeamHomePoints, &rec.ActualPointsTotal,
			&rec.ActualTeamHomeWin, &rec.ActualPointsTotalOver,
			&rec.TenkiBetCorrect, &rec.KalshiBetCorrect,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan forecast: %w", err)
		}
		forecasts = append(forecasts, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating forecasts: %w", err)
	}

	return forecasts, nil
}
