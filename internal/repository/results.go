package repository

import (
	"context"
	"fmt"
	"time"

	"sportseval/ingestion/internal/metrics"
	"sportseval/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// ResultRepository handles game result database operations for one sport.
// Each sport writes to its own table; the table name is fixed at
// construction and validated as an identifier, never interpolated from
// request data.
type ResultRepository struct {
	db    *Database
	sport string
	table string
}

// Sport returns the sport key this repository serves
func (r *ResultRepository) Sport() string {
	return r.sport
}

// EnsureTable creates the results table and its date index if they do not exist
func (r *ResultRepository) EnsureTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			game_date DATE NOT NULL,
			home_team TEXT NOT NULL,
			away_team TEXT NOT NULL,
			home_score INTEGER NOT NULL,
			away_score INTEGER NOT NULL,
			points_total INTEGER NOT NULL,
			location TEXT NOT NULL,
			game_id TEXT,
			inserted_at TIMESTAMPTZ NOT NULL
		)
	`, r.table)

	if _, err := r.db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create %s table: %w", r.table, err)
	}

	indexQuery := fmt.Sprintf(
		`CREATE INDEX IF NOT EXISTS %s_game_date_idx ON %s (game_date)`,
		r.table, r.table,
	)
	if _, err := r.db.Pool.Exec(ctx, indexQuery); err != nil {
		return fmt.Errorf("failed to create %s date index: %w", r.table, err)
	}

	return nil
}

// Exists reports whether a result for the same date and team pair is already stored
func (r *ResultRepository) Exists(ctx context.Context, gameDate time.Time, homeTeam, awayTeam string) (bool, error) {
	query := fmt.Sprintf(`
		SELECT EXISTS (
			SELECT 1 FROM %s
			WHERE game_date = $1 AND home_team = $2 AND away_team = $3
		)
	`, r.table)

	var exists bool
	err := r.db.Pool.QueryRow(ctx, query, gameDate, homeTeam, awayTeam).Scan(&exists)
	if err != nil {
		metrics.RecordDBQuery("exists", r.table, "error")
		return false, fmt.Errorf("failed to check for existing result: %w", err)
	}
	metrics.RecordDBQuery("exists", r.table, "success")

	return exists, nil
}

// Insert appends a new game result
func (r *ResultRepository) Insert(ctx context.Context, result *models.GameResult) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			game_date, home_team, away_team, home_score, away_score,
			points_total, location, game_id, inserted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, r.table)

	err := r.db.Pool.QueryRow(
		ctx, query,
		result.GameDate, result.HomeTeam, result.AwayTeam, result.HomeScore, result.AwayScore,
		result.PointsTotal, result.Location, result.GameID, result.InsertedAt,
	).Scan(&result.ID)

	if err != nil {
		metrics.RecordDBQuery("insert", r.table, "error")
		return fmt.Errorf("failed to insert result: %w", err)
	}
	metrics.RecordDBQuery("insert", r.table, "success")

	log.Debug().
		Int("id", result.ID).
		Str("sport", r.sport).
		Str("home", result.HomeTeam).
		Str("away", result.AwayTeam).
		Msg("Result inserted")

	return nil
}

// GetByDate retrieves all results for a calendar date
func (r *ResultRepository) GetByDate(ctx context.Context, gameDate time.Time) ([]models.GameResult, error) {
	query := fmt.Sprintf(`
		SELECT id, game_date, home_team, away_team, home_score, away_score,
		       points_total, location, game_id, inserted_at
		FROM %s
		WHERE game_date = $1
		ORDER BY home_team
	`, r.table)

	rows, err := r.db.Pool.Query(ctx, query, gameDate)
	if err != nil {
		metrics.RecordDBQuery("select", r.table, "error")
		return nil, fmt.Errorf("failed to get results by date: %w", err)
	}
	metrics.RecordDBQuery("select", r.table, "success")
	defer rows.Close()

	var results []models.GameResult
	for rows.Next() {
		var res models.GameResult
		err := rows.Scan(
			&res.ID, &res.GameDate, &res.HomeTeam, &res.AwayTeam, &res.HomeScore, &res.AwayScore,
			&res.PointsTotal, &res.Location, &res.GameID, &res.InsertedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// ListResolved retrieves every result that carries a resolved game identifier,
// the join input for the derived-field rebuild
func (r *ResultRepository) ListResolved(ctx context.Context) ([]models.GameResult, error) {
	query := fmt.Sprintf(`
		SELECT id, game_date, home_team, away_team, home_score, away_score,
		       points_total, location, game_id, inserted_at
		FROM %s
		WHERE game_id IS NOT NULL
		ORDER BY game_date, home_team
	`, r.table)

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		metrics.RecordDBQuery("select", r.table, "error")
		return nil, fmt.Errorf("failed to list resolved results: %w", err)
	}
	metrics.RecordDBQuery("select", r.table, "success")
	defer rows.Close()

	var results []models.GameResult
	for rows.Next() {
		var res models.GameResult
		err := rows.Scan(
			&res.ID, &res.GameDate, &res.HomeTeam, &res.AwayTeam, &res.HomeScore, &res.AwayScore,
			&res.PointsTotal, &res.Location, &res.GameID, &res.InsertedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	log.Debug().Int("count", len(results)).Str("sport", r.sport).Msg("Retrieved resolved results")
	return results, nil
}

// Count returns the total number of stored results
func (r *ResultRepository) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)

	var count int
	err := r.db.Pool.QueryRow(ctx, query).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count results: %w", err)
	}

	return count, nil
}
