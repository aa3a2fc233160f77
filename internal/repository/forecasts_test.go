//go:build integration

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportseval/ingestion/internal/models"
)

func setupForecastTable(t *testing.T, db *Database, ctx context.Context) *ForecastRepository {
	require.NoError(t, db.Forecasts.EnsureTable(ctx))

	_, err := db.Pool.Exec(ctx, fmt.Sprintf(`TRUNCATE %s`, db.Forecasts.table))
	require.NoError(t, err)

	return db.Forecasts
}

func testForecast(gameID, gameDate, away, home string) models.ForecastRecord {
	d, _ := time.Parse(models.GameDateFormat, gameDate)
	return models.ForecastRecord{
		GameID:             gameID,
		GameDate:           d,
		TeamAway:           away,
		TeamHome:           home,
		PointsTotalOver:    sql.NullFloat64{Float64: 210.5, Valid: true},
		TenkiHomeWinnerBet: sql.NullInt32{Int32: 1, Valid: true},
	}
}

func insertForecast(t *testing.T, db *Database, repo *ForecastRepository, rec models.ForecastRecord) {
	query := fmt.Sprintf(`
		INSERT INTO %s (
			game_id, game_date, team_away, team_home, points_total_over,
			tenki_team_home_winner_bet, tenki_points_total_over_bet,
			kalshi_team_home_winner_bet, kalshi_points_total_over_bet,
			actual_team_away_points, actual_team_home_points, actual_points_total,
			actual_team_home_win, actual_points_total_over,
			tenki_bet_correct, kalshi_bet_correct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, repo.table)

	_, err := db.Pool.Exec(context.Background(), query,
		rec.GameID, rec.GameDate, rec.TeamAway, rec.TeamHome, rec.PointsTotalOver,
		rec.TenkiHomeWinnerBet, rec.TenkiPointsOverBet,
		rec.KalshiHomeWinnerBet, rec.KalshiPointsOverBet,
		rec.ActualTeamAwayPoints, rec.ActualTeamHomePoints, rec.ActualPointsTotal,
		rec.ActualTeamHomeWin, rec.ActualPointsTotalOver,
		rec.TenkiBetCorrect, rec.KalshiBetCorrect,
	)
	require.NoError(t, err)
}

func TestForecastListByDate(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	repo := setupForecastTable(t, db, ctx)

	insertForecast(t, db, repo, testForecast("g123", "2025-12-06", "Boston Celtics", "Los Angeles Lakers"))
	insertForecast(t, db, repo, testForecast("g456", "2025-12-07", "Phoenix Suns", "Denver Nuggets"))

	d, _ := time.Parse(models.GameDateFormat, "2025-12-06")
	got, err := repo.ListByDate(ctx, d)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "g123", got[0].GameID)
	assert.Equal(t, "Los Angeles Lakers", got[0].TeamHome)
}

func TestForecastReplaceAllSwapsContents(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	repo := setupForecastTable(t, db, ctx)

	insertForecast(t, db, repo, testForecast("g123", "2025-12-06", "Boston Celtics", "Los Angeles Lakers"))

	snapshot, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snapshot, 1)

	snapshot[0].ActualTeamAwayPoints = sql.NullInt32{Int32: 100, Valid: true}
	snapshot[0].ActualTeamHomePoints = sql.NullInt32{Int32: 105, Valid: true}
	snapshot[0].ActualPointsTotal = sql.NullInt32{Int32: 205, Valid: true}
	snapshot[0].TenkiBetCorrect = sql.NullInt32{Int32: 1, Valid: true}

	require.NoError(t, repo.ReplaceAll(ctx, snapshot))

	after, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, snapshot[0], after[0], "Replacement contents should survive the swap")

	// The table is usable again after the swap, queries included
	d, _ := time.Parse(models.GameDateFormat, "2025-12-06")
	got, err := repo.ListByDate(ctx, d)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestForecastReplaceAllWithEmptySet(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	repo := setupForecastTable(t, db, ctx)

	insertForecast(t, db, repo, testForecast("g123", "2025-12-06", "Boston Celtics", "Los Angeles Lakers"))

	require.NoError(t, repo.ReplaceAll(ctx, nil))

	after, err := repo.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestEvalCoverage(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)
	repo := setupForecastTable(t, db, ctx)

	evaluated := testForecast("g123", "2025-12-06", "Boston Celtics", "Los Angeles Lakers")
	evaluated.ActualPointsTotal = sql.NullInt32{Int32: 205, Valid: true}
	evaluated.TenkiBetCorrect = sql.NullInt32{Int32: 1, Valid: true}
	insertForecast(t, db, repo, evaluated)

	pending := testForecast("g456", "2025-12-07", "Phoenix Suns", "Denver Nuggets")
	insertForecast(t, db, repo, pending)

	cov, err := repo.EvalCoverage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cov.Total)
	assert.Equal(t, 1, cov.WithResult)
	assert.Equal(t, 1, cov.TenkiEvaluated)
	assert.Equal(t, 1, cov.TenkiCorrect)
	assert.Equal(t, 0, cov.KalshiEvaluated)
}
