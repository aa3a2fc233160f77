package models

import (
	"database/sql"
	"time"
)

// ForecastRecord is one pre-existing prediction row in the forecasts table.
// Rows are created by the external forecasting process; only the derived
// actual_* and *_bet_correct block is ever mutated here, and a non-null
// derived field is immutable unless a forced-recompute scope covers it.
// Several rows (one per betting market) may share a game_id.
type ForecastRecord struct {
	GameID   string    `db:"game_id"`
	GameDate time.Time `db:"game_date"`
	TeamAway string    `db:"team_away"`
	TeamHome string    `db:"team_home"`

	// Betting line
	PointsTotalOver sql.NullFloat64 `db:"points_total_over"`

	// Bet direction flags, tri-state: 1 = bet, 0 = bet the other side, NULL = no bet
	TenkiHomeWinnerBet  sql.NullInt32 `db:"tenki_team_home_winner_bet"`
	TenkiPointsOverBet  sql.NullInt32 `db:"tenki_points_total_over_bet"`
	KalshiHomeWinnerBet sql.NullInt32 `db:"kalshi_team_home_winner_bet"`
	KalshiPointsOverBet sql.NullInt32 `db:"kalshi_points_total_over_bet"`

	// Derived fields (computed from the joined game result)
	ActualTeamAwayPoints  sql.NullInt32 `db:"actual_team_away_points"`
	ActualTeamHomePoints  sql.NullInt32 `db:"actual_team_home_points"`
	ActualPointsTotal     sql.NullInt32 `db:"actual_points_total"`
	ActualTeamHomeWin     sql.NullInt32 `db:"actual_team_home_win"`
	ActualPointsTotalOver sql.NullInt32 `db:"actual_points_total_over"`
	TenkiBetCorrect       sql.NullInt32 `db:"tenki_bet_correct"`
	KalshiBetCorrect      sql.NullInt32 `db:"kalshi_bet_correct"`
}

// HasResult reports whether the derived actual-score block is populated
func (f *ForecastRecord) HasResult() bool {
	return f.ActualTeamAwayPoints.Valid
}
