package models

import (
	"database/sql"
	"fmt"
	"time"
)

// GameDateFormat is the wire format for game dates
const GameDateFormat = "2006-01-02"

// GameResult represents one finalized game observation in the results table
type GameResult struct {
	ID          int            `db:"id"`
	GameDate    time.Time      `db:"game_date"`
	HomeTeam    string         `db:"home_team"`
	AwayTeam    string         `db:"away_team"`
	HomeScore   int            `db:"home_score"`
	AwayScore   int            `db:"away_score"`
	PointsTotal int            `db:"points_total"`
	Location    string         `db:"location"`
	GameID      sql.NullString `db:"game_id"` // NULL until resolved against a forecast
	InsertedAt  time.Time      `db:"inserted_at"`
}

// GameResultInput is the canonical record shape produced by the extraction step.
// Score fields are pointers so a missing field is distinguishable from zero.
type GameResultInput struct {
	GameDate    string `json:"game_date"`
	HomeTeam    string `json:"home_team"`
	AwayTeam    string `json:"away_team"`
	HomeScore   *int   `json:"home_score"`
	AwayScore   *int   `json:"away_score"`
	PointsTotal *int   `json:"points_total"`
	Location    string `json:"location"`
}

// Validate checks that all required fields are present and well-formed.
// A failure here drops only this record, never the batch.
func (gi *GameResultInput) Validate() error {
	if gi.GameDate == "" {
		return fmt.Errorf("missing required field: game_date")
	}
	if _, err := time.Parse(GameDateFormat, gi.GameDate); err != nil {
		return fmt.Errorf("invalid game_date %q: %w", gi.GameDate, err)
	}
	if gi.HomeTeam == "" {
		return fmt.Errorf("missing required field: home_team")
	}
	if gi.AwayTeam == "" {
		return fmt.Errorf("missing required field: away_team")
	}
	if gi.HomeScore == nil {
		return fmt.Errorf("missing or non-integer field: home_score")
	}
	if gi.AwayScore == nil {
		return fmt.Errorf("missing or non-integer field: away_score")
	}
	if gi.PointsTotal == nil {
		return fmt.Errorf("missing or non-integer field: points_total")
	}
	if *gi.HomeScore < 0 || *gi.AwayScore < 0 {
		return fmt.Errorf("scores must be non-negative")
	}
	if *gi.PointsTotal != *gi.HomeScore+*gi.AwayScore {
		return fmt.Errorf("points_total %d does not equal home_score + away_score", *gi.PointsTotal)
	}
	if gi.Location == "" {
		return fmt.Errorf("missing required field: location")
	}
	return nil
}

// ParsedDate returns the record's game date. Call Validate first.
func (gi *GameResultInput) ParsedDate() (time.Time, error) {
	return time.Parse(GameDateFormat, gi.GameDate)
}

// ToGameResult converts a validated input record to the stored row shape.
// gameID is empty when identity resolution found no forecast for this game.
func (gi *GameResultInput) ToGameResult(gameID string) *GameResult {
	gr := &GameResult{
		HomeTeam:    gi.HomeTeam,
		AwayTeam:    gi.AwayTeam,
		HomeScore:   *gi.HomeScore,
		AwayScore:   *gi.AwayScore,
		PointsTotal: *gi.PointsTotal,
		Location:    gi.Location,
	}

	if d, err := time.Parse(GameDateFormat, gi.GameDate); err == nil {
		gr.GameDate = d
	}

	if gameID != "" {
		gr.GameID = sql.NullString{String: gameID, Valid: true}
	}

	return gr
}
