package source

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"sportseval/ingestion/internal/models"
)

// Extractor turns a fetched scoreboard into ingestion input records
type Extractor interface {
	Extract(scoreboard *Scoreboard, date time.Time) []models.GameResultInput
}

// ScoreboardExtractor keeps finalized events and maps them onto the
// ingestion record shape. Malformed events produce records with missing
// fields rather than being silently dropped here; downstream validation
// counts them.
type ScoreboardExtractor struct{}

// Extract returns one input record per finalized event on the scoreboard
func (ScoreboardExtractor) Extract(scoreboard *Scoreboard, date time.Time) []models.GameResultInput {
	if scoreboard == nil {
		return nil
	}

	var records []models.GameResultInput
	for _, event := range scoreboard.Events {
		if event.Status.Type.State != "post" {
			continue
		}
		if len(event.Competitions) == 0 {
			log.Warn().Str("event_id", event.ID).Msg("Finalized event has no competition data")
			continue
		}

		comp := event.Competitions[0]
		rec := models.GameResultInput{
			GameDate: date.Format(models.GameDateFormat),
			Location: comp.Venue.FullName,
		}

		for _, competitor := range comp.Competitors {
			score := parseScore(competitor.Score, event.ID)
			switch competitor.HomeAway {
			case "home":
				rec.HomeTeam = competitor.Team.DisplayName
				rec.HomeScore = score
			case "away":
				rec.AwayTeam = competitor.Team.DisplayName
				rec.AwayScore = score
			}
		}

		if rec.HomeScore != nil && rec.AwayScore != nil {
			total := *rec.HomeScore + *rec.AwayScore
			rec.PointsTotal = &total
		}

		records = append(records, rec)
	}

	return records
}

// parseScore converts the API's string score. A non-numeric score leaves
// the field unset so the record fails validation instead of ingesting a
// bogus zero.
func parseScore(raw, eventID string) *int {
	if raw == "" {
		return nil
	}
	score, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn().Str("event_id", eventID).Str("score", raw).Msg("Non-numeric score in scoreboard event")
		return nil
	}
	return &score
}
