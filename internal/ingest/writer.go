// Package ingest validates, deduplicates and appends game-result records
// to the results store, attaching forecast game identifiers where the
// per-date identity index can resolve them.
package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"sportseval/ingestion/internal/match"
	"sportseval/ingestion/internal/metrics"
	"sportseval/ingestion/internal/models"
)

// Summary reports the outcome of one ingestion batch. Every run must end
// with these counts, even on partial failure.
type Summary struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// ResultStore is the slice of the results store the writer needs:
// a duplicate probe and an append. No row-level update is assumed.
type ResultStore interface {
	Exists(ctx context.Context, gameDate time.Time, homeTeam, awayTeam string) (bool, error)
	Insert(ctx context.Context, result *models.GameResult) error
}

// IndexProvider yields the identity index for a calendar date
type IndexProvider interface {
	IndexForDate(ctx context.Context, date time.Time) (*match.Index, error)
}

// Writer ingests finalized game results for one sport
type Writer struct {
	sport   string
	results ResultStore
	indexes IndexProvider
}

// NewWriter creates a result ingestion writer
func NewWriter(sport string, results ResultStore, indexes IndexProvider) *Writer {
	return &Writer{sport: sport, results: results, indexes: indexes}
}

// Ingest processes one batch of extracted records. Each record is handled
// independently: a bad record increments Errors and the batch continues.
// When skipDuplicates is set, records whose (date, home, away) key already
// exists are counted under Skipped. Records whose team pair has no forecast
// for that date insert with a NULL game id.
func (w *Writer) Ingest(ctx context.Context, records []models.GameResultInput, skipDuplicates bool) Summary {
	var summary Summary
	if len(records) == 0 {
		return summary
	}

	indexes := w.buildIndexes(ctx, records)

	for i := range records {
		rec := &records[i]

		if err := rec.Validate(); err != nil {
			log.Warn().
				Err(err).
				Str("sport", w.sport).
				Str("home", rec.HomeTeam).
				Str("away", rec.AwayTeam).
				Msg("Dropping invalid game record")
			metrics.RecordError("ingest", "validation")
			summary.Errors++
			continue
		}

		gameDate, _ := rec.ParsedDate()

		gameID, matched := "", false
		if ix := indexes[rec.GameDate]; ix != nil {
			gameID, matched = ix.Resolve(rec.AwayTeam, rec.HomeTeam)
		}
		if matched {
			metrics.RecordResolution(w.sport, "matched")
		} else {
			metrics.RecordResolution(w.sport, "unmatched")
		}

		if skipDuplicates {
			exists, err := w.results.Exists(ctx, gameDate, rec.HomeTeam, rec.AwayTeam)
			if err != nil {
				log.Error().
					Err(err).
					Str("sport", w.sport).
					Str("home", rec.HomeTeam).
					Str("away", rec.AwayTeam).
					Msg("Duplicate check failed")
				metrics.RecordError("ingest", "store_read")
				summary.Errors++
				continue
			}
			if exists {
				log.Info().
					Str("sport", w.sport).
					Str("date", rec.GameDate).
					Str("home", rec.HomeTeam).
					Str("away", rec.AwayTeam).
					Msg("Skipping duplicate game")
				summary.Skipped++
				continue
			}
		}

		result := rec.ToGameResult(gameID)
		result.InsertedAt = time.Now().UTC()

		if err := w.results.Insert(ctx, result); err != nil {
			log.Error().
				Err(err).
				Str("sport", w.sport).
				Str("home", rec.HomeTeam).
				Str("away", rec.AwayTeam).
				Msg("Failed to insert game result")
			metrics.RecordError("ingest", "store_write")
			summary.Errors++
			continue
		}

		summary.Inserted++
	}

	metrics.RecordIngestion(w.sport, summary.Inserted, summary.Skipped, summary.Errors)
	log.Info().
		Str("sport", w.sport).
		Int("inserted", summary.Inserted).
		Int("skipped", summary.Skipped).
		Int("errors", summary.Errors).
		Msg("Ingestion batch complete")

	return summary
}

// buildIndexes builds one identity index per distinct game date in the
// batch. An index build failure for a date is reported and that date's
// records ingest unresolved; resolution must never block ingestion.
func (w *Writer) buildIndexes(ctx context.Context, records []models.GameResultInput) map[string]*match.Index {
	indexes := make(map[string]*match.Index)

	for i := range records {
		rec := &records[i]
		if rec.GameDate == "" {
			continue
		}
		if _, seen := indexes[rec.GameDate]; seen {
			continue
		}

		gameDate, err := rec.ParsedDate()
		if err != nil {
			// Validation will drop this record later
			continue
		}

		ix, err := w.indexes.IndexForDate(ctx, gameDate)
		if err != nil {
			log.Warn().
				Err(err).
				Str("sport", w.sport).
				Str("date", rec.GameDate).
				Msg("Could not build identity index, ingesting unresolved")
			metrics.RecordError("match", "index_build")
			indexes[rec.GameDate] = nil
			continue
		}
		indexes[rec.GameDate] = ix
	}

	return indexes
}
