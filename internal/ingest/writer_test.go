package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportseval/ingestion/internal/match"
	"sportseval/ingestion/internal/models"
)

type memoryResultStore struct {
	rows      []*models.GameResult
	failOn    map[string]bool // away team name -> fail insert
	existsErr error
}

func resultKey(date time.Time, home, away string) string {
	return fmt.Sprintf("%s|%s|%s", date.Format(models.GameDateFormat), home, away)
}

func (m *memoryResultStore) Exists(_ context.Context, gameDate time.Time, homeTeam, awayTeam string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	for _, r := range m.rows {
		if resultKey(r.GameDate, r.HomeTeam, r.AwayTeam) == resultKey(gameDate, homeTeam, awayTeam) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryResultStore) Insert(_ context.Context, result *models.GameResult) error {
	if m.failOn[result.AwayTeam] {
		return fmt.Errorf("store rejected row")
	}
	m.rows = append(m.rows, result)
	return nil
}

type stubIndexProvider struct {
	indexes map[string]*match.Index
}

func (s *stubIndexProvider) IndexForDate(_ context.Context, date time.Time) (*match.Index, error) {
	ix, ok := s.indexes[date.Format(models.GameDateFormat)]
	if !ok {
		return match.BuildIndex(date, nil), nil
	}
	return ix, nil
}

func intp(v int) *int { return &v }

func record(date, home, away string, homeScore, awayScore int) models.GameResultInput {
	return models.GameResultInput{
		GameDate:    date,
		HomeTeam:    home,
		AwayTeam:    away,
		HomeScore:   intp(homeScore),
		AwayScore:   intp(awayScore),
		PointsTotal: intp(homeScore + awayScore),
		Location:    "Test Arena",
	}
}

func indexFor(dateStr string, forecasts ...models.ForecastRecord) *match.Index {
	d, _ := time.Parse(models.GameDateFormat, dateStr)
	return match.BuildIndex(d, forecasts)
}

func TestWriter_ValidationCompleteness(t *testing.T) {
	store := &memoryResultStore{}
	w := NewWriter("nba", store, &stubIndexProvider{})

	records := []models.GameResultInput{
		record("2025-12-06", "Memphis Grizzlies", "LA Clippers", 107, 98),
		record("2025-12-06", "Atlanta Hawks", "Denver Nuggets", 133, 134),
		record("2025-12-06", "Boston Celtics", "Miami Heat", 110, 101),
		record("2025-12-06", "Chicago Bulls", "Utah Jazz", 120, 99),
	}
	// Fifth record carries a missing (non-integer) score
	bad := record("2025-12-06", "Dallas Mavericks", "Houston Rockets", 0, 0)
	bad.HomeScore = nil
	records = append(records, bad)

	summary := w.Ingest(context.Background(), records, true)

	assert.Equal(t, Summary{Inserted: 4, Skipped: 0, Errors: 1}, summary)
	assert.Len(t, store.rows, 4)
}

func TestWriter_DuplicateSkip(t *testing.T) {
	store := &memoryResultStore{}
	w := NewWriter("nba", store, &stubIndexProvider{})
	ctx := context.Background()

	batch := []models.GameResultInput{
		record("2025-12-06", "Memphis Grizzlies", "LA Clippers", 107, 98),
	}

	first := w.Ingest(ctx, batch, true)
	assert.Equal(t, Summary{Inserted: 1}, first)

	second := w.Ingest(ctx, batch, true)
	assert.Equal(t, Summary{Inserted: 0, Skipped: 1, Errors: 0}, second)
	assert.Len(t, store.rows, 1, "Stored row must be unchanged by the duplicate attempt")
}

func TestWriter_DuplicatesInsertWhenCheckDisabled(t *testing.T) {
	store := &memoryResultStore{}
	w := NewWriter("nba", store, &stubIndexProvider{})
	ctx := context.Background()

	batch := []models.GameResultInput{
		record("2025-12-06", "Memphis Grizzlies", "LA Clippers", 107, 98),
	}

	w.Ingest(ctx, batch, false)
	summary := w.Ingest(ctx, batch, false)
	assert.Equal(t, Summary{Inserted: 1}, summary)
	assert.Len(t, store.rows, 2)
}

func TestWriter_AttachesResolvedGameID(t *testing.T) {
	store := &memoryResultStore{}
	provider := &stubIndexProvider{indexes: map[string]*match.Index{
		"2025-12-06": indexFor("2025-12-06",
			models.ForecastRecord{GameID: "g123", TeamAway: "Los Angeles Clippers", TeamHome: "Memphis Grizzlies"},
		),
	}}
	w := NewWriter("nba", store, provider)

	summary := w.Ingest(context.Background(), []models.GameResultInput{
		record("2025-12-06", "Memphis Grizzlies", "LA Clippers", 107, 98),
		record("2025-12-06", "Atlanta Hawks", "Denver Nuggets", 133, 134),
	}, true)

	assert.Equal(t, Summary{Inserted: 2}, summary)
	require.Len(t, store.rows, 2)

	resolved := store.rows[0]
	require.True(t, resolved.GameID.Valid)
	assert.Equal(t, "g123", resolved.GameID.String)

	unresolved := store.rows[1]
	assert.False(t, unresolved.GameID.Valid, "No forecast for this pair: inserts with NULL game_id")
}

func TestWriter_DateScopedResolution(t *testing.T) {
	store := &memoryResultStore{}
	provider := &stubIndexProvider{indexes: map[string]*match.Index{
		// Forecast exists only for Dec 7
		"2025-12-07": indexFor("2025-12-07",
			models.ForecastRecord{GameID: "g777", TeamAway: "Los Angeles Clippers", TeamHome: "Memphis Grizzlies"},
		),
	}}
	w := NewWriter("nba", store, provider)

	w.Ingest(context.Background(), []models.GameResultInput{
		record("2025-12-06", "Memphis Grizzlies", "LA Clippers", 107, 98),
	}, true)

	require.Len(t, store.rows, 1)
	assert.False(t, store.rows[0].GameID.Valid,
		"A result on D1 must never resolve against a forecast that exists only on D2")
}

func TestWriter_StoreWriteErrorCounted(t *testing.T) {
	store := &memoryResultStore{failOn: map[string]bool{"Denver Nuggets": true}}
	w := NewWriter("nba", store, &stubIndexProvider{})

	summary := w.Ingest(context.Background(), []models.GameResultInput{
		record("2025-12-06", "Memphis Grizzlies", "LA Clippers", 107, 98),
		record("2025-12-06", "Atlanta Hawks", "Denver Nuggets", 133, 134),
	}, true)

	assert.Equal(t, Summary{Inserted: 1, Skipped: 0, Errors: 1}, summary)
	assert.Len(t, store.rows, 1, "Committed rows stay committed when a later row fails")
}

func TestWriter_EmptyBatch(t *testing.T) {
	w := NewWriter("nba", &memoryResultStore{}, &stubIndexProvider{})
	summary := w.Ingest(context.Background(), nil, true)
	assert.Equal(t, Summary{}, summary)
}

func TestWriter_PointsTotalStored(t *testing.T) {
	store := &memoryResultStore{}
	w := NewWriter("nba", store, &stubIndexProvider{})

	w.Ingest(context.Background(), []models.GameResultInput{
		record("2025-12-06", "Memphis Grizzlies", "LA Clippers", 107, 98),
	}, true)

	require.Len(t, store.rows, 1)
	row := store.rows[0]
	assert.Equal(t, row.HomeScore+row.AwayScore, row.PointsTotal)
	assert.False(t, row.InsertedAt.IsZero())
}
