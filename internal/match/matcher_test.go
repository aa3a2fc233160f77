package match

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sportseval/ingestion/internal/models"
)

func date(s string) time.Time {
	d, err := time.Parse(models.GameDateFormat, s)
	if err != nil {
		panic(err)
	}
	return d
}

func forecast(gameID, away, home string) models.ForecastRecord {
	return models.ForecastRecord{GameID: gameID, TeamAway: away, TeamHome: home}
}

func TestBuildIndex_ResolveExactPair(t *testing.T) {
	ix := BuildIndex(date("2025-12-06"), []models.ForecastRecord{
		forecast("g123", "Los Angeles Clippers", "Memphis Grizzlies"),
		forecast("g456", "Denver Nuggets", "Atlanta Hawks"),
	})

	id, ok := ix.Resolve("Los Angeles Clippers", "Memphis Grizzlies")
	require.True(t, ok)
	assert.Equal(t, "g123", id)

	id, ok = ix.Resolve("Denver Nuggets", "Atlanta Hawks")
	require.True(t, ok)
	assert.Equal(t, "g456", id)
}

func TestBuildIndex_ResolveThroughAlias(t *testing.T) {
	// Forecast side carries the long spelling, result side the short one
	ix := BuildIndex(date("2025-12-06"), []models.ForecastRecord{
		forecast("g123", "Los Angeles Clippers", "Memphis Grizzlies"),
	})

	id, ok := ix.Resolve("LA Clippers", "Memphis Grizzlies")
	require.True(t, ok, "Alias spelling should resolve to the same key")
	assert.Equal(t, "g123", id)
}

func TestIndex_UnknownPairUnresolved(t *testing.T) {
	ix := BuildIndex(date("2025-12-06"), []models.ForecastRecord{
		forecast("g123", "Los Angeles Clippers", "Memphis Grizzlies"),
	})

	_, ok := ix.Resolve("Boston Celtics", "Miami Heat")
	assert.False(t, ok, "Unknown pairs are unresolved, not an error")

	// Reversed pair must not match either: (away, home) order matters
	_, ok = ix.Resolve("Memphis Grizzlies", "Los Angeles Clippers")
	assert.False(t, ok)
}

func TestBuildIndex_AmbiguousKeyRefused(t *testing.T) {
	ix := BuildIndex(date("2025-12-06"), []models.ForecastRecord{
		forecast("g123", "LA Clippers", "Memphis Grizzlies"),
		forecast("g999", "Los Angeles Clippers", "Memphis Grizzlies"),
	})

	_, ok := ix.Resolve("LA Clippers", "Memphis Grizzlies")
	assert.False(t, ok, "Colliding key with conflicting ids must not resolve")
}

func TestBuildIndex_DuplicateRowsSameIDOK(t *testing.T) {
	// Multiple betting markets share a game_id; that is not a collision
	ix := BuildIndex(date("2025-12-06"), []models.ForecastRecord{
		forecast("g123", "Los Angeles Clippers", "Memphis Grizzlies"),
		forecast("g123", "LA Clippers", "Memphis Grizzlies"),
	})

	id, ok := ix.Resolve("LA Clippers", "Memphis Grizzlies")
	require.True(t, ok)
	assert.Equal(t, "g123", id)
}

func TestIndex_EntriesRoundTrip(t *testing.T) {
	ix := BuildIndex(date("2025-12-06"), []models.ForecastRecord{
		forecast("g123", "Los Angeles Clippers", "Memphis Grizzlies"),
		forecast("g1", "LA Clippers", "Atlanta Hawks"),
		forecast("g2", "Los Angeles Clippers", "Atlanta Hawks"), // ambiguous
	})

	restored := FromEntries(ix.Date(), ix.Entries())

	id, ok := restored.Resolve("LA Clippers", "Memphis Grizzlies")
	require.True(t, ok)
	assert.Equal(t, "g123", id)

	_, ok = restored.Resolve("LA Clippers", "Atlanta Hawks")
	assert.False(t, ok, "Ambiguous keys must stay unresolved after a cache round trip")
}

type stubForecastSource struct {
	byDate map[string][]models.ForecastRecord
	err    error
}

func (s *stubForecastSource) ListByDate(_ context.Context, d time.Time) ([]models.ForecastRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.byDate[d.Format(models.GameDateFormat)], nil
}

func TestBuilder_DateScopedIndexes(t *testing.T) {
	src := &stubForecastSource{byDate: map[string][]models.ForecastRecord{
		"2025-12-06": {forecast("g123", "Los Angeles Clippers", "Memphis Grizzlies")},
		"2025-12-07": {forecast("g777", "Los Angeles Clippers", "Memphis Grizzlies")},
	}}
	b := NewBuilder("nba", src, nil)

	ctx := context.Background()

	ix6, err := b.IndexForDate(ctx, date("2025-12-06"))
	require.NoError(t, err)
	ix7, err := b.IndexForDate(ctx, date("2025-12-07"))
	require.NoError(t, err)

	id, ok := ix6.Resolve("LA Clippers", "Memphis Grizzlies")
	require.True(t, ok)
	assert.Equal(t, "g123", id, "A result on D1 must resolve against D1's forecasts only")

	id, ok = ix7.Resolve("LA Clippers", "Memphis Grizzlies")
	require.True(t, ok)
	assert.Equal(t, "g777", id)
}

func TestBuilder_NilSourceYieldsEmptyIndex(t *testing.T) {
	b := NewBuilder("nhl", nil, nil)

	ix, err := b.IndexForDate(context.Background(), date("2025-12-06"))
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())

	_, ok := ix.Resolve("Boston Bruins", "Toronto Maple Leafs")
	assert.False(t, ok)
}
