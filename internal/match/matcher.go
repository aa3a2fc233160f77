// Package match resolves newly observed game results onto the opaque game
// identifiers used by the forecast dataset. Matching is strictly date-scoped
// and exact: both team names are canonicalized and looked up as a pair in an
// index built from that date's forecast rows.
package match

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"sportseval/ingestion/internal/cache"
	"sportseval/ingestion/internal/metrics"
	"sportseval/ingestion/internal/models"
	"sportseval/ingestion/internal/teams"
)

// keySeparator joins the canonical away/home pair into a flat cache key.
// Team display names never contain it.
const keySeparator = "|"

// ambiguousSentinel marks an index key that collided with conflicting
// game ids. Such keys deliberately resolve to unresolved.
const ambiguousSentinel = ""

// Index is a per-date lookup from (canonical away, canonical home) to a
// game identifier. Keys that two forecast rows mapped to different ids are
// kept but never resolve; the collision is reported, not silently settled.
type Index struct {
	date time.Time
	ids  map[string]string
}

func indexKey(awayName, homeName string) string {
	return teams.Normalize(awayName) + keySeparator + teams.Normalize(homeName)
}

// BuildIndex builds the identity index for one date from that date's
// forecast rows. Rows for other dates must be filtered out by the caller.
func BuildIndex(date time.Time, forecasts []models.ForecastRecord) *Index {
	ix := &Index{date: date, ids: make(map[string]string, len(forecasts))}

	for _, f := range forecasts {
		key := indexKey(f.TeamAway, f.TeamHome)

		existing, seen := ix.ids[key]
		if !seen {
			ix.ids[key] = f.GameID
			continue
		}
		if existing == f.GameID || existing == ambiguousSentinel {
			continue
		}

		// Two forecast rows collapsed onto one team pair with different
		// ids. The upstream data gives no way to pick a winner, so the
		// key is reported and left unresolvable.
		log.Warn().
			Str("date", date.Format(models.GameDateFormat)).
			Str("key", key).
			Str("game_id_a", existing).
			Str("game_id_b", f.GameID).
			Msg("Ambiguous forecast match key, leaving unresolved")
		metrics.RecordAmbiguousKey()
		ix.ids[key] = ambiguousSentinel
	}

	return ix
}

// Resolve looks up the game identifier for a result's team pair.
// Returns ok=false for unknown pairs and for ambiguous keys; an unresolved
// result is a normal outcome and must not block ingestion.
func (ix *Index) Resolve(awayName, homeName string) (string, bool) {
	if ix == nil {
		return "", false
	}

	id, ok := ix.ids[indexKey(awayName, homeName)]
	if !ok || id == ambiguousSentinel {
		return "", false
	}
	return id, true
}

// Date returns the calendar date this index covers
func (ix *Index) Date() time.Time {
	return ix.date
}

// Len returns the number of keys in the index, ambiguous keys included
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.ids)
}

// Entries exports the index in a flat serializable form. Ambiguous keys
// round-trip as the sentinel so a cached index refuses them too.
func (ix *Index) Entries() map[string]string {
	out := make(map[string]string, len(ix.ids))
	for k, v := range ix.ids {
		out[k] = v
	}
	return out
}

// FromEntries rebuilds an index from its serialized form
func FromEntries(date time.Time, entries map[string]string) *Index {
	ids := make(map[string]string, len(entries))
	for k, v := range entries {
		if !strings.Contains(k, keySeparator) {
			continue
		}
		ids[k] = v
	}
	return &Index{date: date, ids: ids}
}

// ForecastSource supplies forecast rows for a calendar date
type ForecastSource interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.ForecastRecord, error)
}

// Builder builds (and optionally caches) per-date identity indexes.
// A Builder with a nil forecast source yields empty indexes; that is how
// sports without a forecast dataset ingest with all ids unresolved.
type Builder struct {
	sport     string
	forecasts ForecastSource
	cache     *cache.RedisCache
}

// NewBuilder creates an index builder for one sport
func NewBuilder(sport string, forecasts ForecastSource, redisCache *cache.RedisCache) *Builder {
	return &Builder{sport: sport, forecasts: forecasts, cache: redisCache}
}

// IndexForDate returns the identity index for a date, consulting the cache
// first. Forecast-store read failures surface as errors so the caller can
// decide whether to ingest unresolved.
func (b *Builder) IndexForDate(ctx context.Context, date time.Time) (*Index, error) {
	if b.forecasts == nil {
		return BuildIndex(date, nil), nil
	}

	if entries, ok := b.cache.GetIdentityIndex(ctx, b.sport, date); ok {
		return FromEntries(date, entries), nil
	}

	forecasts, err := b.forecasts.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to list forecasts for %s: %w", date.Format(models.GameDateFormat), err)
	}

	ix := BuildIndex(date, forecasts)
	b.cache.SetIdentityIndex(ctx, b.sport, date, ix.Entries())

	log.Debug().
		Str("sport", b.sport).
		Str("date", date.Format(models.GameDateFormat)).
		Int("keys", ix.Len()).
		Msg("Identity index built")

	return ix, nil
}
