package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// CatalogStore serves track candidates out of the local catalog mirror.
// Audio features ride along as one JSONB column per track.
type CatalogStore struct {
	db     pgPool
	logger *logrus.Logger
}

func NewCatalogStore(db pgPool, logger *logrus.Logger) *CatalogStore {
	return &CatalogStore{db: db, logger: logger}
}

const trackColumns = `
	id, name, artists, album, genres, popularity, duration_ms,
	explicit, preview_url, external_url, features`

// FetchBySeeds pulls tracks matching any seed genre or artist, closest to
// the requested audio targets first. Targets without a weight still
// contribute to ordering, just equally.
func (s *CatalogStore) FetchBySeeds(ctx context.Context, genres, artists []string, targets map[string]models.FeatureRange, limit int) ([]models.Track, error) {
	if len(genres) == 0 && len(artists) == 0 {
		return nil, nil
	}

	// Distance from targets orders the result; hard Min/Max bounds are left
	// to the ranker so a thin catalog never comes back empty.
	distance, args := featureDistance(targets, 3)

	query := fmt.Sprintf(`
		SELECT %s
		FROM catalog_tracks
		WHERE (cardinality($1::text[]) > 0 AND genres && $1)
		   OR (cardinality($2::text[]) > 0 AND artists && $2)
		ORDER BY %s, popularity DESC
		LIMIT $3`, trackColumns, distance)

	// Genre tags are stored lowercase; artist names as-is.
	queryArgs := append([]any{lowered(genres), artists, limit}, args...)

	rows, err := s.db.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch seeded tracks: %w", err)
	}
	defer rows.Close()

	return s.scanTracks(rows)
}

// Search is the free-text fallback used when seeded fetching comes up
// short.
func (s *CatalogStore) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	sql := fmt.Sprintf(`
		SELECT %s
		FROM catalog_tracks
		WHERE search_text %% $1
		ORDER BY similarity(search_text, $1) DESC, popularity DESC
		LIMIT $2`, trackColumns)

	rows, err := s.db.Query(ctx, sql, strings.Join(terms, " "), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", err)
	}
	defer rows.Close()

	return s.scanTracks(rows)
}

func (s *CatalogStore) scanTracks(rows pgx.Rows) ([]models.Track, error) {
	var tracks []models.Track
	for rows.Next() {
		var (
			t        models.Track
			features []byte
		)
		if err := rows.Scan(
			&t.ID, &t.Name, &t.Artists, &t.Album, &t.Genres,
			&t.Popularity, &t.DurationMs, &t.Explicit,
			&t.PreviewURL, &t.ExternalURL, &features,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		if len(features) > 0 {
			if err := json.Unmarshal(features, &t.Features); err != nil {
				s.logger.WithError(err).WithField("track_id", t.ID).Warn("Skipping track with undecodable features")
				continue
			}
		}
		tracks = append(tracks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read track rows: %w", err)
	}
	return tracks, nil
}

// featureDistance builds an ORDER BY expression measuring weighted distance
// from the target features, with placeholders starting at argOffset+1.
func featureDistance(targets map[string]models.FeatureRange, argOffset int) (string, []any) {
	if len(targets) == 0 {
		return "0", nil
	}

	// Stable placeholder order keeps the generated SQL deterministic.
	names := []string{
		models.FeatureValence, models.FeatureEnergy, models.FeatureDanceability,
		models.FeatureAcousticness, models.FeatureInstrumentalness, models.FeatureTempo,
	}

	var (
		parts []string
		args  []any
	)
	for _, name := range names {
		fr, ok := targets[name]
		if !ok {
			continue
		}
		weight := fr.Weight
		if weight <= 0 {
			weight = 1
		}
		// Tempo lives on a BPM scale; normalize so it doesn't dominate.
		scale := 1.0
		if name == models.FeatureTempo {
			scale = 200
		}
		idx := argOffset + len(args) + 1
		parts = append(parts, fmt.Sprintf(
			"abs(coalesce((features->>'%s')::float, 0) - $%d) / %g * %g",
			name, idx, scale, weight,
		))
		args = append(args, fr.Target)
	}

	if len(parts) == 0 {
		return "0", nil
	}
	return "(" + strings.Join(parts, " + ") + ")", args
}

func lowered(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}
