package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// HistoryStore reads the raw play log: the recent window feeding recency
// penalties, and per-feature averages over a trailing day window.
type HistoryStore struct {
	db     pgPool
	logger *logrus.Logger
}

func NewHistoryStore(db pgPool, logger *logrus.Logger) *HistoryStore {
	return &HistoryStore{db: db, logger: logger}
}

func (s *HistoryStore) GetRecentTracks(ctx context.Context, userID uuid.UUID, n int) ([]models.Track, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM listening_history lh
		JOIN catalog_tracks ON id = lh.track_id
		WHERE lh.user_id = $1
		ORDER BY lh.played_at DESC
		LIMIT $2`, trackColumns)

	rows, err := s.db.Query(ctx, query, userID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent tracks: %w", err)
	}
	defer rows.Close()

	return scanUserTracks(rows)
}

// GetListeningPatterns averages the audio features of everything the user
// played in the trailing window, keyed by feature name.
func (s *HistoryStore) GetListeningPatterns(ctx context.Context, userID uuid.UUID, days int) (map[string]float64, error) {
	query := `
		SELECT
			avg((features->>'valence')::float),
			avg((features->>'energy')::float),
			avg((features->>'danceability')::float),
			avg((features->>'acousticness')::float),
			avg((features->>'instrumentalness')::float),
			avg((features->>'tempo')::float)
		FROM listening_history lh
		JOIN catalog_tracks ON id = lh.track_id
		WHERE lh.user_id = $1
		  AND lh.played_at > NOW() - ($2 || ' days')::interval`

	var valence, energy, danceability, acousticness, instrumentalness, tempo *float64
	err := s.db.QueryRow(ctx, query, userID, days).Scan(
		&valence, &energy, &danceability, &acousticness, &instrumentalness, &tempo,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load listening patterns: %w", err)
	}

	patterns := make(map[string]float64)
	put := func(name string, v *float64) {
		if v != nil {
			patterns[name] = *v
		}
	}
	put(models.FeatureValence, valence)
	put(models.FeatureEnergy, energy)
	put(models.FeatureDanceability, danceability)
	put(models.FeatureAcousticness, acousticness)
	put(models.FeatureInstrumentalness, instrumentalness)
	put(models.FeatureTempo, tempo)

	return patterns, nil
}
