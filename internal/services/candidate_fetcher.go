package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/config"
	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// Over-fetch factor: the ranker and selector need headroom to discard.
const candidateOverfetch = 3

// CandidateFetcher turns a candidate profile into a deduplicated pool of
// catalog tracks.
type CandidateFetcher struct {
	catalog Catalog
	config  *config.RecommendationConfig
	logger  *logrus.Logger
}

func NewCandidateFetcher(catalog Catalog, cfg *config.RecommendationConfig, logger *logrus.Logger) *CandidateFetcher {
	return &CandidateFetcher{
		catalog: catalog,
		config:  cfg,
		logger:  logger,
	}
}

// Fetch returns up to 3x the target pool size. The seeded query uses the
// top genres and user-boosted artists; if it falls short of target, a
// keyword search tops up the pool. A single default-genre seed is the last
// resort before giving up with ErrNoCandidates.
func (f *CandidateFetcher) Fetch(ctx context.Context, profile *models.CandidateProfile, target int) ([]models.Track, error) {
	if target <= 0 {
		target = f.config.DefaultTargetLength
	}
	poolSize := target * candidateOverfetch

	genres := profile.TopGenres(3)
	artists := profile.TopBoostArtists(2)

	var pool []models.Track
	if len(genres) > 0 || len(artists) > 0 {
		tracks, err := f.catalog.FetchBySeeds(ctx, genres, artists, profile.AudioTargets, poolSize)
		if err != nil {
			f.logger.WithError(err).Warn("Seeded catalog query failed")
		} else {
			pool = tracks
		}
	}

	if len(pool) < target {
		if query := f.searchQuery(profile); query != "" {
			tracks, err := f.catalog.Search(ctx, query, poolSize-len(pool))
			if err != nil {
				f.logger.WithError(err).WithField("query", query).Warn("Catalog search failed")
			} else {
				pool = append(pool, tracks...)
			}
		}
	}

	// Both queries failed or the profile had no usable seeds: retry with a
	// single default genre rather than failing the request.
	if len(pool) == 0 {
		tracks, err := f.catalog.FetchBySeeds(ctx, []string{f.config.FallbackGenre}, nil, nil, poolSize)
		if err != nil {
			return nil, fmt.Errorf("fallback catalog query failed: %w", err)
		}
		pool = tracks
	}

	pool = dedupeTracks(pool)
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}
	if len(pool) > poolSize {
		pool = pool[:poolSize]
	}

	return pool, nil
}

// searchQuery builds a free-text query from the strongest genre and theme.
func (f *CandidateFetcher) searchQuery(profile *models.CandidateProfile) string {
	var parts []string
	if len(profile.Genres) > 0 {
		parts = append(parts, profile.Genres[0].Name)
	}
	if len(profile.Themes) > 0 {
		parts = append(parts, profile.Themes[0].Name)
	}
	return strings.Join(parts, " ")
}

func dedupeTracks(tracks []models.Track) []models.Track {
	seen := make(map[string]struct{}, len(tracks))
	out := tracks[:0]
	for _, t := range tracks {
		if _, ok := seen[t.ID]; ok {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
