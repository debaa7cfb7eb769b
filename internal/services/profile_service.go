package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

const (
	topItemLimit      = 50
	recentWindowSize  = 50
	patternWindowDays = 30
)

// ProfileService aggregates the user's account, history, and artist genre
// tags into the taste profile the pipeline scores against.
type ProfileService struct {
	users   UserStore
	history HistoryStore
	genres  GenreGraph // optional enrichment, may be nil
	logger  *logrus.Logger
}

func NewProfileService(users UserStore, history HistoryStore, genres GenreGraph, logger *logrus.Logger) *ProfileService {
	return &ProfileService{
		users:   users,
		history: history,
		genres:  genres,
		logger:  logger,
	}
}

// Build assembles a fresh taste profile. A missing account is a hard
// failure; history and genre-graph lookups degrade to empty sections.
func (s *ProfileService) Build(ctx context.Context, userID uuid.UUID) (*models.UserProfile, error) {
	account, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load account profile: %w", err)
	}

	profile := &models.UserProfile{
		UserID:      userID,
		Preferences: account.Preferences,
	}

	if tracks, err := s.users.GetTopTracks(ctx, userID, topItemLimit); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load top tracks")
	} else {
		profile.TopTracks = tracks
	}

	if artists, err := s.users.GetTopArtists(ctx, userID, topItemLimit); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load top artists")
	} else {
		profile.TopArtists = artists
	}

	if recent, err := s.history.GetRecentTracks(ctx, userID, recentWindowSize); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load recent tracks")
	} else {
		profile.RecentTracks = recent
	}

	if patterns, err := s.history.GetListeningPatterns(ctx, userID, patternWindowDays); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to load listening patterns")
	} else {
		profile.FeatureAverages = patterns
	}

	profile.TopGenres = s.deriveTopGenres(ctx, profile.TopArtists)

	return profile, nil
}

// deriveTopGenres frequency-ranks the genre tags of the user's top
// artists, enriched through the genre graph when available.
func (s *ProfileService) deriveTopGenres(ctx context.Context, artists []models.Artist) []string {
	counts := make(map[string]int)
	for _, artist := range artists {
		for _, genre := range artist.Genres {
			counts[strings.ToLower(genre)]++
		}
	}

	if s.genres != nil && len(artists) > 0 {
		names := make([]string, 0, len(artists))
		for _, artist := range artists {
			names = append(names, artist.Name)
		}
		graphCounts, err := s.genres.GenresForArtists(ctx, names)
		if err != nil {
			s.logger.WithError(err).Debug("Genre graph lookup failed")
		} else {
			for genre, n := range graphCounts {
				counts[strings.ToLower(genre)] += n
			}
		}
	}

	type genreCount struct {
		name  string
		count int
	}
	ranked := make([]genreCount, 0, len(counts))
	for name, count := range counts {
		ranked = append(ranked, genreCount{name, count})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].name < ranked[j].name
	})

	genres := make([]string, 0, len(ranked))
	for _, gc := range ranked {
		genres = append(genres, gc.name)
	}
	return genres
}
