package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// RuleStore provides access to the active recommendation rules. Stores
// return candidates sorted by priority and effectiveness; condition
// evaluation and scoring stay in the matcher.
type RuleStore interface {
	FindMatchingRules(ctx context.Context, c *models.Context, limit int) ([]models.Rule, error)
	UpdateEffectiveness(ctx context.Context, ruleID uuid.UUID, applied, success bool, rating float64) error
}

// Catalog is the external music catalog.
type Catalog interface {
	FetchBySeeds(ctx context.Context, genres, artists []string, targets map[string]models.FeatureRange, limit int) ([]models.Track, error)
	Search(ctx context.Context, query string, limit int) ([]models.Track, error)
}

// UserStore exposes the user's account and listening profile.
type UserStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.AccountProfile, error)
	GetTopTracks(ctx context.Context, userID uuid.UUID, limit int) ([]models.Track, error)
	GetTopArtists(ctx context.Context, userID uuid.UUID, limit int) ([]models.Artist, error)
	GetRecentlyPlayed(ctx context.Context, userID uuid.UUID, limit int) ([]models.Track, error)
	GetPlaylists(ctx context.Context, userID uuid.UUID, limit int) ([]models.Playlist, error)
	GetPlaylistTracks(ctx context.Context, playlistID string, limit int) ([]models.Track, error)
}

// HistoryStore exposes the listening history used for recency penalties and
// per-feature averages.
type HistoryStore interface {
	GetRecentTracks(ctx context.Context, userID uuid.UUID, n int) ([]models.Track, error)
	GetListeningPatterns(ctx context.Context, userID uuid.UUID, days int) (map[string]float64, error)
}

// GenreGraph maps artists to genres through the music knowledge graph.
type GenreGraph interface {
	GenresForArtists(ctx context.Context, artistNames []string) (map[string]int, error)
}

// LogSink receives audit records. Writes are fire-and-forget: callers
// swallow errors.
type LogSink interface {
	Write(ctx context.Context, record *models.AuditRecord) error
}

// WeatherProvider reports current conditions for a location.
type WeatherProvider interface {
	Current(ctx context.Context, loc models.Location) (models.WeatherCondition, float64, float64, error)
}

// GeoProvider resolves a user's current location.
type GeoProvider interface {
	Locate(ctx context.Context, userID uuid.UUID) (models.Location, error)
}

// RecommendationOrchestratorInterface is the orchestrator's public contract.
type RecommendationOrchestratorInterface interface {
	Generate(ctx context.Context, userID uuid.UUID, c *models.Context, opts GenerateOptions) (*models.RecommendationResult, error)
	Preview(ctx context.Context, userID uuid.UUID, c *models.Context, opts GenerateOptions) (*models.RecommendationResult, error)
	Get(ctx context.Context, recommendationID uuid.UUID) (*models.RecommendationResult, error)
	ProcessFeedback(ctx context.Context, recommendationID uuid.UUID, event *models.FeedbackEvent) error
}
