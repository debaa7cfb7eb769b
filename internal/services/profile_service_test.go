package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

type MockGenreGraph struct {
	mock.Mock
}

func (m *MockGenreGraph) GenresForArtists(ctx context.Context, artistNames []string) (map[string]int, error) {
	args := m.Called(ctx, artistNames)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func TestProfileService_Build(t *testing.T) {
	userID := uuid.New()

	t.Run("assembles a full profile", func(t *testing.T) {
		users := new(MockUserStore)
		history := new(MockHistoryStore)

		users.On("GetProfile", mock.Anything, userID).Return(&models.AccountProfile{
			UserID:      userID,
			Country:     "ID",
			Preferences: models.Preferences{AvoidExplicit: true},
		}, nil)
		users.On("GetTopTracks", mock.Anything, userID, 50).Return(makeTracks("top", 3), nil)
		users.On("GetTopArtists", mock.Anything, userID, 50).Return([]models.Artist{
			{Name: "Nujabes", Genres: []string{"lofi", "jazz"}},
			{Name: "Bill Evans", Genres: []string{"jazz"}},
		}, nil)
		history.On("GetRecentTracks", mock.Anything, userID, 50).Return(makeTracks("recent", 2), nil)
		history.On("GetListeningPatterns", mock.Anything, userID, 30).
			Return(map[string]float64{models.FeatureEnergy: 0.35}, nil)

		svc := NewProfileService(users, history, nil, testLogger())
		profile, err := svc.Build(context.Background(), userID)

		require.NoError(t, err)
		assert.Equal(t, userID, profile.UserID)
		assert.Len(t, profile.TopTracks, 3)
		assert.Len(t, profile.RecentTracks, 2)
		assert.InDelta(t, 0.35, profile.FeatureAverages[models.FeatureEnergy], 1e-9)
		// jazz appears on two artists, lofi on one
		assert.Equal(t, []string{"jazz", "lofi"}, profile.TopGenres)
	})

	t.Run("missing account is not found", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("GetProfile", mock.Anything, userID).Return(nil, pgx.ErrNoRows)

		svc := NewProfileService(users, new(MockHistoryStore), nil, testLogger())
		_, err := svc.Build(context.Background(), userID)

		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("account store failure is not masked as not found", func(t *testing.T) {
		users := new(MockUserStore)
		users.On("GetProfile", mock.Anything, userID).Return(nil, errors.New("connection reset"))

		svc := NewProfileService(users, new(MockHistoryStore), nil, testLogger())
		_, err := svc.Build(context.Background(), userID)

		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})

	t.Run("history failures degrade to empty sections", func(t *testing.T) {
		users := new(MockUserStore)
		history := new(MockHistoryStore)

		users.On("GetProfile", mock.Anything, userID).Return(&models.AccountProfile{UserID: userID}, nil)
		users.On("GetTopTracks", mock.Anything, userID, mock.Anything).Return(nil, errors.New("timeout"))
		users.On("GetTopArtists", mock.Anything, userID, mock.Anything).Return(nil, errors.New("timeout"))
		history.On("GetRecentTracks", mock.Anything, userID, mock.Anything).Return(nil, errors.New("timeout"))
		history.On("GetListeningPatterns", mock.Anything, userID, mock.Anything).Return(nil, errors.New("timeout"))

		svc := NewProfileService(users, history, nil, testLogger())
		profile, err := svc.Build(context.Background(), userID)

		require.NoError(t, err)
		assert.Empty(t, profile.TopTracks)
		assert.Empty(t, profile.TopArtists)
		assert.Empty(t, profile.RecentTracks)
		assert.Empty(t, profile.FeatureAverages)
		assert.Empty(t, profile.TopGenres)
	})
}

func TestProfileService_DeriveTopGenres(t *testing.T) {
	artists := []models.Artist{
		{Name: "Nujabes", Genres: []string{"Lofi", "jazz"}},
		{Name: "Tycho", Genres: []string{"electronic"}},
	}

	t.Run("graph counts merge with artist tags", func(t *testing.T) {
		graph := new(MockGenreGraph)
		graph.On("GenresForArtists", mock.Anything, []string{"Nujabes", "Tycho"}).
			Return(map[string]int{"electronic": 3, "ambient": 1}, nil)

		svc := NewProfileService(new(MockUserStore), new(MockHistoryStore), graph, testLogger())
		genres := svc.deriveTopGenres(context.Background(), artists)

		// electronic: 1 tag + 3 graph; ties break alphabetically
		assert.Equal(t, []string{"electronic", "ambient", "jazz", "lofi"}, genres)
	})

	t.Run("graph failure falls back to artist tags", func(t *testing.T) {
		graph := new(MockGenreGraph)
		graph.On("GenresForArtists", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("neo4j unavailable"))

		svc := NewProfileService(new(MockUserStore), new(MockHistoryStore), graph, testLogger())
		genres := svc.deriveTopGenres(context.Background(), artists)

		assert.Equal(t, []string{"electronic", "jazz", "lofi"}, genres)
	})
}
