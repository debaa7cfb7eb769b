package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) FetchBySeeds(ctx context.Context, genres, artists []string, targets map[string]models.FeatureRange, limit int) ([]models.Track, error) {
	args := m.Called(ctx, genres, artists, targets, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Track), args.Error(1)
}

func (m *MockCatalog) Search(ctx context.Context, query string, limit int) ([]models.Track, error) {
	args := m.Called(ctx, query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Track), args.Error(1)
}

func makeTracks(prefix string, n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = models.Track{
			ID:      fmt.Sprintf("%s-%d", prefix, i),
			Name:    fmt.Sprintf("Track %d", i),
			Artists: []string{fmt.Sprintf("Artist %d", i)},
		}
	}
	return tracks
}

func chillProfile() *models.CandidateProfile {
	return &models.CandidateProfile{
		Genres: []models.WeightedName{
			{Name: "lofi", Weight: 0.5},
			{Name: "jazz", Weight: 0.3},
		},
		Themes: []models.WeightedName{{Name: "cozy", Weight: 1.0}},
		BoostArtists: []models.WeightedName{
			{Name: "Nujabes", Weight: 1.0},
		},
	}
}

func TestCandidateFetcher_Fetch(t *testing.T) {
	t.Run("seeded fetch fills the pool", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("FetchBySeeds", mock.Anything, []string{"lofi", "jazz"}, []string{"Nujabes"}, mock.Anything, 30).
			Return(makeTracks("seed", 25), nil)

		fetcher := NewCandidateFetcher(catalog, testRecommendationConfig(), testLogger())
		pool, err := fetcher.Fetch(context.Background(), chillProfile(), 10)

		require.NoError(t, err)
		assert.Len(t, pool, 25)
		catalog.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("tops up with search when seeded fetch is short", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("FetchBySeeds", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 30).
			Return(makeTracks("seed", 4), nil)
		catalog.On("Search", mock.Anything, "lofi cozy", 26).
			Return(makeTracks("search", 8), nil)

		fetcher := NewCandidateFetcher(catalog, testRecommendationConfig(), testLogger())
		pool, err := fetcher.Fetch(context.Background(), chillProfile(), 10)

		require.NoError(t, err)
		assert.Len(t, pool, 12)
		catalog.AssertExpectations(t)
	})

	t.Run("deduplicates overlapping results", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("FetchBySeeds", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 30).
			Return(makeTracks("x", 5), nil)
		catalog.On("Search", mock.Anything, mock.Anything, mock.Anything).
			Return(makeTracks("x", 5), nil) // same IDs again

		fetcher := NewCandidateFetcher(catalog, testRecommendationConfig(), testLogger())
		pool, err := fetcher.Fetch(context.Background(), chillProfile(), 10)

		require.NoError(t, err)
		assert.Len(t, pool, 5)
	})

	t.Run("falls back to the default genre seed", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("FetchBySeeds", mock.Anything, []string{"lofi", "jazz"}, mock.Anything, mock.Anything, 30).
			Return(nil, errors.New("catalog down")).Once()
		catalog.On("Search", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("catalog down"))
		catalog.On("FetchBySeeds", mock.Anything, []string{"pop"}, mock.Anything, mock.Anything, 30).
			Return(makeTracks("fallback", 3), nil).Once()

		fetcher := NewCandidateFetcher(catalog, testRecommendationConfig(), testLogger())
		pool, err := fetcher.Fetch(context.Background(), chillProfile(), 10)

		require.NoError(t, err)
		assert.Len(t, pool, 3)
		catalog.AssertExpectations(t)
	})

	t.Run("returns ErrNoCandidates on an empty catalog", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("FetchBySeeds", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return([]models.Track{}, nil)
		catalog.On("Search", mock.Anything, mock.Anything, mock.Anything).
			Return([]models.Track{}, nil)

		fetcher := NewCandidateFetcher(catalog, testRecommendationConfig(), testLogger())
		_, err := fetcher.Fetch(context.Background(), chillProfile(), 10)

		assert.ErrorIs(t, err, ErrNoCandidates)
	})

	t.Run("caps the pool at three times target", func(t *testing.T) {
		catalog := new(MockCatalog)
		catalog.On("FetchBySeeds", mock.Anything, mock.Anything, mock.Anything, mock.Anything, 30).
			Return(makeTracks("seed", 40), nil)

		fetcher := NewCandidateFetcher(catalog, testRecommendationConfig(), testLogger())
		pool, err := fetcher.Fetch(context.Background(), chillProfile(), 10)

		require.NoError(t, err)
		assert.Len(t, pool, 30)
	})
}
