package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/muarrikhyazka/music-recommender/internal/services"
	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

type MockRecommendationOrchestrator struct {
	mock.Mock
}

func (m *MockRecommendationOrchestrator) Generate(ctx context.Context, userID uuid.UUID, c *models.Context, opts services.GenerateOptions) (*models.RecommendationResult, error) {
	args := m.Called(ctx, userID, c, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResult), args.Error(1)
}

func (m *MockRecommendationOrchestrator) Preview(ctx context.Context, userID uuid.UUID, c *models.Context, opts services.GenerateOptions) (*models.RecommendationResult, error) {
	args := m.Called(ctx, userID, c, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResult), args.Error(1)
}

func (m *MockRecommendationOrchestrator) Get(ctx context.Context, recommendationID uuid.UUID) (*models.RecommendationResult, error) {
	args := m.Called(ctx, recommendationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResult), args.Error(1)
}

func (m *MockRecommendationOrchestrator) ProcessFeedback(ctx context.Context, recommendationID uuid.UUID, event *models.FeedbackEvent) error {
	args := m.Called(ctx, recommendationID, event)
	return args.Error(0)
}

func testRouter(orchestrator services.RecommendationOrchestratorInterface, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := NewRecommendationHandler(orchestrator, logger)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	router.POST("/recommendations", handler.Generate)
	router.POST("/recommendations/preview", handler.Preview)
	router.GET("/recommendations/:id", handler.Get)
	router.POST("/recommendations/:id/feedback", handler.RecordFeedback)
	return router
}

func TestRecommendationHandler_Generate(t *testing.T) {
	userID := uuid.New()

	t.Run("returns the generated playlist", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)
		result := &models.RecommendationResult{
			ID:           uuid.New(),
			UserID:       userID,
			PlaylistName: "Rainy Evening Mix",
		}
		orchestrator.On("Generate", mock.Anything, userID, (*models.Context)(nil),
			services.GenerateOptions{TargetLength: 15}).Return(result, nil)

		body := bytes.NewBufferString(`{"target_length": 15}`)
		req := httptest.NewRequest(http.MethodPost, "/recommendations", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got models.RecommendationResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, result.ID, got.ID)
		assert.Equal(t, "Rainy Evening Mix", got.PlaylistName)
	})

	t.Run("empty body uses defaults", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)
		orchestrator.On("Generate", mock.Anything, userID, (*models.Context)(nil),
			services.GenerateOptions{}).Return(&models.RecommendationResult{UserID: userID}, nil)

		req := httptest.NewRequest(http.MethodPost, "/recommendations", nil)
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		orchestrator.AssertExpectations(t)
	})

	t.Run("rejects an out-of-range target length", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)

		body := bytes.NewBufferString(`{"target_length": 500}`)
		req := httptest.NewRequest(http.MethodPost, "/recommendations", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		orchestrator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("requires authentication", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)

		req := httptest.NewRequest(http.MethodPost, "/recommendations", nil)
		w := httptest.NewRecorder()

		testRouter(orchestrator, uuid.Nil).ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("maps exhausted candidates to 503", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)
		orchestrator.On("Generate", mock.Anything, userID, mock.Anything, mock.Anything).
			Return(nil, services.ErrNoCandidates)

		req := httptest.NewRequest(http.MethodPost, "/recommendations", nil)
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "RECOMMENDATIONS_UNAVAILABLE")
		assert.Contains(t, w.Body.String(), "actions")
	})
}

func TestRecommendationHandler_Preview(t *testing.T) {
	userID := uuid.New()

	orchestrator := new(MockRecommendationOrchestrator)
	orchestrator.On("Preview", mock.Anything, userID, mock.Anything, mock.Anything).
		Return(&models.RecommendationResult{UserID: userID}, nil)

	req := httptest.NewRequest(http.MethodPost, "/recommendations/preview", nil)
	w := httptest.NewRecorder()

	testRouter(orchestrator, userID).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	orchestrator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRecommendationHandler_Get(t *testing.T) {
	userID := uuid.New()
	recommendationID := uuid.New()

	t.Run("returns an owned recommendation", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)
		orchestrator.On("Get", mock.Anything, recommendationID).
			Return(&models.RecommendationResult{ID: recommendationID, UserID: userID}, nil)

		req := httptest.NewRequest(http.MethodGet, "/recommendations/"+recommendationID.String(), nil)
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("hides another user's recommendation", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)
		orchestrator.On("Get", mock.Anything, recommendationID).
			Return(&models.RecommendationResult{ID: recommendationID, UserID: uuid.New()}, nil)

		req := httptest.NewRequest(http.MethodGet, "/recommendations/"+recommendationID.String(), nil)
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("rejects a malformed id", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)

		req := httptest.NewRequest(http.MethodGet, "/recommendations/not-a-uuid", nil)
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing recommendation is 404", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)
		orchestrator.On("Get", mock.Anything, recommendationID).
			Return(nil, fmt.Errorf("recommendation %s: %w", recommendationID, services.ErrNotFound))

		req := httptest.NewRequest(http.MethodGet, "/recommendations/"+recommendationID.String(), nil)
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestRecommendationHandler_RecordFeedback(t *testing.T) {
	userID := uuid.New()
	recommendationID := uuid.New()

	t.Run("records a play event", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)
		orchestrator.On("ProcessFeedback", mock.Anything, recommendationID,
			mock.MatchedBy(func(event *models.FeedbackEvent) bool {
				return event.UserID == userID && event.EventType == "play"
			})).Return(nil)

		body := bytes.NewBufferString(`{"event_type": "play"}`)
		req := httptest.NewRequest(http.MethodPost, "/recommendations/"+recommendationID.String()+"/feedback", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		orchestrator.AssertExpectations(t)
	})

	t.Run("rejects an unknown event type", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)

		body := bytes.NewBufferString(`{"event_type": "skip"}`)
		req := httptest.NewRequest(http.MethodPost, "/recommendations/"+recommendationID.String()+"/feedback", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "INVALID_FEEDBACK_EVENT")
		orchestrator.AssertNotCalled(t, "ProcessFeedback", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects an out-of-range rating", func(t *testing.T) {
		orchestrator := new(MockRecommendationOrchestrator)

		body := bytes.NewBufferString(`{"event_type": "rate", "rating": 9}`)
		req := httptest.NewRequest(http.MethodPost, "/recommendations/"+recommendationID.String()+"/feedback", body)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		testRouter(orchestrator, userID).ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
