package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/middleware"
	"github.com/muarrikhyazka/music-recommender/internal/services"
	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

type RecommendationHandler struct {
	orchestrator services.RecommendationOrchestratorInterface
	validate     *validator.Validate
	logger       *logrus.Logger
}

func NewRecommendationHandler(
	orchestrator services.RecommendationOrchestratorInterface,
	logger *logrus.Logger,
) *RecommendationHandler {
	return &RecommendationHandler{
		orchestrator: orchestrator,
		validate:     validator.New(),
		logger:       logger,
	}
}

type generateRequest struct {
	// Context is optional; when omitted the server captures one.
	Context         *models.Context `json:"context"`
	TargetLength    int             `json:"target_length" binding:"omitempty,min=1,max=100"`
	DiversityWeight *float64        `json:"diversity_weight" binding:"omitempty,min=0,max=1"`
	Force           bool            `json:"force"`
}

// Generate builds a fresh playlist for the authenticated user.
// POST /api/v1/recommendations
func (h *RecommendationHandler) Generate(c *gin.Context) {
	h.generate(c, false)
}

// Preview runs the same pipeline without persisting or reusing results.
// POST /api/v1/recommendations/preview
func (h *RecommendationHandler) Preview(c *gin.Context) {
	h.generate(c, true)
}

func (h *RecommendationHandler) generate(c *gin.Context, preview bool) {
	userID, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "Authentication required",
			},
		})
		return
	}

	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_REQUEST_BODY",
					"message": err.Error(),
				},
			})
			return
		}
	}

	opts := services.GenerateOptions{
		TargetLength:    req.TargetLength,
		DiversityWeight: req.DiversityWeight,
		Force:           req.Force,
	}

	var (
		result *models.RecommendationResult
		err    error
	)
	if preview {
		result, err = h.orchestrator.Preview(c.Request.Context(), userID, req.Context, opts)
	} else {
		result, err = h.orchestrator.Generate(c.Request.Context(), userID, req.Context, opts)
	}
	if err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Get returns a previously generated recommendation.
// GET /api/v1/recommendations/:id
func (h *RecommendationHandler) Get(c *gin.Context) {
	recommendationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_RECOMMENDATION_ID",
				"message": "Invalid recommendation ID format",
			},
		})
		return
	}

	result, err := h.orchestrator.Get(c.Request.Context(), recommendationID)
	if err != nil {
		h.respondError(c, uuid.Nil, err)
		return
	}

	if userID, ok := middleware.GetUserFromContext(c); !ok || result.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Recommendation not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// RecordFeedback records a click/play/save/rate event.
// POST /api/v1/recommendations/:id/feedback
func (h *RecommendationHandler) RecordFeedback(c *gin.Context) {
	userID, ok := middleware.GetUserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": gin.H{
				"code":    "UNAUTHENTICATED",
				"message": "Authentication required",
			},
		})
		return
	}

	recommendationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_RECOMMENDATION_ID",
				"message": "Invalid recommendation ID format",
			},
		})
		return
	}

	var event models.FeedbackEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": err.Error(),
			},
		})
		return
	}
	event.UserID = userID

	if err := h.validate.Struct(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_FEEDBACK_EVENT",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.orchestrator.ProcessFeedback(c.Request.Context(), recommendationID, &event); err != nil {
		h.respondError(c, userID, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

func (h *RecommendationHandler) respondError(c *gin.Context, userID uuid.UUID, err error) {
	reason, actions := services.FailureReason(err)

	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": reason,
			},
		})
	case errors.Is(err, services.ErrNoCandidates), errors.Is(err, services.ErrServiceUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATIONS_UNAVAILABLE",
				"message": reason,
				"actions": actions,
			},
		})
	default:
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_GENERATION_FAILED",
				"message": reason,
			},
		})
	}
}
