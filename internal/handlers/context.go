package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/middleware"
	"github.com/muarrikhyazka/music-recommender/internal/services"
)

// ContextHandler exposes the captured situational snapshot so clients can
// show "evening, rainy in Jakarta" next to the playlist.
type ContextHandler struct {
	contexts *services.ContextService
	logger   *logrus.Logger
}

func NewContextHandler(contexts *services.ContextService, logger *logrus.Logger) *ContextHandler {
	return &ContextHandler{
		contexts: contexts,
		logger:   logger,
	}
}

// Current captures and returns a fresh context snapshot.
// GET /api/v1/context
func (h *ContextHandler) Current(c *gin.Context) {
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

	snapshot, err := h.contexts.Capture(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to capture context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "CONTEXT_CAPTURE_FAILED",
				"message": "Failed to capture current context",
			},
		})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}
