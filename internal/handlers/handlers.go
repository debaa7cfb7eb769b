package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
	Context        *ContextHandler
}

func New(logger *logrus.Logger, svc *services.Services) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, svc.Health),
		Recommendation: NewRecommendationHandler(svc.RecommendationOrchestrator, logger),
		Context:        NewContextHandler(svc.Context, logger),
	}
}
