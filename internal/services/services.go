package services

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/config"
	"github.com/muarrikhyazka/music-recommender/internal/database"
	"github.com/muarrikhyazka/music-recommender/internal/messaging"
)

type Services struct {
	Auth                       *AuthService
	Health                     *HealthService
	Metrics                    *Metrics
	Context                    *ContextService
	Profile                    *ProfileService
	RuleMatcher                *RuleMatcher
	CandidateFetcher           *CandidateFetcher
	TrackRanker                *TrackRanker
	DiversitySelector          *DiversitySelector
	Namer                      *PlaylistNamer
	AuditSink                  *messaging.AuditSink
	RecommendationOrchestrator *RecommendationOrchestrator
}

// New wires the full pipeline against the shared database handles.
// Weather and geo providers are optional; context capture degrades to
// time-only signals without them.
func New(cfg *config.Config, logger *logrus.Logger, db *database.Database, weather WeatherProvider, geo GeoProvider) (*Services, error) {
	metrics := NewMetrics()
	authService := NewAuthService(cfg, logger, db.Redis.Hot)
	healthService := NewHealthService(cfg, logger, db)

	ruleStore, err := database.NewRuleStore(db.PG, logger)
	if err != nil {
		return nil, err
	}
	catalogStore := database.NewCatalogStore(db.PG, logger)
	userStore := database.NewUserStore(db.PG, logger)
	historyStore := database.NewHistoryStore(db.PG, logger)
	genreGraph := database.NewGenreGraph(db.Neo4j, logger)
	auditSink := messaging.NewAuditSink(cfg, logger)

	contextService := NewContextService(weather, geo, logger)
	profileService := NewProfileService(userStore, historyStore, genreGraph, logger)

	ruleMatcher := NewRuleMatcher(ruleStore, db.Redis.Warm, &cfg.Recommendation, logger, metrics)
	candidateFetcher := NewCandidateFetcher(catalogStore, &cfg.Recommendation, logger)
	trackRanker := NewTrackRanker(logger)
	diversitySelector := NewDiversitySelector(logger)
	namer := NewPlaylistNamer(rand.New(rand.NewSource(time.Now().UnixNano())))

	orchestrator := NewRecommendationOrchestrator(
		ruleMatcher, candidateFetcher, trackRanker, diversitySelector,
		profileService, contextService, namer,
		userStore, ruleStore, auditSink,
		db.Redis.Hot, &cfg.Recommendation, logger, metrics,
	)

	return &Services{
		Auth:                       authService,
		Health:                     healthService,
		Metrics:                    metrics,
		Context:                    contextService,
		Profile:                    profileService,
		RuleMatcher:                ruleMatcher,
		CandidateFetcher:           candidateFetcher,
		TrackRanker:                trackRanker,
		DiversitySelector:          diversitySelector,
		Namer:                      namer,
		AuditSink:                  auditSink,
		RecommendationOrchestrator: orchestrator,
	}, nil
}

// Close releases resources that outlive requests.
func (s *Services) Close() error {
	if s.AuditSink != nil {
		return s.AuditSink.Close()
	}
	return nil
}
