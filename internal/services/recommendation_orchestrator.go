package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/muarrikhyazka/music-recommender/internal/config"
	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// Branch blend: a fixed share of the playlist comes from the user's own
// library, the rest from the catalog-wide pipeline. Confidence weighs the
// user branch higher because its signal is stronger.
const (
	userConfidenceWeight   = 0.6
	globalConfidenceWeight = 0.4
)

// Feedback engagement weights by interaction type.
const (
	clickEngagement  = 0.1
	playEngagement   = 0.3
	saveEngagement   = 0.4
	ratingEngagement = 0.2
)

// GenerateOptions tune one request. Zero values fall back to configuration
// defaults; DiversityWeight is a pointer because 0 is a valid setting.
type GenerateOptions struct {
	TargetLength    int
	DiversityWeight *float64
	Force           bool // skip the idempotency window
}

// RecommendationOrchestrator composes the pipeline per request: rule
// matching, candidate fetching, ranking, diversity selection, and the
// two-source blend.
type RecommendationOrchestrator struct {
	matcher  *RuleMatcher
	fetcher  *CandidateFetcher
	ranker   *TrackRanker
	selector *DiversitySelector
	profiles *ProfileService
	contexts *ContextService
	namer    *PlaylistNamer
	users    UserStore
	rules    RuleStore
	audit    LogSink
	redis    *redis.Client // hot store: results + idempotency, may be nil
	config   *config.RecommendationConfig
	logger   *logrus.Logger
	metrics  *Metrics

	feedbackMu sync.Mutex // serializes the feedback read-modify-write
}

func NewRecommendationOrchestrator(
	matcher *RuleMatcher,
	fetcher *CandidateFetcher,
	ranker *TrackRanker,
	selector *DiversitySelector,
	profiles *ProfileService,
	contexts *ContextService,
	namer *PlaylistNamer,
	users UserStore,
	rules RuleStore,
	audit LogSink,
	redisClient *redis.Client,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
	metrics *Metrics,
) *RecommendationOrchestrator {
	return &RecommendationOrchestrator{
		matcher:  matcher,
		fetcher:  fetcher,
		ranker:   ranker,
		selector: selector,
		profiles: profiles,
		contexts: contexts,
		namer:    namer,
		users:    users,
		rules:    rules,
		audit:    audit,
		redis:    redisClient,
		config:   cfg,
		logger:   logger,
		metrics:  metrics,
	}
}

// Generate runs the full pipeline. Within the idempotency window an
// equivalent recent result is returned instead of a fresh one, unless
// opts.Force is set.
func (o *RecommendationOrchestrator) Generate(ctx context.Context, userID uuid.UUID, c *models.Context, opts GenerateOptions) (*models.RecommendationResult, error) {
	return o.run(ctx, userID, c, opts, false)
}

// Preview runs the identical pipeline without the idempotency check and
// without persisting the result.
func (o *RecommendationOrchestrator) Preview(ctx context.Context, userID uuid.UUID, c *models.Context, opts GenerateOptions) (*models.RecommendationResult, error) {
	return o.run(ctx, userID, c, opts, true)
}

func (o *RecommendationOrchestrator) run(ctx context.Context, userID uuid.UUID, c *models.Context, opts GenerateOptions, preview bool) (*models.RecommendationResult, error) {
	start := time.Now()
	opts = o.clampOptions(opts)

	kind := "generate"
	if preview {
		kind = "preview"
	}

	if c == nil {
		captured, err := o.contexts.Capture(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to capture context: %w", err)
		}
		c = captured
	}

	if !preview && !opts.Force {
		if existing := o.recentResult(ctx, userID, c); existing != nil {
			o.logger.WithFields(logrus.Fields{
				"user_id":           userID,
				"recommendation_id": existing.ID,
			}).Info("Returning recent recommendation from idempotency window")
			existing.Reused = true
			if o.metrics != nil {
				o.metrics.RecommendationsGenerated.WithLabelValues("reused").Inc()
			}
			return existing, nil
		}
	}

	profile, err := o.profiles.Build(ctx, userID)
	if err != nil {
		o.writeAudit(ctx, o.failureRecord(userID, kind, c, err))
		return nil, err
	}

	candidate, err := o.matcher.BuildProfile(ctx, c, profile)
	if err != nil {
		// A rule-store outage degrades to the synthetic profile; candidate
		// quality loss beats failing the request.
		o.logger.WithError(err).Warn("Rule matching failed, degrading to fallback profile")
		candidate = o.matcher.fallbackProfile(c)
	}

	userPortion := int(o.config.UserPortionRatio * float64(opts.TargetLength))
	globalPortion := opts.TargetLength - userPortion

	branchCtx := ctx
	if o.config.BranchTimeout > 0 {
		var cancel context.CancelFunc
		branchCtx, cancel = context.WithTimeout(ctx, o.config.BranchTimeout)
		defer cancel()
	}

	// The branches share no intermediate state, only their final lists.
	var (
		wg          sync.WaitGroup
		userTracks  []models.Track
		userErr     error
		globalTrack []models.Track
		globalErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		userTracks, userErr = o.userLibraryBranch(branchCtx, userID, c, profile, candidate, userPortion)
	}()
	go func() {
		defer wg.Done()
		globalTrack, globalErr = o.catalogBranch(branchCtx, c, profile, candidate, globalPortion, *opts.DiversityWeight)
	}()
	wg.Wait()

	if userErr != nil {
		// Per-branch failure is absorbed; the branch is treated as empty.
		o.logger.WithError(userErr).WithField("user_id", userID).Warn("User library branch failed")
		if o.metrics != nil {
			o.metrics.BranchFailures.WithLabelValues("user").Inc()
		}
		userTracks = nil
	}

	if globalErr != nil {
		o.logger.WithError(globalErr).WithField("user_id", userID).Warn("Catalog branch failed")
		if o.metrics != nil {
			o.metrics.BranchFailures.WithLabelValues("global").Inc()
		}
		if len(userTracks) == 0 {
			err := fmt.Errorf("%w: %v", ErrServiceUnavailable, globalErr)
			o.writeAudit(ctx, o.failureRecord(userID, kind, c, err))
			return nil, err
		}
		globalTrack = nil
	}

	if ctx.Err() != nil {
		err := fmt.Errorf("%w: %v", ErrServiceUnavailable, ctx.Err())
		o.writeAudit(ctx, o.failureRecord(userID, kind, c, err))
		return nil, err
	}

	if len(userTracks) == 0 && len(globalTrack) == 0 {
		o.writeAudit(ctx, o.failureRecord(userID, kind, c, ErrNoCandidates))
		return nil, ErrNoCandidates
	}

	result := &models.RecommendationResult{
		ID:              uuid.New(),
		UserID:          userID,
		Context:         *c,
		FromUserLibrary: userTracks,
		FromCatalog:     globalTrack,
		PlaylistName:    o.namer.Name(c),
		Description:     o.namer.Description(c),
		Confidence:      blendConfidence(userTracks, globalTrack),
		Diversity:       diversityMetrics(append(append([]models.Track{}, userTracks...), globalTrack...)),
		AppliedRules:    candidate.AppliedRules,
		GeneratedAt:     time.Now(),
	}

	if !preview {
		o.storeResult(ctx, result)
	}
	o.writeAudit(ctx, o.successRecord(result, kind, profile))

	if o.metrics != nil {
		o.metrics.RecommendationsGenerated.WithLabelValues(kind).Inc()
		o.metrics.RecommendationLatency.Observe(time.Since(start).Seconds())
	}

	o.logger.WithFields(logrus.Fields{
		"user_id":           userID,
		"recommendation_id": result.ID,
		"user_tracks":       len(userTracks),
		"catalog_tracks":    len(globalTrack),
		"confidence":        result.Confidence,
		"latency":           time.Since(start),
	}).Info("Recommendations generated")

	return result, nil
}

// userLibraryBranch sources candidates from the user's own playlists:
// dedupe, context-filter, rank, then a stricter diversity selection.
func (o *RecommendationOrchestrator) userLibraryBranch(
	ctx context.Context,
	userID uuid.UUID,
	c *models.Context,
	profile *models.UserProfile,
	candidate *models.CandidateProfile,
	target int,
) ([]models.Track, error) {
	if target <= 0 {
		return nil, nil
	}

	playlists, err := o.users.GetPlaylists(ctx, userID, o.config.MaxUserPlaylists)
	if err != nil {
		return nil, fmt.Errorf("failed to list user playlists: %w", err)
	}
	if len(playlists) == 0 {
		return nil, nil
	}

	var pool []models.Track
	for _, playlist := range playlists {
		tracks, err := o.users.GetPlaylistTracks(ctx, playlist.ID, target*candidateOverfetch)
		if err != nil {
			o.logger.WithError(err).WithField("playlist_id", playlist.ID).Warn("Failed to load playlist tracks")
			continue
		}
		pool = append(pool, tracks...)
	}

	pool = dedupeTracks(pool)
	pool = filterExcluded(pool, candidate, profile)
	if len(pool) == 0 {
		return nil, nil
	}

	ranked := o.ranker.Rank(pool, c, profile, candidate)
	return o.selector.Select(ranked, target, o.config.UserDiversityWeight), nil
}

// catalogBranch runs the full matcher-fetcher-ranker-selector pipeline
// against the general catalog.
func (o *RecommendationOrchestrator) catalogBranch(
	ctx context.Context,
	c *models.Context,
	profile *models.UserProfile,
	candidate *models.CandidateProfile,
	target int,
	diversityWeight float64,
) ([]models.Track, error) {
	if target <= 0 {
		return nil, nil
	}

	pool, err := o.fetcher.Fetch(ctx, candidate, target)
	if err != nil {
		return nil, err
	}

	pool = filterExcluded(pool, candidate, profile)
	ranked := o.ranker.Rank(pool, c, profile, candidate)
	return o.selector.Select(ranked, target, diversityWeight), nil
}

// filterExcluded drops tracks hitting the profile's exclusion lists.
func filterExcluded(pool []models.Track, candidate *models.CandidateProfile, profile *models.UserProfile) []models.Track {
	if candidate == nil || (len(candidate.ExcludeGenres) == 0 && len(candidate.ExcludeArtists) == 0) {
		return pool
	}

	out := pool[:0]
	for _, track := range pool {
		excluded := false
		for _, genre := range candidate.ExcludeGenres {
			if genreMatches(track.Genres, genre) {
				excluded = true
				break
			}
		}
		if !excluded {
			for _, artist := range candidate.ExcludeArtists {
				if containsFold(track.Artists, artist) {
					excluded = true
					break
				}
			}
		}
		if !excluded {
			out = append(out, track)
		}
	}
	return out
}

// blendConfidence is the weighted average of each branch's mean score,
// renormalized when one branch is absent.
func blendConfidence(userTracks, globalTracks []models.Track) float64 {
	userMean, userOK := meanScore(userTracks)
	globalMean, globalOK := meanScore(globalTracks)

	switch {
	case userOK && globalOK:
		return userConfidenceWeight*userMean + globalConfidenceWeight*globalMean
	case userOK:
		return userMean
	case globalOK:
		return globalMean
	default:
		return 0
	}
}

func meanScore(tracks []models.Track) (float64, bool) {
	if len(tracks) == 0 {
		return 0, false
	}
	scores := make([]float64, len(tracks))
	for i, t := range tracks {
		scores[i] = t.Score
	}
	return stat.Mean(scores, nil), true
}

// diversityMetrics summarizes the spread of the combined list using
// population variance.
func diversityMetrics(tracks []models.Track) models.DiversityMetrics {
	if len(tracks) == 0 {
		return models.DiversityMetrics{}
	}

	artists := make(map[string]struct{})
	tempos := make([]float64, len(tracks))
	valences := make([]float64, len(tracks))
	for i, t := range tracks {
		for _, artist := range t.Artists {
			artists[strings.ToLower(artist)] = struct{}{}
		}
		tempos[i] = t.Features.Tempo
		valences[i] = t.Features.Valence
	}

	return models.DiversityMetrics{
		DistinctArtists: len(artists),
		TempoVariance:   stat.PopVariance(tempos, nil),
		ValenceVariance: stat.PopVariance(valences, nil),
	}
}

func (o *RecommendationOrchestrator) clampOptions(opts GenerateOptions) GenerateOptions {
	if opts.TargetLength == 0 {
		opts.TargetLength = o.config.DefaultTargetLength
	}
	if opts.TargetLength < o.config.MinTargetLength {
		opts.TargetLength = o.config.MinTargetLength
	}
	if opts.TargetLength > o.config.MaxTargetLength {
		opts.TargetLength = o.config.MaxTargetLength
	}
	if opts.DiversityWeight == nil || *opts.DiversityWeight < 0 || *opts.DiversityWeight > 1 {
		w := o.config.DiversityWeight
		opts.DiversityWeight = &w
	}
	return opts
}

// Get returns a previously generated recommendation by id.
func (o *RecommendationOrchestrator) Get(ctx context.Context, recommendationID uuid.UUID) (*models.RecommendationResult, error) {
	return o.loadResult(ctx, recommendationID)
}

// ProcessFeedback records a click/play/save/rate event against a stored
// recommendation, recomputes its engagement score, and feeds rule
// effectiveness back to the rule store.
func (o *RecommendationOrchestrator) ProcessFeedback(ctx context.Context, recommendationID uuid.UUID, event *models.FeedbackEvent) error {
	// Interaction counts are best-effort engagement stats. The mutex keeps
	// concurrent events within this process from dropping counts; updates
	// from separate instances can still interleave.
	o.feedbackMu.Lock()
	defer o.feedbackMu.Unlock()

	result, err := o.loadResult(ctx, recommendationID)
	if err != nil {
		return err
	}
	if result.UserID != event.UserID {
		return fmt.Errorf("recommendation %s: %w", recommendationID, ErrNotFound)
	}

	now := time.Now()
	if event.Timestamp.IsZero() {
		event.Timestamp = now
	}

	switch event.EventType {
	case "click":
		result.Interaction.Clicks++
	case "play":
		result.Interaction.Plays++
	case "save":
		result.Interaction.Saves++
	case "rate":
		result.Interaction.Ratings++
		result.Interaction.RatingTotal += event.Rating
	default:
		return fmt.Errorf("unknown feedback event type %q", event.EventType)
	}
	result.Interaction.LastEvent = &now
	result.Engagement = engagementScore(result.Interaction)

	o.storeResult(ctx, result)

	positive := event.EventType == "save" || event.EventType == "play" ||
		(event.EventType == "rate" && event.Rating >= 3.5)

	if event.EventType == "rate" && !positive {
		// A poor rating should not keep being served from the reuse window.
		o.dropIdempotencyMarker(ctx, result)
	}

	for _, applied := range result.AppliedRules {
		if applied.Fallback || applied.RuleID == uuid.Nil {
			continue
		}
		if err := o.rules.UpdateEffectiveness(ctx, applied.RuleID, true, positive, event.Rating); err != nil {
			o.logger.WithError(err).WithField("rule_id", applied.RuleID).Warn("Failed to update rule effectiveness")
		}
	}

	o.logger.WithFields(logrus.Fields{
		"recommendation_id": recommendationID,
		"user_id":           event.UserID,
		"event_type":        event.EventType,
		"engagement":        result.Engagement,
	}).Info("Recommendation feedback recorded")

	return nil
}

// engagementScore blends interaction counts into a 0-1 score.
func engagementScore(in models.Interaction) float64 {
	score := float64(in.Clicks)*clickEngagement +
		float64(in.Plays)*playEngagement +
		float64(in.Saves)*saveEngagement
	if in.Ratings > 0 {
		score += (in.RatingTotal / float64(in.Ratings)) / 5 * ratingEngagement
	}
	return clamp01(score)
}

// Result store and idempotency window

func (o *RecommendationOrchestrator) storeResult(ctx context.Context, result *models.RecommendationResult) {
	if o.redis == nil {
		return
	}

	data, err := json.Marshal(result)
	if err != nil {
		o.logger.WithError(err).Warn("Failed to marshal recommendation result")
		return
	}

	ttl := o.config.ResultTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	if err := o.redis.Set(ctx, resultKey(result.ID), data, ttl).Err(); err != nil {
		o.logger.WithError(err).Warn("Failed to store recommendation result")
		return
	}

	window := o.config.IdempotencyWindow
	if window <= 0 {
		window = 2 * time.Hour
	}
	if err := o.redis.Set(ctx, o.idempotencyKey(result.UserID, &result.Context), result.ID.String(), window).Err(); err != nil {
		o.logger.WithError(err).Warn("Failed to store idempotency marker")
	}
}

func (o *RecommendationOrchestrator) dropIdempotencyMarker(ctx context.Context, result *models.RecommendationResult) {
	if o.redis == nil {
		return
	}
	if err := o.redis.Del(ctx, o.idempotencyKey(result.UserID, &result.Context)).Err(); err != nil {
		o.logger.WithError(err).Warn("Failed to drop idempotency marker")
	}
}

func (o *RecommendationOrchestrator) recentResult(ctx context.Context, userID uuid.UUID, c *models.Context) *models.RecommendationResult {
	if o.redis == nil {
		return nil
	}

	idStr, err := o.redis.Get(ctx, o.idempotencyKey(userID, c)).Result()
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil
	}

	result, err := o.loadResult(ctx, id)
	if err != nil {
		return nil
	}
	return result
}

func (o *RecommendationOrchestrator) loadResult(ctx context.Context, id uuid.UUID) (*models.RecommendationResult, error) {
	if o.redis == nil {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}

	data, err := o.redis.Get(ctx, resultKey(id)).Result()
	if err == redis.Nil {
		return nil, fmt.Errorf("recommendation %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recommendation: %w", err)
	}

	var result models.RecommendationResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to decode recommendation: %w", err)
	}
	return &result, nil
}

func resultKey(id uuid.UUID) string {
	return "recommendation:" + id.String()
}

// idempotencyKey scopes the reuse window to user, time-of-day, weather,
// and city.
func (o *RecommendationOrchestrator) idempotencyKey(userID uuid.UUID, c *models.Context) string {
	city := strings.ToLower(strings.ReplaceAll(c.Location.City, " ", "_"))
	return fmt.Sprintf("recent:%s:%s:%s:%s", userID, c.TimeOfDay, c.Weather, city)
}

// Audit log. Failures are swallowed: logging must never fail a request.

func (o *RecommendationOrchestrator) writeAudit(ctx context.Context, record *models.AuditRecord) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Write(ctx, record); err != nil {
		if o.metrics != nil {
			o.metrics.AuditWriteFailures.Inc()
		}
		o.logger.WithError(err).Warn("Failed to write audit record")
	}
}

func (o *RecommendationOrchestrator) successRecord(result *models.RecommendationResult, kind string, profile *models.UserProfile) *models.AuditRecord {
	summary := ""
	if profile != nil {
		summary = fmt.Sprintf("top_artists=%d top_genres=%d recent=%d",
			len(profile.TopArtists), len(profile.TopGenres), len(profile.RecentTracks))
	}
	return &models.AuditRecord{
		RecommendationID: result.ID,
		UserID:           result.UserID,
		Kind:             kind,
		Fingerprint:      result.Context.Fingerprint(),
		Context:          result.Context,
		ProfileSummary:   summary,
		AppliedRules:     result.AppliedRules,
		Tracks:           result.Tracks(),
		PlaylistName:     result.PlaylistName,
		Confidence:       result.Confidence,
		Diversity:        result.Diversity,
		Timestamp:        time.Now(),
	}
}

func (o *RecommendationOrchestrator) failureRecord(userID uuid.UUID, kind string, c *models.Context, err error) *models.AuditRecord {
	record := &models.AuditRecord{
		UserID:    userID,
		Kind:      kind,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
	if c != nil {
		record.Context = *c
		record.Fingerprint = c.Fingerprint()
	}
	return record
}
