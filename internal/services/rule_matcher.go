package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/config"
	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// Match score bonuses for exact condition hits. A mood hit is worth more
// than a time or weather hit because mood conditions are rarer.
const (
	timeOfDayBonus = 2.0
	weatherBonus   = 2.0
	moodBonus      = 3.0

	fallbackRuleWeight     = 1.0
	fallbackRuleMatchScore = 0.5
)

// RuleMatcher selects and scores context-matching rules and folds their
// weighted hints into one normalized candidate profile.
type RuleMatcher struct {
	rules   RuleStore
	cache   *redis.Client // warm cache, may be nil
	config  *config.RecommendationConfig
	logger  *logrus.Logger
	metrics *Metrics
}

func NewRuleMatcher(
	rules RuleStore,
	cache *redis.Client,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
	metrics *Metrics,
) *RuleMatcher {
	return &RuleMatcher{
		rules:   rules,
		cache:   cache,
		config:  cfg,
		logger:  logger,
		metrics: metrics,
	}
}

// Match returns the top-N rules matching the context, each with its match
// score. Non-matching rules score zero and are dropped. Results are cached
// per context fingerprint; staleness only costs a recomputation.
func (m *RuleMatcher) Match(ctx context.Context, c *models.Context, limit int) ([]models.MatchedRule, error) {
	if limit <= 0 {
		limit = m.config.RuleMatchLimit
	}

	if cached := m.getCachedMatches(ctx, c, limit); cached != nil {
		if m.metrics != nil {
			m.metrics.RuleCacheHits.Inc()
		}
		return cached, nil
	}
	if m.metrics != nil {
		m.metrics.RuleCacheMisses.Inc()
	}

	rules, err := m.rules.FindMatchingRules(ctx, c, limit*10)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}

	// Pre-sort by priority then historical success rate so equal-score
	// rules keep a stable order.
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Effectiveness.SuccessRate > rules[j].Effectiveness.SuccessRate
	})

	var matched []models.MatchedRule
	for _, rule := range rules {
		score := m.scoreRule(&rule, c)
		if score <= 0 {
			continue
		}
		matched = append(matched, models.MatchedRule{Rule: rule, MatchScore: score})
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].MatchScore > matched[j].MatchScore
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	m.cacheMatches(ctx, c, limit, matched)

	return matched, nil
}

// scoreRule computes the match score: base priority plus exact-hit bonuses,
// scaled by historical success. Returns 0 for a non-matching rule.
func (m *RuleMatcher) scoreRule(rule *models.Rule, c *models.Context) float64 {
	if !rule.Active || rule.Priority <= 0 || !rule.Matches(c) {
		return 0
	}

	score := float64(rule.Priority)
	if len(rule.Conditions.TimesOfDay) > 0 {
		score += timeOfDayBonus
	}
	if len(rule.Conditions.Weather) > 0 {
		score += weatherBonus
	}
	if len(rule.Conditions.Moods) > 0 {
		score += moodBonus
	}

	return score * (1 + rule.Effectiveness.SuccessRate)
}

// BuildProfile matches rules against the context and combines them into a
// candidate profile, falling back to context heuristics when nothing
// matches. User taste boosts are derived from the profile when present.
func (m *RuleMatcher) BuildProfile(ctx context.Context, c *models.Context, user *models.UserProfile) (*models.CandidateProfile, error) {
	matched, err := m.Match(ctx, c, m.config.RuleMatchLimit)
	if err != nil {
		return nil, err
	}

	var profile *models.CandidateProfile
	if len(matched) == 0 {
		profile = m.fallbackProfile(c)
		if m.metrics != nil {
			m.metrics.FallbackProfiles.Inc()
		}
		m.logger.WithField("fingerprint", c.Fingerprint()).
			Info("No rules matched, using fallback candidate profile")
	} else {
		profile = combineRules(matched)
	}

	if user != nil {
		profile.BoostGenres = rankDecayedBoosts(user.TopGenres, 10)
		artistNames := make([]string, 0, len(user.TopArtists))
		for _, a := range user.TopArtists {
			artistNames = append(artistNames, a.Name)
		}
		profile.BoostArtists = rankDecayedBoosts(artistNames, 10)
	}

	return profile, nil
}

// combineRules is a pure fold over the matched rules. Each rule contributes
// with weight priority*matchScore; accumulated theme/genre weights are
// normalized by the total contribution so they sum to 1. Feature ranges
// intersect on min/max and weight-average on target. Tag and exclusion sets
// union.
func combineRules(matched []models.MatchedRule) *models.CandidateProfile {
	themes := make(map[string]float64)
	genres := make(map[string]float64)
	targets := make(map[string]*featureAccumulator)
	tags := make(map[string]struct{})
	excludeGenres := make(map[string]struct{})
	excludeArtists := make(map[string]struct{})

	applied := make([]models.AppliedRule, 0, len(matched))
	totalWeight := 0.0

	for _, mr := range matched {
		contribution := float64(mr.Rule.Priority) * mr.MatchScore
		totalWeight += contribution

		rec := mr.Rule.Recommendation
		for name, w := range rec.Themes {
			themes[name] += w * contribution
		}
		for name, w := range rec.Genres {
			genres[name] += w * contribution
		}
		for feature, r := range rec.AudioTargets {
			acc, ok := targets[feature]
			if !ok {
				acc = &featureAccumulator{}
				targets[feature] = acc
			}
			acc.add(r, contribution)
		}
		for _, t := range rec.Tags {
			tags[t] = struct{}{}
		}
		for _, g := range rec.ExcludeGenres {
			excludeGenres[g] = struct{}{}
		}
		for _, a := range rec.ExcludeArtists {
			excludeArtists[a] = struct{}{}
		}

		applied = append(applied, models.AppliedRule{
			RuleID:     mr.Rule.ID,
			Name:       mr.Rule.Name,
			Priority:   mr.Rule.Priority,
			MatchScore: mr.MatchScore,
			Weight:     contribution,
		})
	}

	// Normalize so weights sum to 1. A zero total can only happen with an
	// empty match set, which callers route to the fallback instead; the
	// guard stays to keep the division safe.
	if totalWeight > 0 {
		for name := range themes {
			themes[name] /= totalWeight
		}
		for name := range genres {
			genres[name] /= totalWeight
		}
	}

	merged := make(map[string]models.FeatureRange, len(targets))
	for feature, acc := range targets {
		merged[feature] = acc.merged()
	}

	return &models.CandidateProfile{
		Themes:         rankWeights(themes),
		Genres:         rankWeights(genres),
		AudioTargets:   merged,
		Tags:           sortedKeys(tags),
		ExcludeGenres:  sortedKeys(excludeGenres),
		ExcludeArtists: sortedKeys(excludeArtists),
		AppliedRules:   applied,
	}
}

// featureAccumulator merges feature ranges across rules: the tighter bound
// wins for min/max, targets and weights combine by weighted average.
type featureAccumulator struct {
	min         *float64
	max         *float64
	targetSum   float64
	weightSum   float64
	totalWeight float64
}

func (a *featureAccumulator) add(r models.FeatureRange, contribution float64) {
	if r.Min != nil && (a.min == nil || *r.Min > *a.min) {
		v := *r.Min
		a.min = &v
	}
	if r.Max != nil && (a.max == nil || *r.Max < *a.max) {
		v := *r.Max
		a.max = &v
	}
	a.targetSum += r.Target * contribution
	a.weightSum += r.Weight * contribution
	a.totalWeight += contribution
}

func (a *featureAccumulator) merged() models.FeatureRange {
	out := models.FeatureRange{Min: a.min, Max: a.max}
	if a.totalWeight > 0 {
		out.Target = a.targetSum / a.totalWeight
		out.Weight = a.weightSum / a.totalWeight
	}
	return out
}

// fallbackProfile synthesizes a candidate profile from time/weather
// heuristics when no stored rule matches, recorded as one synthetic rule
// application.
func (m *RuleMatcher) fallbackProfile(c *models.Context) *models.CandidateProfile {
	var genreNames []string
	switch c.TimeOfDay {
	case models.Morning:
		genreNames = []string{"pop", "indie", "electronic"}
	case models.Afternoon:
		genreNames = []string{"pop", "rock", "indie"}
	case models.Evening:
		genreNames = []string{"chill", "r&b", "soul"}
	default:
		genreNames = []string{"lofi", "electronic", "ambient"}
	}

	energy := 0.5
	switch c.TimeOfDay {
	case models.Morning:
		energy = 0.7
	case models.Afternoon:
		energy = 0.6
	case models.Evening:
		energy = 0.5
	case models.Night:
		energy = 0.4
	}

	valence := 0.5
	switch c.Weather {
	case models.WeatherSunny:
		valence = 0.7
	case models.WeatherRainy, models.WeatherStormy:
		valence = 0.4
		energy -= 0.1
	case models.WeatherSnowy, models.WeatherFoggy:
		valence = 0.45
	}

	genres := make([]models.WeightedName, len(genreNames))
	fallbackWeights := []float64{0.5, 0.3, 0.2}
	for i, name := range genreNames {
		genres[i] = models.WeightedName{Name: name, Weight: fallbackWeights[i]}
	}

	return &models.CandidateProfile{
		Genres: genres,
		Themes: []models.WeightedName{{Name: string(c.TimeOfDay), Weight: 1.0}},
		AudioTargets: map[string]models.FeatureRange{
			models.FeatureEnergy:  {Target: energy, Weight: 1.0},
			models.FeatureValence: {Target: valence, Weight: 1.0},
		},
		Tags: []string{"fallback", string(c.TimeOfDay), string(c.Weather)},
		AppliedRules: []models.AppliedRule{{
			Name:       "fallback",
			MatchScore: fallbackRuleMatchScore,
			Weight:     fallbackRuleWeight,
			Fallback:   true,
		}},
		Fallback: true,
	}
}

// rankDecayedBoosts turns a ranked name list into weighted boosts with a
// 1/(rank+1) decay.
func rankDecayedBoosts(names []string, limit int) []models.WeightedName {
	if len(names) > limit {
		names = names[:limit]
	}
	boosts := make([]models.WeightedName, len(names))
	for i, name := range names {
		boosts[i] = models.WeightedName{Name: name, Weight: 1.0 / float64(i+1)}
	}
	return boosts
}

func rankWeights(weights map[string]float64) []models.WeightedName {
	ranked := make([]models.WeightedName, 0, len(weights))
	for name, w := range weights {
		ranked = append(ranked, models.WeightedName{Name: name, Weight: w})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Cache operations

func (m *RuleMatcher) getCachedMatches(ctx context.Context, c *models.Context, limit int) []models.MatchedRule {
	if m.cache == nil {
		return nil
	}

	cached, err := m.cache.Get(ctx, m.cacheKey(c, limit)).Result()
	if err != nil {
		return nil
	}

	var matched []models.MatchedRule
	if err := json.Unmarshal([]byte(cached), &matched); err != nil {
		return nil
	}
	return matched
}

func (m *RuleMatcher) cacheMatches(ctx context.Context, c *models.Context, limit int, matched []models.MatchedRule) {
	if m.cache == nil {
		return
	}

	data, err := json.Marshal(matched)
	if err != nil {
		return
	}

	ttl := m.config.RuleCacheTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if err := m.cache.Set(ctx, m.cacheKey(c, limit), data, ttl).Err(); err != nil {
		m.logger.WithError(err).Warn("Failed to cache rule matches")
	}
}

// cacheKey scopes cached matches to both the context fingerprint and the
// requested limit, so a small-limit call never serves a larger cached set.
func (m *RuleMatcher) cacheKey(c *models.Context, limit int) string {
	return fmt.Sprintf("rulematch:%d:%s", limit, c.Fingerprint())
}
