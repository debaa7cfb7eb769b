package services

import (
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// Fixed weights of the scoring model. The four components always sum to 1.
const (
	contextWeight    = 0.40
	preferenceWeight = 0.35
	popularityWeight = 0.15
	noveltyWeight    = 0.10

	recentlyPlayedPenalty = 0.7
	explicitPenalty       = 0.5
)

// Popularity sweet spot: familiar enough to land, niche enough to feel
// personal.
const (
	sweetSpotLow  = 30
	sweetSpotHigh = 80
)

// TrackRanker scores candidate tracks against context and user taste with
// a fixed weighted-sum model.
type TrackRanker struct {
	logger *logrus.Logger
}

func NewTrackRanker(logger *logrus.Logger) *TrackRanker {
	return &TrackRanker{logger: logger}
}

// Rank scores and sorts the pool descending. Ranking degrades instead of
// aborting: any internal panic yields the original pool with uniform score
// 0.5 and no reasons.
func (r *TrackRanker) Rank(
	pool []models.Track,
	c *models.Context,
	user *models.UserProfile,
	profile *models.CandidateProfile,
) (ranked []models.Track) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithField("panic", rec).Error("Ranking failed, returning unranked pool")
			ranked = uniformScores(pool)
		}
	}()

	ranked = make([]models.Track, len(pool))
	copy(ranked, pool)

	for i := range ranked {
		r.scoreTrack(&ranked[i], c, user, profile)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		if ranked[i].Popularity != ranked[j].Popularity {
			return ranked[i].Popularity > ranked[j].Popularity
		}
		return ranked[i].ID < ranked[j].ID
	})

	return ranked
}

func (r *TrackRanker) scoreTrack(t *models.Track, c *models.Context, user *models.UserProfile, profile *models.CandidateProfile) {
	ctxScore := clamp01(contextScore(t, c, profile))
	prefScore := clamp01(preferenceScore(t, user))
	popScore := clamp01(float64(t.Popularity) / 100)
	novScore := clamp01(noveltyScore(t, user))

	score := contextWeight*ctxScore +
		preferenceWeight*prefScore +
		popularityWeight*popScore +
		noveltyWeight*novScore

	var reasons []string
	if ctxScore > 0.7 {
		reasons = append(reasons, "Great context match")
	}
	if prefScore > 0.7 {
		reasons = append(reasons, "Matches your taste")
	}
	if novScore > 0.7 {
		reasons = append(reasons, "Something new for you")
	}
	if t.Popularity > 80 {
		reasons = append(reasons, "Popular right now")
	}

	// Penalties apply after the weighted sum, recency first.
	if user != nil && user.RecentlyPlayed(t.ID) {
		score *= recentlyPlayedPenalty
		reasons = append(reasons, "Played recently")
	}
	if t.Explicit && user != nil && user.Preferences.AvoidExplicit {
		score *= explicitPenalty
	}

	t.Score = clamp01(score)
	t.Scores = models.TrackScores{
		Context:    ctxScore,
		Preference: prefScore,
		Popularity: popScore,
		Novelty:    novScore,
	}
	t.Reasons = reasons
}

// contextScore blends genre overlap with the candidate profile, boosted
// artists, and mood/weather keywords in the track name.
func contextScore(t *models.Track, c *models.Context, profile *models.CandidateProfile) float64 {
	if profile == nil {
		return 0
	}

	score := 0.0

	for _, g := range profile.Genres {
		if genreMatches(t.Genres, g.Name) {
			score += 0.3
			break
		}
	}

	for _, boost := range profile.BoostArtists {
		if containsFold(t.Artists, boost.Name) {
			score += 0.4
			break
		}
	}

	if c != nil && nameMatchesContext(t.Name, c) {
		score += 0.3
	}

	return score
}

// preferenceScore rewards known artists, name overlap with favorite
// tracks, and the popularity sweet spot.
func preferenceScore(t *models.Track, user *models.UserProfile) float64 {
	if user == nil {
		return 0
	}

	score := 0.0
	if user.HasTopArtist(t.Artists...) {
		score += 0.4
	}

	shared := sharedSignificantWords(t.Name, user.TopTracks)
	wordScore := float64(shared) * 0.1
	if wordScore > 0.3 {
		wordScore = 0.3
	}
	score += wordScore

	switch {
	case t.Popularity >= sweetSpotLow && t.Popularity <= sweetSpotHigh:
		score += 0.3
	case t.Popularity > sweetSpotHigh:
		score += 0.2
	default:
		score += 0.1
	}

	return score
}

// noveltyScore favors the unheard: unknown artists with some traction
// score highest, repeats lowest.
func noveltyScore(t *models.Track, user *models.UserProfile) float64 {
	if user == nil {
		return 0.5
	}

	switch {
	case user.RecentlyPlayed(t.ID):
		return 0.1
	case user.HasTopArtist(t.Artists...):
		return 0.6
	case t.Popularity > 20:
		return 0.8
	default:
		return 0.5
	}
}

var weatherKeywords = map[models.WeatherCondition][]string{
	models.WeatherSunny:  {"sun", "summer", "shine", "light"},
	models.WeatherRainy:  {"rain", "storm", "umbrella"},
	models.WeatherSnowy:  {"snow", "winter", "cold"},
	models.WeatherStormy: {"storm", "thunder"},
	models.WeatherCloudy: {"cloud", "grey", "gray"},
	models.WeatherFoggy:  {"fog", "mist"},
	models.WeatherWindy:  {"wind", "breeze"},
}

var moodKeywords = map[models.Mood][]string{
	models.MoodHappy:     {"happy", "joy", "smile", "good"},
	models.MoodSad:       {"sad", "tears", "blue", "lonely"},
	models.MoodEnergetic: {"run", "fire", "power", "dance"},
	models.MoodCalm:      {"calm", "slow", "quiet", "easy"},
	models.MoodFocused:   {"focus", "study", "work"},
	models.MoodRomantic:  {"love", "heart", "kiss"},
	models.MoodMelanchol: {"memory", "gone", "ghost"},
}

func nameMatchesContext(name string, c *models.Context) bool {
	lower := strings.ToLower(name)
	for _, kw := range weatherKeywords[c.Weather] {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	if c.Mood != nil {
		for _, kw := range moodKeywords[c.Mood.Mood] {
			if strings.Contains(lower, kw) {
				return true
			}
		}
	}
	return false
}

// genreMatches does a case-insensitive substring match in both directions,
// so "indie" matches "indie rock" and vice versa.
func genreMatches(trackGenres []string, candidate string) bool {
	lc := strings.ToLower(candidate)
	for _, g := range trackGenres {
		lg := strings.ToLower(g)
		if strings.Contains(lg, lc) || strings.Contains(lc, lg) {
			return true
		}
	}
	return false
}

// sharedSignificantWords counts words longer than 3 characters shared
// between the track name and the user's top track names.
func sharedSignificantWords(name string, topTracks []models.Track) int {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(strings.ToLower(name)) {
		if len(w) > 3 {
			words[w] = struct{}{}
		}
	}
	if len(words) == 0 {
		return 0
	}

	shared := 0
	counted := make(map[string]struct{})
	for _, top := range topTracks {
		for _, w := range strings.Fields(strings.ToLower(top.Name)) {
			if len(w) <= 3 {
				continue
			}
			if _, ok := words[w]; !ok {
				continue
			}
			if _, done := counted[w]; done {
				continue
			}
			counted[w] = struct{}{}
			shared++
		}
	}
	return shared
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}

func uniformScores(pool []models.Track) []models.Track {
	out := make([]models.Track, len(pool))
	copy(out, pool)
	for i := range out {
		out[i].Score = 0.5
		out[i].Scores = models.TrackScores{}
		out[i].Reasons = nil
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
