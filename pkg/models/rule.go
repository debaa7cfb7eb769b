package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Audio feature names used as keys in feature-target maps.
const (
	FeatureValence          = "valence"
	FeatureEnergy           = "energy"
	FeatureDanceability     = "danceability"
	FeatureAcousticness     = "acousticness"
	FeatureInstrumentalness = "instrumentalness"
	FeatureTempo            = "tempo"
)

// FeatureRange constrains a single audio feature. Min and Max are optional
// bounds; Target is the preferred value and Weight its relative importance
// when ranges from several rules are merged.
type FeatureRange struct {
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
	Target float64  `json:"target"`
	Weight float64  `json:"weight"`
}

type TemperatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// RuleConditions are OR-combined within a field and AND-combined across
// fields. An empty slice or nil pointer means the field is unset and always
// satisfied.
type RuleConditions struct {
	TimesOfDay  []TimeOfDay        `json:"times_of_day,omitempty"`
	Weather     []WeatherCondition `json:"weather,omitempty"`
	Temperature *TemperatureRange  `json:"temperature,omitempty"`
	Countries   []string           `json:"countries,omitempty"`
	Seasons     []Season           `json:"seasons,omitempty"`
	Moods       []Mood             `json:"moods,omitempty"`
	Activities  []string           `json:"activities,omitempty"`
}

// RuleRecommendation is the weighted output payload a matching rule
// contributes to the candidate profile.
type RuleRecommendation struct {
	Themes         map[string]float64      `json:"themes,omitempty"`
	Genres         map[string]float64      `json:"genres,omitempty"`
	AudioTargets   map[string]FeatureRange `json:"audio_targets,omitempty"`
	Tags           []string                `json:"tags,omitempty"`
	ExcludeGenres  []string                `json:"exclude_genres,omitempty"`
	ExcludeArtists []string                `json:"exclude_artists,omitempty"`
}

// RuleEffectiveness tracks how a rule has performed historically. It is
// updated by feedback events, never by the generation path.
type RuleEffectiveness struct {
	AppliedCount  int     `json:"applied_count"`
	SuccessRate   float64 `json:"success_rate"`
	AverageRating float64 `json:"average_rating"`
}

// Rule is a named, prioritized conditional recommendation hint.
type Rule struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Priority       int                `json:"priority"` // 1-10
	Conditions     RuleConditions     `json:"conditions"`
	Recommendation RuleRecommendation `json:"recommendation"`
	Effectiveness  RuleEffectiveness  `json:"effectiveness"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Matches reports whether every populated condition field is satisfied by
// the context. Unset fields are wildcards.
func (r *Rule) Matches(c *Context) bool {
	cond := r.Conditions
	if len(cond.TimesOfDay) > 0 && !containsTimeOfDay(cond.TimesOfDay, c.TimeOfDay) {
		return false
	}
	if len(cond.Weather) > 0 && !containsWeather(cond.Weather, c.Weather) {
		return false
	}
	if cond.Temperature != nil &&
		(c.Temperature < cond.Temperature.Min || c.Temperature > cond.Temperature.Max) {
		return false
	}
	if len(cond.Countries) > 0 && !containsFold(cond.Countries, c.Location.Country) {
		return false
	}
	if len(cond.Seasons) > 0 && !containsSeason(cond.Seasons, c.Season) {
		return false
	}
	if len(cond.Moods) > 0 {
		if c.Mood == nil || !containsMood(cond.Moods, c.Mood.Mood) {
			return false
		}
	}
	if len(cond.Activities) > 0 {
		if c.Activity == nil || !containsFold(cond.Activities, *c.Activity) {
			return false
		}
	}
	return true
}

// MatchedRule pairs a rule with the score it earned against a context.
// Invariant: MatchScore > 0 for every rule that survives matching.
type MatchedRule struct {
	Rule       Rule    `json:"rule"`
	MatchScore float64 `json:"match_score"`
}

// AppliedRule is the audit-level summary of one rule's contribution.
type AppliedRule struct {
	RuleID     uuid.UUID `json:"rule_id"`
	Name       string    `json:"name"`
	Priority   int       `json:"priority"`
	MatchScore float64   `json:"match_score"`
	Weight     float64   `json:"weight"`
	Fallback   bool      `json:"fallback,omitempty"`
}

func containsTimeOfDay(list []TimeOfDay, v TimeOfDay) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsWeather(list []WeatherCondition, v WeatherCondition) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsSeason(list []Season, v Season) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsMood(list []Mood, v Mood) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
