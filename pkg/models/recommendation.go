package models

import (
	"time"

	"github.com/google/uuid"
)

// WeightedName is a (name, weight) pair in a ranked list.
type WeightedName struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// CandidateProfile is the normalized output of combining matched rules:
// the target musical attributes the fetcher and ranker work from.
type CandidateProfile struct {
	Themes         []WeightedName          `json:"themes"` // weight-ranked, best first
	Genres         []WeightedName          `json:"genres"`
	AudioTargets   map[string]FeatureRange `json:"audio_targets,omitempty"`
	Tags           []string                `json:"tags,omitempty"`
	ExcludeGenres  []string                `json:"exclude_genres,omitempty"`
	ExcludeArtists []string                `json:"exclude_artists,omitempty"`
	BoostGenres    []WeightedName          `json:"boost_genres,omitempty"`
	BoostArtists   []WeightedName          `json:"boost_artists,omitempty"`
	AppliedRules   []AppliedRule           `json:"applied_rules"`
	Fallback       bool                    `json:"fallback"`
}

// TopGenres returns up to n genre names, best first.
func (p *CandidateProfile) TopGenres(n int) []string {
	if n > len(p.Genres) {
		n = len(p.Genres)
	}
	names := make([]string, 0, n)
	for _, g := range p.Genres[:n] {
		names = append(names, g.Name)
	}
	return names
}

// TopBoostArtists returns up to n user-boosted artist names, best first.
func (p *CandidateProfile) TopBoostArtists(n int) []string {
	if n > len(p.BoostArtists) {
		n = len(p.BoostArtists)
	}
	names := make([]string, 0, n)
	for _, a := range p.BoostArtists[:n] {
		names = append(names, a.Name)
	}
	return names
}

// DiversityMetrics summarize the spread of a final track list.
type DiversityMetrics struct {
	DistinctArtists int     `json:"distinct_artists"`
	TempoVariance   float64 `json:"tempo_variance"`
	ValenceVariance float64 `json:"valence_variance"`
}

// Interaction counts accumulated against a recommendation by feedback
// events.
type Interaction struct {
	Clicks      int        `json:"clicks"`
	Plays       int        `json:"plays"`
	Saves       int        `json:"saves"`
	Ratings     int        `json:"ratings"`
	RatingTotal float64    `json:"rating_total"`
	LastEvent   *time.Time `json:"last_event,omitempty"`
}

// RecommendationResult is the final artifact: written once, later mutated
// only by feedback recording.
type RecommendationResult struct {
	ID              uuid.UUID        `json:"id"`
	UserID          uuid.UUID        `json:"user_id"`
	Context         Context          `json:"context"`
	FromUserLibrary []Track          `json:"from_user_library,omitempty"`
	FromCatalog     []Track          `json:"from_catalog,omitempty"`
	PlaylistName    string           `json:"playlist_name"`
	Description     string           `json:"description"`
	Confidence      float64          `json:"confidence"`
	Diversity       DiversityMetrics `json:"diversity"`
	AppliedRules    []AppliedRule    `json:"applied_rules"`
	Interaction     Interaction      `json:"interaction"`
	Engagement      float64          `json:"engagement"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Reused          bool             `json:"reused"` // served from the idempotency window
}

// Tracks returns both sections as one list, user-library section first.
func (r *RecommendationResult) Tracks() []Track {
	out := make([]Track, 0, len(r.FromUserLibrary)+len(r.FromCatalog))
	out = append(out, r.FromUserLibrary...)
	out = append(out, r.FromCatalog...)
	return out
}

// FeedbackEvent is a post-hoc interaction with a recommendation.
type FeedbackEvent struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	EventType string    `json:"event_type" validate:"required,oneof=click play save rate"`
	Rating    float64   `json:"rating,omitempty" validate:"omitempty,min=0,max=5"`
	TrackID   string    `json:"track_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditRecord is the append-only log entry written for every invocation.
type AuditRecord struct {
	RecommendationID uuid.UUID        `json:"recommendation_id"`
	UserID           uuid.UUID        `json:"user_id"`
	Kind             string           `json:"kind"` // generate, preview
	Fingerprint      string           `json:"fingerprint"`
	Context          Context          `json:"context"`
	ProfileSummary   string           `json:"profile_summary"`
	AppliedRules     []AppliedRule    `json:"applied_rules,omitempty"`
	Tracks           []Track          `json:"tracks,omitempty"`
	PlaylistName     string           `json:"playlist_name,omitempty"`
	Confidence       float64          `json:"confidence"`
	Diversity        DiversityMetrics `json:"diversity"`
	Error            string           `json:"error,omitempty"`
	Timestamp        time.Time        `json:"timestamp"`
}
