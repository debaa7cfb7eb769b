package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Preferences are the free-form flags from the user's account settings that
// the ranker honors.
type Preferences struct {
	AvoidExplicit bool `json:"avoid_explicit"`
}

// AccountProfile is the raw account record from the user store.
type AccountProfile struct {
	UserID      uuid.UUID   `json:"user_id"`
	DisplayName string      `json:"display_name"`
	Country     string      `json:"country"`
	Preferences Preferences `json:"preferences"`
	CreatedAt   time.Time   `json:"created_at"`
}

// UserProfile is the aggregated taste profile the pipeline scores against:
// account data plus listening history, built fresh per request.
type UserProfile struct {
	UserID          uuid.UUID          `json:"user_id"`
	TopTracks       []Track            `json:"top_tracks"`   // ranked, best first
	TopArtists      []Artist           `json:"top_artists"`  // ranked, best first
	TopGenres       []string           `json:"top_genres"`   // frequency-ranked
	RecentTracks    []Track            `json:"recent_tracks"`
	FeatureAverages map[string]float64 `json:"feature_averages,omitempty"`
	Preferences     Preferences        `json:"preferences"`
}

// HasTopArtist reports whether any of the given artist names is among the
// user's top artists.
func (p *UserProfile) HasTopArtist(names ...string) bool {
	for _, top := range p.TopArtists {
		for _, name := range names {
			if strings.EqualFold(top.Name, name) {
				return true
			}
		}
	}
	return false
}

// RecentlyPlayed reports whether the track id appears in the recent window.
func (p *UserProfile) RecentlyPlayed(trackID string) bool {
	for _, t := range p.RecentTracks {
		if t.ID == trackID {
			return true
		}
	}
	return false
}
