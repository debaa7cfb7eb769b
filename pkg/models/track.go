package models

// AudioFeatures are the numeric musical attributes attached to a track by
// the catalog's audio analysis.
type AudioFeatures struct {
	Valence          float64 `json:"valence"`
	Energy           float64 `json:"energy"`
	Danceability     float64 `json:"danceability"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Tempo            float64 `json:"tempo"` // BPM
}

// Feature returns the named feature value, or false if the name is unknown.
func (f AudioFeatures) Feature(name string) (float64, bool) {
	switch name {
	case FeatureValence:
		return f.Valence, true
	case FeatureEnergy:
		return f.Energy, true
	case FeatureDanceability:
		return f.Danceability, true
	case FeatureAcousticness:
		return f.Acousticness, true
	case FeatureInstrumentalness:
		return f.Instrumentalness, true
	case FeatureTempo:
		return f.Tempo, true
	}
	return 0, false
}

// TrackScores holds the component sub-scores attached during ranking.
// All values are clamped to [0,1].
type TrackScores struct {
	Context    float64 `json:"context"`
	Preference float64 `json:"preference"`
	Popularity float64 `json:"popularity"`
	Novelty    float64 `json:"novelty"`
}

// Track is a catalog track. Tracks are ephemeral: fetched per request,
// scored, and never persisted by the recommendation core.
type Track struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Artists     []string      `json:"artists"`
	Album       string        `json:"album"`
	Genres      []string      `json:"genres,omitempty"`
	Popularity  int           `json:"popularity"` // 0-100
	DurationMs  int           `json:"duration_ms"`
	Explicit    bool          `json:"explicit"`
	PreviewURL  string        `json:"preview_url,omitempty"`
	ExternalURL string        `json:"external_url,omitempty"`
	Features    AudioFeatures `json:"features"`

	// Set by the ranker.
	Score   float64     `json:"score"`
	Scores  TrackScores `json:"scores"`
	Reasons []string    `json:"reasons,omitempty"`
}

// Artist is the slice of artist metadata the profile builder needs.
type Artist struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Genres     []string `json:"genres,omitempty"`
	Popularity int      `json:"popularity"`
}

// Playlist identifies one of the user's own playlists.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	TrackCount int    `json:"track_count"`
}
