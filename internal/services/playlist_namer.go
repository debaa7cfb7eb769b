package services

import (
	"fmt"
	"math/rand"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// PlaylistNamer decorates results with a name and description. Template
// choice is random; tests inject a seeded source to pin it. One instance
// serves all requests, so the rand source and the caser (neither safe for
// concurrent use) are guarded by the mutex.
type PlaylistNamer struct {
	mu    sync.Mutex
	rand  *rand.Rand
	title cases.Caser
}

func NewPlaylistNamer(r *rand.Rand) *PlaylistNamer {
	return &PlaylistNamer{
		rand:  r,
		title: cases.Title(language.English),
	}
}

var nameTemplates = []string{
	"%s %s Mix",
	"%s %s Vibes",
	"Your %s %s Soundtrack",
	"Songs for a %s %s",
}

var descriptionTemplates = []string{
	"Hand-picked for a %s %s%s. Enjoy!",
	"Tracks to match this %s %s%s.",
	"A blend tuned to your %s %s%s.",
}

// Name produces the playlist title, e.g. "Sunny Morning Mix".
func (n *PlaylistNamer) Name(c *models.Context) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	weather := n.title.String(string(c.Weather))
	timeOfDay := n.title.String(string(c.TimeOfDay))

	template := nameTemplates[n.rand.Intn(len(nameTemplates))]
	return fmt.Sprintf(template, weather, timeOfDay)
}

// Description produces the playlist blurb, mentioning the city and
// temperature when known.
func (n *PlaylistNamer) Description(c *models.Context) string {
	n.mu.Lock()
	defer n.mu.Unlock()

	where := ""
	if c.Location.City != "" {
		where = fmt.Sprintf(" in %s (%.0f°)", c.Location.City, c.Temperature)
	}

	template := descriptionTemplates[n.rand.Intn(len(descriptionTemplates))]
	return fmt.Sprintf(template, string(c.Weather), string(c.TimeOfDay), where)
}
