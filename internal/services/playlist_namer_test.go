package services

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlaylistNamer_Name(t *testing.T) {
	namer := NewPlaylistNamer(rand.New(rand.NewSource(42)))
	c := eveningRainyContext()

	// Every template carries the title-cased weather and time of day.
	for i := 0; i < 20; i++ {
		name := namer.Name(c)
		assert.Contains(t, name, "Rainy")
		assert.Contains(t, name, "Evening")
	}
}

func TestPlaylistNamer_ConcurrentUse(t *testing.T) {
	// One namer instance serves every request. Run it hard from several
	// goroutines; the race detector flags any unguarded shared state.
	namer := NewPlaylistNamer(rand.New(rand.NewSource(7)))
	c := eveningRainyContext()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				assert.NotEmpty(t, namer.Name(c))
				assert.NotEmpty(t, namer.Description(c))
			}
		}()
	}
	wg.Wait()
}

func TestPlaylistNamer_Description(t *testing.T) {
	namer := NewPlaylistNamer(rand.New(rand.NewSource(42)))

	t.Run("mentions the city and temperature when known", func(t *testing.T) {
		desc := namer.Description(eveningRainyContext())
		assert.Contains(t, desc, "rainy")
		assert.Contains(t, desc, "evening")
		assert.Contains(t, desc, "in Jakarta (12°)")
	})

	t.Run("omits the location when the city is unknown", func(t *testing.T) {
		c := eveningRainyContext()
		c.Location.City = ""

		desc := namer.Description(c)
		assert.NotContains(t, desc, "in ")
		assert.NotContains(t, desc, "°")
	})
}
