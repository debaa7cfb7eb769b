package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

func rankedPool(n int, artist func(i int) string, score func(i int) float64) []models.Track {
	pool := make([]models.Track, n)
	for i := range pool {
		pool[i] = models.Track{
			ID:      fmt.Sprintf("t-%02d", i),
			Name:    fmt.Sprintf("Track %d", i),
			Artists: []string{artist(i)},
			Score:   score(i),
		}
	}
	return pool
}

func TestDiversitySelector_Select(t *testing.T) {
	selector := NewDiversitySelector(testLogger())

	t.Run("takes distinct-artist tracks up to target", func(t *testing.T) {
		pool := rankedPool(30,
			func(i int) string { return fmt.Sprintf("Artist %d", i) },
			func(i int) float64 { return 0.9 - float64(i)*0.01 },
		)

		selected := selector.Select(pool, 20, 0.3)

		require.Len(t, selected, 20)
		// Ranked order is preserved when no penalties fire.
		assert.Equal(t, "t-00", selected[0].ID)
		assert.Equal(t, "t-19", selected[19].ID)
	})

	t.Run("keeps lenient slots open for low scorers", func(t *testing.T) {
		// Every track scores below the admission threshold; the lenient
		// window still fills ceil(0.7*20)=14 slots, then the under-fill
		// fallback tops up to the target.
		pool := rankedPool(25,
			func(i int) string { return fmt.Sprintf("Artist %d", i) },
			func(i int) float64 { return 0.1 },
		)

		selected := selector.Select(pool, 20, 0.3)

		assert.Len(t, selected, 20)
	})

	t.Run("under-fill discount marks fallback tracks", func(t *testing.T) {
		pool := rankedPool(5,
			func(i int) string { return fmt.Sprintf("Artist %d", i) },
			func(i int) float64 { return 0.1 },
		)

		selected := selector.Select(pool, 20, 0.3)

		// Pool smaller than target: everything is returned, the
		// below-threshold picks past the lenient window at a discount.
		require.Len(t, selected, 5)
	})

	t.Run("penalizes artist repeats past the lenient window", func(t *testing.T) {
		// 10 tracks by one artist with middling scores plus 10 strong
		// distinct tracks. After the lenient window fills, repeated-artist
		// tracks whose adjusted score drops below the threshold are skipped
		// in the strict phase.
		pool := make([]models.Track, 0, 20)
		for i := 0; i < 10; i++ {
			pool = append(pool, models.Track{
				ID:      fmt.Sprintf("same-%d", i),
				Artists: []string{"Same Artist"},
				Score:   0.30,
			})
		}
		for i := 0; i < 10; i++ {
			pool = append(pool, models.Track{
				ID:      fmt.Sprintf("varied-%d", i),
				Artists: []string{fmt.Sprintf("Varied %d", i)},
				Score:   0.9,
			})
		}

		selected := selector.Select(pool, 10, 1.0)

		require.Len(t, selected, 10)

		varied := 0
		for _, track := range selected {
			if track.Artists[0] != "Same Artist" {
				varied++
			}
		}
		assert.GreaterOrEqual(t, varied, 3, "strict phase should prefer distinct artists")
	})

	t.Run("empty pool yields nil", func(t *testing.T) {
		assert.Nil(t, selector.Select(nil, 20, 0.3))
		assert.Nil(t, selector.Select([]models.Track{{ID: "a", Score: 1}}, 0, 0.3))
	})

	t.Run("out-of-range weight falls back to default", func(t *testing.T) {
		pool := rankedPool(5,
			func(i int) string { return "Same" },
			func(i int) float64 { return 0.9 },
		)

		selected := selector.Select(pool, 5, 4.2)

		assert.Len(t, selected, 5)
	})
}
