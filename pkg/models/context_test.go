package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeOfDayForHour(t *testing.T) {
	cases := []struct {
		hour int
		want TimeOfDay
	}{
		{0, Night},
		{4, Night},
		{5, Morning},
		{11, Morning},
		{12, Afternoon},
		{16, Afternoon},
		{17, Evening},
		{21, Evening},
		{22, Night},
		{23, Night},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, TimeOfDayForHour(tc.hour), "hour %d", tc.hour)
	}
}

func TestSeasonFor(t *testing.T) {
	// Northern hemisphere
	assert.Equal(t, Winter, SeasonFor(time.January, 52.5))
	assert.Equal(t, Spring, SeasonFor(time.April, 52.5))
	assert.Equal(t, Summer, SeasonFor(time.July, 52.5))
	assert.Equal(t, Autumn, SeasonFor(time.October, 52.5))
	assert.Equal(t, Winter, SeasonFor(time.December, 52.5))

	// Southern hemisphere flips
	assert.Equal(t, Summer, SeasonFor(time.January, -33.9))
	assert.Equal(t, Autumn, SeasonFor(time.April, -33.9))
	assert.Equal(t, Winter, SeasonFor(time.July, -33.9))
	assert.Equal(t, Spring, SeasonFor(time.October, -33.9))

	// Latitude 0 counts as northern
	assert.Equal(t, Summer, SeasonFor(time.July, 0))
}

func TestContext_Fingerprint(t *testing.T) {
	activity := "working"
	c := &Context{
		TimeOfDay: Evening,
		Weather:   WeatherRainy,
		Season:    Autumn,
		Location:  Location{City: "New York"},
		Mood:      &MoodReading{Mood: MoodCalm, Confidence: 0.8},
		Activity:  &activity,
	}

	assert.Equal(t, "evening|rainy|autumn|new_york|calm|working", c.Fingerprint())

	t.Run("absent fields collapse to a dash", func(t *testing.T) {
		bare := &Context{
			TimeOfDay: Morning,
			Weather:   WeatherSunny,
			Season:    Spring,
		}
		assert.Equal(t, "morning|sunny|spring|-|-|-", bare.Fingerprint())
	})

	t.Run("numeric fields do not affect the key", func(t *testing.T) {
		a := &Context{TimeOfDay: Morning, Weather: WeatherSunny, Season: Spring, Temperature: 5}
		b := &Context{TimeOfDay: Morning, Weather: WeatherSunny, Season: Spring, Temperature: 25, Humidity: 80}
		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})
}
