package models

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay buckets the clock into the four listening windows the rule
// engine conditions on.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"
	Afternoon TimeOfDay = "afternoon"
	Evening   TimeOfDay = "evening"
	Night     TimeOfDay = "night"
)

// TimeOfDayForHour maps an hour (0-23) to its listening window.
func TimeOfDayForHour(hour int) TimeOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 22:
		return Evening
	default:
		return Night
	}
}

type WeatherCondition string

const (
	WeatherSunny  WeatherCondition = "sunny"
	WeatherCloudy WeatherCondition = "cloudy"
	WeatherRainy  WeatherCondition = "rainy"
	WeatherSnowy  WeatherCondition = "snowy"
	WeatherStormy WeatherCondition = "stormy"
	WeatherFoggy  WeatherCondition = "foggy"
	WeatherWindy  WeatherCondition = "windy"
)

type Season string

const (
	Spring Season = "spring"
	Summer Season = "summer"
	Autumn Season = "autumn"
	Winter Season = "winter"
)

// SeasonFor derives the season from the month and the hemisphere of the
// latitude. Latitude 0 is treated as northern.
func SeasonFor(month time.Month, latitude float64) Season {
	northern := []Season{Winter, Winter, Spring, Spring, Spring, Summer, Summer, Summer, Autumn, Autumn, Autumn, Winter}
	s := northern[int(month)-1]
	if latitude < 0 {
		switch s {
		case Winter:
			return Summer
		case Summer:
			return Winter
		case Spring:
			return Autumn
		case Autumn:
			return Spring
		}
	}
	return s
}

type Mood string

const (
	MoodHappy     Mood = "happy"
	MoodSad       Mood = "sad"
	MoodEnergetic Mood = "energetic"
	MoodCalm      Mood = "calm"
	MoodFocused   Mood = "focused"
	MoodRomantic  Mood = "romantic"
	MoodMelanchol Mood = "melancholic"
)

// MoodReading is a detected mood with the detector's confidence.
type MoodReading struct {
	Mood       Mood    `json:"mood"`
	Confidence float64 `json:"confidence"`
}

type Location struct {
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Context is an immutable snapshot of the situational signals driving a
// recommendation request. It is captured once per request and never mutated.
type Context struct {
	CapturedAt  time.Time        `json:"captured_at"`
	TimeOfDay   TimeOfDay        `json:"time_of_day"`
	Weather     WeatherCondition `json:"weather"`
	Temperature float64          `json:"temperature"`
	Humidity    float64          `json:"humidity"`
	Location    Location         `json:"location"`
	Season      Season           `json:"season"`
	Mood        *MoodReading     `json:"mood,omitempty"`
	Activity    *string          `json:"activity,omitempty"`
}

// Fingerprint is a deterministic key over the categorical fields, used for
// rule-match caching and similarity lookups. Numeric fields are deliberately
// excluded so nearby contexts share an entry.
func (c *Context) Fingerprint() string {
	mood := "-"
	if c.Mood != nil {
		mood = string(c.Mood.Mood)
	}
	activity := "-"
	if c.Activity != nil {
		activity = *c.Activity
	}
	city := strings.ToLower(strings.ReplaceAll(c.Location.City, " ", "_"))
	if city == "" {
		city = "-"
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		c.TimeOfDay, c.Weather, c.Season, city, mood, activity)
}
