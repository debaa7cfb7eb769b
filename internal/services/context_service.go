package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// ContextService captures situational snapshots. Weather and location come
// from injected providers; either failing degrades the snapshot instead of
// failing the request.
type ContextService struct {
	weather WeatherProvider
	geo     GeoProvider
	logger  *logrus.Logger
	now     func() time.Time
}

func NewContextService(weather WeatherProvider, geo GeoProvider, logger *logrus.Logger) *ContextService {
	return &ContextService{
		weather: weather,
		geo:     geo,
		logger:  logger,
		now:     time.Now,
	}
}

// Capture builds a fresh immutable context for the user. The snapshot is
// never mutated after this call.
func (s *ContextService) Capture(ctx context.Context, userID uuid.UUID) (*models.Context, error) {
	now := s.now()

	c := &models.Context{
		CapturedAt: now,
		TimeOfDay:  models.TimeOfDayForHour(now.Hour()),
		Weather:    models.WeatherCloudy, // neutral default when lookup fails
	}

	if s.geo != nil {
		loc, err := s.geo.Locate(ctx, userID)
		if err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Location lookup failed")
		} else {
			c.Location = loc
		}
	}

	c.Season = models.SeasonFor(now.Month(), c.Location.Latitude)

	if s.weather != nil {
		condition, temperature, humidity, err := s.weather.Current(ctx, c.Location)
		if err != nil {
			s.logger.WithError(err).Warn("Weather lookup failed")
		} else {
			c.Weather = condition
			c.Temperature = temperature
			c.Humidity = humidity
		}
	}

	return c, nil
}
