package database

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

const validRuleDocument = `{
	"conditions": {
		"times_of_day": ["evening"],
		"weather": ["rainy"]
	},
	"recommendation": {
		"genres": {"lofi": 0.6, "jazz": 0.4},
		"audio_targets": {"energy": {"target": 0.3, "weight": 1.0}},
		"tags": ["chill"]
	}
}`

func ruleRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "name", "priority", "document",
		"applied_count", "success_rate", "average_rating",
		"active", "created_at", "updated_at",
	})
}

func TestRuleStore_FindMatchingRules(t *testing.T) {
	now := time.Now()

	t.Run("decodes valid documents", func(t *testing.T) {
		mockDB, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockDB.Close()

		ruleID := uuid.New()
		mockDB.ExpectQuery("SELECT").
			WithArgs(10).
			WillReturnRows(ruleRows().AddRow(
				ruleID, "evening_rainy_chill", 9, []byte(validRuleDocument),
				12, 0.75, 4.2, true, now, now,
			))

		store, err := NewRuleStore(mockDB, testLogger())
		require.NoError(t, err)

		rules, err := store.FindMatchingRules(context.Background(), nil, 10)

		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, ruleID, rules[0].ID)
		assert.Equal(t, 9, rules[0].Priority)
		assert.Equal(t, []models.TimeOfDay{models.Evening}, rules[0].Conditions.TimesOfDay)
		assert.InDelta(t, 0.6, rules[0].Recommendation.Genres["lofi"], 1e-9)
		assert.InDelta(t, 0.75, rules[0].Effectiveness.SuccessRate, 1e-9)

		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("skips rows with invalid documents", func(t *testing.T) {
		mockDB, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockDB.Close()

		badDocument := `{"conditions": {"time_of_day": "evening"}}`
		mockDB.ExpectQuery("SELECT").
			WithArgs(10).
			WillReturnRows(ruleRows().
				AddRow(uuid.New(), "broken", 5, []byte(badDocument),
					0, 0.0, 0.0, true, now, now).
				AddRow(uuid.New(), "good", 3, []byte(validRuleDocument),
					0, 0.0, 0.0, true, now, now))

		store, err := NewRuleStore(mockDB, testLogger())
		require.NoError(t, err)

		rules, err := store.FindMatchingRules(context.Background(), nil, 10)

		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, "good", rules[0].Name)
	})

	t.Run("propagates query errors", func(t *testing.T) {
		mockDB, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockDB.Close()

		mockDB.ExpectQuery("SELECT").
			WithArgs(10).
			WillReturnError(errors.New("connection refused"))

		store, err := NewRuleStore(mockDB, testLogger())
		require.NoError(t, err)

		_, err = store.FindMatchingRules(context.Background(), nil, 10)
		assert.Error(t, err)
	})
}

func TestRuleStore_UpdateEffectiveness(t *testing.T) {
	t.Run("updates the counters", func(t *testing.T) {
		mockDB, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockDB.Close()

		ruleID := uuid.New()
		mockDB.ExpectExec("UPDATE recommendation_rules").
			WithArgs(ruleID, true, true, 4.5).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		store, err := NewRuleStore(mockDB, testLogger())
		require.NoError(t, err)

		err = store.UpdateEffectiveness(context.Background(), ruleID, true, true, 4.5)

		require.NoError(t, err)
		require.NoError(t, mockDB.ExpectationsWereMet())
	})

	t.Run("missing rule is an error", func(t *testing.T) {
		mockDB, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockDB.Close()

		ruleID := uuid.New()
		mockDB.ExpectExec("UPDATE recommendation_rules").
			WithArgs(ruleID, true, false, 0.0).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		store, err := NewRuleStore(mockDB, testLogger())
		require.NoError(t, err)

		err = store.UpdateEffectiveness(context.Background(), ruleID, true, false, 0)
		assert.ErrorContains(t, err, "not found")
	})
}
