package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleValidator_ValidateRuleDocument(t *testing.T) {
	validator, err := NewRuleValidator()
	require.NoError(t, err)

	t.Run("accepts a complete document", func(t *testing.T) {
		document := `{
			"conditions": {
				"times_of_day": ["evening", "night"],
				"weather": ["rainy"],
				"temperature": {"min": 0, "max": 15},
				"seasons": ["autumn", "winter"]
			},
			"recommendation": {
				"themes": {"cozy": 1.0},
				"genres": {"lofi": 0.6, "jazz": 0.4},
				"audio_targets": {"energy": {"target": 0.3, "weight": 1.0}},
				"tags": ["chill"],
				"exclude_genres": ["metal"]
			}
		}`
		assert.NoError(t, validator.ValidateRuleDocument([]byte(document)))
	})

	t.Run("accepts empty conditions", func(t *testing.T) {
		document := `{"conditions": {}, "recommendation": {"genres": {"pop": 1.0}}}`
		assert.NoError(t, validator.ValidateRuleDocument([]byte(document)))
	})

	t.Run("rejects a missing recommendation", func(t *testing.T) {
		document := `{"conditions": {"weather": ["rainy"]}}`
		assert.Error(t, validator.ValidateRuleDocument([]byte(document)))
	})

	t.Run("rejects unknown condition fields", func(t *testing.T) {
		document := `{
			"conditions": {"time_of_day": "evening"},
			"recommendation": {}
		}`
		assert.Error(t, validator.ValidateRuleDocument([]byte(document)))
	})

	t.Run("rejects invalid enum values", func(t *testing.T) {
		document := `{
			"conditions": {"weather": ["drizzle"]},
			"recommendation": {}
		}`
		assert.Error(t, validator.ValidateRuleDocument([]byte(document)))
	})

	t.Run("rejects negative genre weights", func(t *testing.T) {
		document := `{
			"conditions": {},
			"recommendation": {"genres": {"lofi": -0.5}}
		}`
		assert.Error(t, validator.ValidateRuleDocument([]byte(document)))
	})

	t.Run("reports every violation", func(t *testing.T) {
		document := `{
			"conditions": {"weather": ["drizzle"], "bogus": true},
			"recommendation": {}
		}`
		err := validator.ValidateRuleDocument([]byte(document))
		require.Error(t, err)
		assert.Contains(t, err.Error(), ";")
	})
}
