package validation

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ruleDocumentSchema constrains the JSONB rule documents stored in
// PostgreSQL. Conditions and recommendations are free-form enough that the
// database cannot enforce them; a malformed document is rejected here
// before the matcher ever sees it.
const ruleDocumentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "RuleDocument",
  "type": "object",
  "required": ["conditions", "recommendation"],
  "properties": {
    "conditions": {
      "type": "object",
      "properties": {
        "times_of_day": {
          "type": "array",
          "items": {"enum": ["morning", "afternoon", "evening", "night"]}
        },
        "weather": {
          "type": "array",
          "items": {"enum": ["sunny", "cloudy", "rainy", "stormy", "snowy", "foggy", "windy"]}
        },
        "temperature": {
          "type": "object",
          "required": ["min", "max"],
          "properties": {
            "min": {"type": "number"},
            "max": {"type": "number"}
          },
          "additionalProperties": false
        },
        "countries": {"type": "array", "items": {"type": "string"}},
        "seasons": {
          "type": "array",
          "items": {"enum": ["spring", "summer", "autumn", "winter"]}
        },
        "moods": {"type": "array", "items": {"type": "string"}},
        "activities": {"type": "array", "items": {"type": "string"}}
      },
      "additionalProperties": false
    },
    "recommendation": {
      "type": "object",
      "properties": {
        "themes": {
          "type": "object",
          "additionalProperties": {"type": "number", "minimum": 0}
        },
        "genres": {
          "type": "object",
          "additionalProperties": {"type": "number", "minimum": 0}
        },
        "audio_targets": {
          "type": "object",
          "additionalProperties": {
            "type": "object",
            "properties": {
              "min": {"type": "number"},
              "max": {"type": "number"},
              "target": {"type": "number"},
              "weight": {"type": "number", "minimum": 0}
            },
            "additionalProperties": false
          }
        },
        "tags": {"type": "array", "items": {"type": "string"}},
        "exclude_genres": {"type": "array", "items": {"type": "string"}},
        "exclude_artists": {"type": "array", "items": {"type": "string"}}
      },
      "additionalProperties": false
    }
  }
}`

// RuleValidator validates rule documents against the embedded schema.
type RuleValidator struct {
	schema *gojsonschema.Schema
}

func NewRuleValidator() (*RuleValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(ruleDocumentSchema))
	if err != nil {
		return nil, fmt.Errorf("failed to compile rule document schema: %w", err)
	}
	return &RuleValidator{schema: schema}, nil
}

// ValidateRuleDocument checks one raw JSONB document. The returned error
// lists every violation, not just the first.
func (v *RuleValidator) ValidateRuleDocument(document []byte) error {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("rule document validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	var msg string
	for i, verr := range result.Errors() {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("%s: %s", verr.Field(), verr.Description())
	}
	return fmt.Errorf("invalid rule document: %s", msg)
}
