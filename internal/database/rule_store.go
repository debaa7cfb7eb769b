package database

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/muarrikhyazka/music-recommender/internal/validation"
	"github.com/muarrikhyazka/music-recommender/pkg/models"
)

// pgPool is the subset of pgxpool.Pool the stores need. Tests substitute
// pgxmock through it.
type pgPool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RuleStore reads recommendation rules from PostgreSQL. Each rule's
// conditions and recommendation live in one JSONB document; documents are
// schema-validated on read and malformed rows are skipped, not fatal.
type RuleStore struct {
	db        pgPool
	validator *validation.RuleValidator
	logger    *logrus.Logger
}

func NewRuleStore(db pgPool, logger *logrus.Logger) (*RuleStore, error) {
	validator, err := validation.NewRuleValidator()
	if err != nil {
		return nil, err
	}
	return &RuleStore{db: db, validator: validator, logger: logger}, nil
}

type ruleDocument struct {
	Conditions     models.RuleConditions     `json:"conditions"`
	Recommendation models.RuleRecommendation `json:"recommendation"`
}

// FindMatchingRules returns active rules ordered by priority then
// effectiveness. Condition evaluation against the context happens in the
// matcher; the store only narrows to plausible candidates.
func (s *RuleStore) FindMatchingRules(ctx context.Context, _ *models.Context, limit int) ([]models.Rule, error) {
	query := `
		SELECT id, name, priority, document,
		       applied_count,
		       CASE WHEN applied_count > 0
		            THEN success_count::float / applied_count
		            ELSE 0 END AS success_rate,
		       CASE WHEN rating_count > 0
		            THEN rating_total / rating_count
		            ELSE 0 END AS average_rating,
		       active, created_at, updated_at
		FROM recommendation_rules
		WHERE active = true AND priority > 0
		ORDER BY priority DESC, success_rate DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var rules []models.Rule
	for rows.Next() {
		var (
			rule     models.Rule
			document []byte
		)
		if err := rows.Scan(
			&rule.ID, &rule.Name, &rule.Priority, &document,
			&rule.Effectiveness.AppliedCount,
			&rule.Effectiveness.SuccessRate,
			&rule.Effectiveness.AverageRating,
			&rule.Active, &rule.CreatedAt, &rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule row: %w", err)
		}

		if err := s.validator.ValidateRuleDocument(document); err != nil {
			s.logger.WithError(err).WithField("rule_id", rule.ID).Warn("Skipping rule with invalid document")
			continue
		}

		var doc ruleDocument
		if err := json.Unmarshal(document, &doc); err != nil {
			s.logger.WithError(err).WithField("rule_id", rule.ID).Warn("Skipping undecodable rule document")
			continue
		}
		rule.Conditions = doc.Conditions
		rule.Recommendation = doc.Recommendation

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rule rows: %w", err)
	}

	return rules, nil
}

// UpdateEffectiveness folds one feedback observation into a rule's rolling
// counters. A zero rating only bumps the applied/success counts.
func (s *RuleStore) UpdateEffectiveness(ctx context.Context, ruleID uuid.UUID, applied, success bool, rating float64) error {
	query := `
		UPDATE recommendation_rules
		SET applied_count = applied_count + CASE WHEN $2 THEN 1 ELSE 0 END,
		    success_count = success_count + CASE WHEN $3 THEN 1 ELSE 0 END,
		    rating_total = rating_total + $4,
		    rating_count = rating_count + CASE WHEN $4 > 0 THEN 1 ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query, ruleID, applied, success, rating)
	if err != nil {
		return fmt.Errorf("failed to update rule effectiveness: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %s not found", ruleID)
	}
	return nil
}
