package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SubscriptionLevel returns the subscription tier recorded for userID.
func (s *Store) SubscriptionLevel(ctx context.Context, userID string) (int, error) {
	var level int
	err := s.db.QueryRowContext(ctx, `
		SELECT subscription_type_level
		FROM subscriptions
		WHERE user_id = $1
	`, userID).Scan(&level)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("lookup subscription: %w", err)
	}
	return level, nil
}
