package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type deviceTokenRepository struct {
	db *sqlx.DB
}

func NewDeviceTokenRepository(db *sqlx.DB) DeviceTokenRepository {
	return &deviceTokenRepository{db: db}
}

// Upsert creates or reactivates a device token for a user.
// If the token already exists it is reassigned to this user (device changed
// hands or re-login) and flipped back to active.
func (r *deviceTokenRepository) Upsert(ctx context.Context, userID int64, token, platform string) error {
	query := `
		INSERT INTO device_tokens (user_id, token, platform, is_active, updated_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			platform = EXCLUDED.platform,
			is_active = TRUE,
			updated_at = NOW()
	`
	_, err := r.db.ExecContext(ctx, query, userID, token, platform)
	if err != nil {
		return fmt.Errorf("upsert device token: %w", err)
	}
	return nil
}

// Deactivate marks a device token inactive without losing the row.
func (r *deviceTokenRepository) Deactivate(ctx context.Context, token string) error {
	query := `UPDATE device_tokens SET is_active = FALSE, updated_at = NOW() WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("deactivate device token: %w", err)
	}
	return nil
}

// Delete removes a device token entirely.
func (r *deviceTokenRepository) Delete(ctx context.Context, token string) error {
	query := `DELETE FROM device_tokens WHERE token = $1`
	_, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return fmt.Errorf("delete device token: %w", err)
	}
	return nil
}

// GetActiveTokensForUsers returns active token strings for any of the given
// users in one batch query. The result can contain duplicates when the same
// physical device is registered under more than one row; callers dedupe.
func (r *deviceTokenRepository) GetActiveTokensForUsers(ctx context.Context, userIDs []int64) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT token
		FROM device_tokens
		WHERE user_id = ANY($1) AND is_active = TRUE
	`
	var tokens []string
	err := r.db.SelectContext(ctx, &tokens, query, pq.Array(userIDs))
	if err != nil {
		return nil, fmt.Errorf("get active device tokens: %w", err)
	}
	return tokens, nil
}
