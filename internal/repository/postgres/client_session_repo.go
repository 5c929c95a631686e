package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-panel-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type clientSessionRepo struct {
	db DBTX
}

func NewClientSessionRepository(db DBTX) domain.ClientSessionRepository {
	return &clientSessionRepo{db: db}
}

// Bind signs the slot in, replacing whatever account it held before.
func (r *clientSessionRepo) Bind(ctx context.Context, sid, accountID string, expiresAt time.Time) error {
	query := `INSERT INTO client_sessions (id, account_id, signed_in_at, expires_at)
              VALUES ($1, $2, now(), $3)
              ON CONFLICT (id) DO UPDATE
              SET account_id = EXCLUDED.account_id, signed_in_at = now(), expires_at = EXCLUDED.expires_at`
	if _, err := r.db.Exec(ctx, query, sid, accountID, expiresAt); err != nil {
		return fmt.Errorf("bind client session: %w", err)
	}
	return nil
}

func (r *clientSessionRepo) AccountID(ctx context.Context, sid string, now time.Time) (string, error) {
	query := `SELECT account_id FROM client_sessions WHERE id = $1 AND expires_at > $2`
	var accountID string
	if err := r.db.QueryRow(ctx, query, sid, now).Scan(&accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNoClientSession
		}
		return "", fmt.Errorf("lookup client session: %w", err)
	}
	return accountID, nil
}

func (r *clientSessionRepo) Unbind(ctx context.Context, sid string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM client_sessions WHERE id = $1`, sid); err != nil {
		return fmt.Errorf("unbind client session: %w", err)
	}
	return nil
}
