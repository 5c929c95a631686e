package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-panel-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type accountRepo struct {
	db DBTX
}

func NewAccountRepository(db DBTX) domain.AccountRepository {
	return &accountRepo{db: db}
}

const accountColumns = `id, email, password_hash, google_subject, display_name, photo_url, created_at`

func (r *accountRepo) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, email, password_hash, google_subject, display_name, photo_url, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		a.ID, strings.ToLower(a.Email), a.PasswordHash, a.GoogleSubject, a.DisplayName, a.PhotoURL, a.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && constraintOf(err) != "accounts_google_subject_key" {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(email))
}

func (r *accountRepo) GetByGoogleSubject(ctx context.Context, subject string) (*domain.Account, error) {
	return r.getOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE google_subject = $1`, subject)
}

func (r *accountRepo) getOne(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var a domain.Account
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.Email, &a.PasswordHash, &a.GoogleSubject, &a.DisplayName, &a.PhotoURL, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &a, nil
}

// LinkGoogle attaches a Google subject to an existing account and fills in
// display name and photo only where they are still empty.
func (r *accountRepo) LinkGoogle(ctx context.Context, id, subject, displayName, photoURL string) error {
	query := `UPDATE accounts
              SET google_subject = $2,
                  display_name = CASE WHEN display_name = '' THEN $3 ELSE display_name END,
                  photo_url = CASE WHEN photo_url = '' THEN $4 ELSE photo_url END
              WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, subject, displayName, photoURL)
	if err != nil {
		return fmt.Errorf("link google account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepo) UpdatePassword(ctx context.Context, id, hash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *accountRepo) CreatePasswordReset(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error {
	query := `INSERT INTO password_resets (token_hash, account_id, expires_at) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, tokenHash, accountID, expiresAt); err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

func (r *accountRepo) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (string, error) {
	query := `UPDATE password_resets SET used_at = $2
              WHERE token_hash = $1 AND used_at IS NULL AND expires_at > $2
              RETURNING account_id`
	var accountID string
	if err := r.db.QueryRow(ctx, query, tokenHash, now).Scan(&accountID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrResetTokenInvalid
		}
		return "", fmt.Errorf("consume password reset: %w", err)
	}
	return accountID, nil
}
