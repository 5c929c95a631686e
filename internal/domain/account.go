package domain

import (
	"context"
	"time"
)

// Account is the identity provider's own record.
type Account struct {
	ID            string
	Email         string
	PasswordHash  *string
	GoogleSubject *string
	DisplayName   string
	PhotoURL      string
	CreatedAt     time.Time
}

func (a *Account) Identity() *Identity {
	return &Identity{
		UID:         a.ID,
		Email:       a.Email,
		DisplayName: a.DisplayName,
		PhotoURL:    a.PhotoURL,
	}
}

type AccountRepository interface {
	Create(ctx context.Context, account *Account) error
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByGoogleSubject(ctx context.Context, subject string) (*Account, error)
	LinkGoogle(ctx context.Context, id, subject, displayName, photoURL string) error
	UpdatePassword(ctx context.Context, id, hash string) error
	CreatePasswordReset(ctx context.Context, tokenHash, accountID string, expiresAt time.Time) error
	// ConsumePasswordReset marks the token used and returns its account id.
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (string, error)
}

// ClientSessionRepository binds client slots to signed-in accounts.
type ClientSessionRepository interface {
	Bind(ctx context.Context, sid, accountID string, expiresAt time.Time) error
	AccountID(ctx context.Context, sid string, now time.Time) (string, error)
	Unbind(ctx context.Context, sid string) error
}
