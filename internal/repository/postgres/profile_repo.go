package postgres

import (
	"context"
	"errors"
	"fmt"

	"go-panel-backend/internal/domain"

	"github.com/jackc/pgx/v5"
)

type profileRepo struct {
	db DBTX
}

func NewProfileRepository(db DBTX) domain.ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) GetByUID(ctx context.Context, uid string) (*domain.Profile, error) {
	query := `SELECT uid, email, username, avatar, provider, created_at FROM profiles WHERE uid = $1`
	var p domain.Profile
	err := r.db.QueryRow(ctx, query, uid).Scan(&p.UID, &p.Email, &p.Username, &p.Avatar, &p.Provider, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("get profile %s: %w", uid, err)
	}
	return &p, nil
}

func (r *profileRepo) Create(ctx context.Context, p *domain.Profile) error {
	query := `INSERT INTO profiles (uid, email, username, avatar, provider, created_at)
              VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.Exec(ctx, query, p.UID, p.Email, p.Username, p.Avatar, p.Provider, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProfileExists
		}
		return fmt.Errorf("create profile %s: %w", p.UID, err)
	}
	return nil
}
