package domain

import (
	"context"
	"time"
)

// Post is a row of the "post" collection. UpdatedAt stays nil until the
// first edit.
type Post struct {
	ID        string     `json:"id"`
	Mensaje   string     `json:"mensaje"`
	CreatedAt *time.Time `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt"`
}

type PostInput struct {
	Mensaje string `json:"mensaje" form:"mensaje" validate:"required,max=2000"`
}

func (p Post) Draft() PostInput {
	return PostInput{Mensaje: p.Mensaje}
}

type PostUsecase interface {
	Subscribe(ctx context.Context) *Subscription[Post]
	List(ctx context.Context) ([]Post, error)
	Create(ctx context.Context, input PostInput) (*Post, error)
	Update(ctx context.Context, id string, input PostInput) error
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, format string) ([]byte, string, error)
}
