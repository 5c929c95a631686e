package usecase

import (
	"context"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/validation"
)

const msgPostRequired = "Por favor escribe un mensaje"

type postUsecase struct {
	posts *collection[domain.Post]
	now   func() time.Time
}

// NewPostUsecase lists posts newest first.
func NewPostUsecase(store domain.DocumentStore, notifier domain.Notifier, rec metrics.Recorder) domain.PostUsecase {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &postUsecase{
		posts: &collection[domain.Post]{
			name:     domain.CollectionPosts,
			store:    store,
			notifier: notifier,
			order:    domain.OrderBy{Field: "createdAt", Desc: true},
			metrics:  rec,
		},
		now: time.Now,
	}
}

func (u *postUsecase) Subscribe(ctx context.Context) *domain.Subscription[domain.Post] {
	return u.posts.subscribe(ctx)
}

func (u *postUsecase) List(ctx context.Context) ([]domain.Post, error) {
	return u.posts.list(ctx)
}

func (u *postUsecase) Create(ctx context.Context, input domain.PostInput) (*domain.Post, error) {
	input, err := cleanPost(input)
	if err != nil {
		return nil, err
	}

	id, err := u.posts.add(ctx, domain.Fields{
		"mensaje":   input.Mensaje,
		"createdAt": domain.ServerTimestamp,
		"updatedAt": nil,
	})
	if err != nil {
		return nil, err
	}
	return u.posts.get(ctx, id)
}

func (u *postUsecase) Update(ctx context.Context, id string, input domain.PostInput) error {
	input, err := cleanPost(input)
	if err != nil {
		return err
	}
	return u.posts.update(ctx, id, domain.Fields{
		"mensaje":   input.Mensaje,
		"updatedAt": domain.ServerTimestamp,
	})
}

func (u *postUsecase) Delete(ctx context.Context, id string) error {
	return u.posts.delete(ctx, id)
}

var postColumns = []exportColumn[domain.Post]{
	{header: "mensaje", value: func(p domain.Post) any { return p.Mensaje }},
	{header: "createdAt", value: func(p domain.Post) any { return timeCell(p.CreatedAt) }},
	{header: "updatedAt", value: func(p domain.Post) any { return timeCell(p.UpdatedAt) }},
}

func (u *postUsecase) Export(ctx context.Context, format string) ([]byte, string, error) {
	items, err := u.posts.list(ctx)
	if err != nil {
		return nil, "", err
	}
	return export(format, domain.CollectionPosts, postColumns, items, u.now())
}

func cleanPost(in domain.PostInput) (domain.PostInput, error) {
	in.Mensaje = validation.Clean(in.Mensaje)
	if in.Mensaje == "" {
		return in, apperror.Validation(msgPostRequired)
	}
	if err := validation.Validator().Struct(in); err != nil {
		return in, apperror.Validation(msgPostRequired, validation.FormatValidationErrors(err)...)
	}
	return in, nil
}

// CheckPostInput runs the local required-field check without touching the store.
func CheckPostInput(in domain.PostInput) error {
	_, err := cleanPost(in)
	return err
}
