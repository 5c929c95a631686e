package editor

import (
	"context"

	"go-panel-backend/internal/domain"
	"go-panel-backend/internal/usecase"
)

func ContactAdapter(uc domain.ContactUsecase) Adapter[domain.Contact, domain.ContactInput] {
	return Adapter[domain.Contact, domain.ContactInput]{
		Collection: domain.CollectionContacts,
		ID:         func(c domain.Contact) string { return c.ID },
		Draft:      domain.Contact.Draft,
		Subscribe:  uc.Subscribe,
		Validate: func(d domain.ContactInput, _ *domain.Upload, _ bool) error {
			return usecase.CheckContactInput(d)
		},
		Create: func(ctx context.Context, d domain.ContactInput, _ *domain.Upload) error {
			_, err := uc.Create(ctx, d)
			return err
		},
		Update: func(ctx context.Context, id string, d domain.ContactInput, _ *domain.Upload) error {
			return uc.Update(ctx, id, d)
		},
		Delete: uc.Delete,
	}
}

func PostAdapter(uc domain.PostUsecase) Adapter[domain.Post, domain.PostInput] {
	return Adapter[domain.Post, domain.PostInput]{
		Collection: domain.CollectionPosts,
		ID:         func(p domain.Post) string { return p.ID },
		Draft:      domain.Post.Draft,
		Subscribe:  uc.Subscribe,
		Validate: func(d domain.PostInput, _ *domain.Upload, _ bool) error {
			return usecase.CheckPostInput(d)
		},
		Create: func(ctx context.Context, d domain.PostInput, _ *domain.Upload) error {
			_, err := uc.Create(ctx, d)
			return err
		},
		Update: func(ctx context.Context, id string, d domain.PostInput, _ *domain.Upload) error {
			return uc.Update(ctx, id, d)
		},
		Delete: uc.Delete,
	}
}

// ProductAdapter carries an optional image with create and save commands.
func ProductAdapter(uc domain.ProductUsecase) Adapter[domain.Product, domain.ProductInput] {
	return Adapter[domain.Product, domain.ProductInput]{
		Collection: domain.CollectionProducts,
		ID:         func(p domain.Product) string { return p.ID },
		Draft:      domain.Product.Draft,
		Subscribe:  uc.Subscribe,
		Validate:   usecase.CheckProductInput,
		Create: func(ctx context.Context, d domain.ProductInput, image *domain.Upload) error {
			_, err := uc.Create(ctx, d, image)
			return err
		},
		Update: uc.Update,
		Delete: uc.Delete,
	}
}
