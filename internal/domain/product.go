package domain

import (
	"context"
	"time"
)

// Product is a row of the "productos" collection.
type Product struct {
	ID          string     `json:"id"`
	Titulo      string     `json:"titulo"`
	Descripcion string     `json:"descripcion"`
	Categoria   string     `json:"categoria"`
	Precio      float64    `json:"precio"`
	ImagenURL   string     `json:"imagenURL"`
	CreadoEn    *time.Time `json:"creadoEn"`
}

// ProductInput holds the editable fields. Precio is a pointer so that an
// absent price is distinguishable from zero.
type ProductInput struct {
	Titulo      string   `json:"titulo" form:"titulo" validate:"required,max=200"`
	Descripcion string   `json:"descripcion" form:"descripcion" validate:"required,max=2000"`
	Categoria   string   `json:"categoria" form:"categoria" validate:"required,max=100"`
	Precio      *float64 `json:"precio" form:"precio" validate:"required,gte=0"`
}

func (p Product) Draft() ProductInput {
	precio := p.Precio
	return ProductInput{
		Titulo:      p.Titulo,
		Descripcion: p.Descripcion,
		Categoria:   p.Categoria,
		Precio:      &precio,
	}
}

type ProductUsecase interface {
	Subscribe(ctx context.Context) *Subscription[Product]
	List(ctx context.Context) ([]Product, error)
	// Create requires an image; the upload happens before the record is written.
	Create(ctx context.Context, input ProductInput, image *Upload) (*Product, error)
	// Update replaces imagenURL only when image is non-nil.
	Update(ctx context.Context, id string, input ProductInput, image *Upload) error
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, format string) ([]byte, string, error)
}
