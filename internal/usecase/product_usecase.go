package usecase

import (
	"context"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/validation"
)

const (
	msgProductCreateRequired = "Por favor, completa todos los campos y selecciona una imagen."
	msgProductUpdateRequired = "Completa todos los campos antes de guardar."
)

type productUsecase struct {
	products *collection[domain.Product]
	images   *ImageUploader
	now      func() time.Time
}

// NewProductUsecase lists products newest first.
func NewProductUsecase(store domain.DocumentStore, notifier domain.Notifier, images *ImageUploader, rec metrics.Recorder) domain.ProductUsecase {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &productUsecase{
		products: &collection[domain.Product]{
			name:     domain.CollectionProducts,
			store:    store,
			notifier: notifier,
			order:    domain.OrderBy{Field: "creadoEn", Desc: true},
			metrics:  rec,
		},
		images: images,
		now:    time.Now,
	}
}

func (u *productUsecase) Subscribe(ctx context.Context) *domain.Subscription[domain.Product] {
	return u.products.subscribe(ctx)
}

func (u *productUsecase) List(ctx context.Context) ([]domain.Product, error) {
	return u.products.list(ctx)
}

func (u *productUsecase) Create(ctx context.Context, input domain.ProductInput, image *domain.Upload) (*domain.Product, error) {
	input, err := cleanProduct(input, msgProductCreateRequired)
	if err != nil {
		return nil, err
	}
	if image == nil || len(image.Data) == 0 {
		return nil, apperror.Validation(msgProductCreateRequired)
	}
	if err := u.images.Check(ctx, image); err != nil {
		return nil, err
	}

	// The image goes first; a record never points at a missing upload.
	url, err := u.images.Upload(ctx, ProductPrefix, *image)
	if err != nil {
		return nil, err
	}

	id, err := u.products.add(ctx, domain.Fields{
		"titulo":      input.Titulo,
		"descripcion": input.Descripcion,
		"categoria":   input.Categoria,
		"precio":      *input.Precio,
		"imagenURL":   url,
		"creadoEn":    domain.ServerTimestamp,
	})
	if err != nil {
		return nil, err
	}
	return u.products.get(ctx, id)
}

func (u *productUsecase) Update(ctx context.Context, id string, input domain.ProductInput, image *domain.Upload) error {
	input, err := cleanProduct(input, msgProductUpdateRequired)
	if err != nil {
		return err
	}

	fields := domain.Fields{
		"titulo":      input.Titulo,
		"descripcion": input.Descripcion,
		"categoria":   input.Categoria,
		"precio":      *input.Precio,
	}
	if image != nil && len(image.Data) > 0 {
		if err := u.images.Check(ctx, image); err != nil {
			return err
		}
		url, err := u.images.Upload(ctx, ProductPrefix, *image)
		if err != nil {
			return err
		}
		fields["imagenURL"] = url
	}
	return u.products.update(ctx, id, fields)
}

func (u *productUsecase) Delete(ctx context.Context, id string) error {
	return u.products.delete(ctx, id)
}

var productColumns = []exportColumn[domain.Product]{
	{header: "titulo", value: func(p domain.Product) any { return p.Titulo }},
	{header: "descripcion", value: func(p domain.Product) any { return p.Descripcion }},
	{header: "categoria", value: func(p domain.Product) any { return p.Categoria }},
	{header: "precio", value: func(p domain.Product) any { return p.Precio }},
	{header: "imagenURL", value: func(p domain.Product) any { return p.ImagenURL }},
	{header: "creadoEn", value: func(p domain.Product) any { return timeCell(p.CreadoEn) }},
}

func (u *productUsecase) Export(ctx context.Context, format string) ([]byte, string, error) {
	items, err := u.products.list(ctx)
	if err != nil {
		return nil, "", err
	}
	return export(format, domain.CollectionProducts, productColumns, items, u.now())
}

func cleanProduct(in domain.ProductInput, msg string) (domain.ProductInput, error) {
	in.Titulo = validation.Clean(in.Titulo)
	in.Descripcion = validation.Clean(in.Descripcion)
	in.Categoria = validation.Clean(in.Categoria)

	if in.Titulo == "" || in.Descripcion == "" || in.Categoria == "" || in.Precio == nil {
		return in, apperror.Validation(msg)
	}
	if err := validation.Validator().Struct(in); err != nil {
		return in, apperror.Validation(msg, validation.FormatValidationErrors(err)...)
	}
	return in, nil
}

// CheckProductInput runs the local required-field check. Creating also
// requires an image.
func CheckProductInput(in domain.ProductInput, image *domain.Upload, creating bool) error {
	msg := msgProductUpdateRequired
	if creating {
		msg = msgProductCreateRequired
	}
	if _, err := cleanProduct(in, msg); err != nil {
		return err
	}
	if creating && (image == nil || len(image.Data) == 0) {
		return apperror.Validation(msgProductCreateRequired)
	}
	return nil
}
