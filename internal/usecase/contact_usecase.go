package usecase

import (
	"context"
	"time"

	"go-panel-backend/internal/domain"
	"go-panel-backend/pkg/apperror"
	"go-panel-backend/pkg/metrics"
	"go-panel-backend/pkg/validation"
)

const msgContactRequired = "Por favor completa todos los campos"

// contactDateLayout is d/m/yyyy.
const contactDateLayout = "2/1/2006"

type contactUsecase struct {
	contacts *collection[domain.Contact]
	now      func() time.Time
}

func NewContactUsecase(store domain.DocumentStore, notifier domain.Notifier, rec metrics.Recorder) domain.ContactUsecase {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &contactUsecase{
		contacts: &collection[domain.Contact]{
			name:     domain.CollectionContacts,
			store:    store,
			notifier: notifier,
			metrics:  rec,
		},
		now: time.Now,
	}
}

func (u *contactUsecase) Subscribe(ctx context.Context) *domain.Subscription[domain.Contact] {
	return u.contacts.subscribe(ctx)
}

func (u *contactUsecase) List(ctx context.Context) ([]domain.Contact, error) {
	return u.contacts.list(ctx)
}

func (u *contactUsecase) Create(ctx context.Context, input domain.ContactInput) (*domain.Contact, error) {
	input, err := cleanContact(input)
	if err != nil {
		return nil, err
	}

	fecha := u.now().Format(contactDateLayout)
	id, err := u.contacts.add(ctx, domain.Fields{
		"nombre":    input.Nombre,
		"apellidos": input.Apellidos,
		"correo":    input.Correo,
		"telefono":  input.Telefono,
		"fecha":     fecha,
	})
	if err != nil {
		return nil, err
	}

	return &domain.Contact{
		ID:        id,
		Nombre:    input.Nombre,
		Apellidos: input.Apellidos,
		Correo:    input.Correo,
		Telefono:  input.Telefono,
		Fecha:     fecha,
	}, nil
}

func (u *contactUsecase) Update(ctx context.Context, id string, input domain.ContactInput) error {
	input, err := cleanContact(input)
	if err != nil {
		return err
	}
	return u.contacts.update(ctx, id, domain.Fields{
		"nombre":    input.Nombre,
		"apellidos": input.Apellidos,
		"correo":    input.Correo,
		"telefono":  input.Telefono,
	})
}

func (u *contactUsecase) Delete(ctx context.Context, id string) error {
	return u.contacts.delete(ctx, id)
}

var contactColumns = []exportColumn[domain.Contact]{
	{header: "nombre", value: func(c domain.Contact) any { return c.Nombre }},
	{header: "apellidos", value: func(c domain.Contact) any { return c.Apellidos }},
	{header: "correo", value: func(c domain.Contact) any { return c.Correo }},
	{header: "telefono", value: func(c domain.Contact) any { return c.Telefono }},
	{header: "fecha", value: func(c domain.Contact) any { return c.Fecha }},
}

func (u *contactUsecase) Export(ctx context.Context, format string) ([]byte, string, error) {
	items, err := u.contacts.list(ctx)
	if err != nil {
		return nil, "", err
	}
	return export(format, domain.CollectionContacts, contactColumns, items, u.now())
}

func cleanContact(in domain.ContactInput) (domain.ContactInput, error) {
	in.Nombre = validation.Clean(in.Nombre)
	in.Apellidos = validation.Clean(in.Apellidos)
	in.Correo = validation.Clean(in.Correo)
	in.Telefono = validation.Clean(in.Telefono)

	if in.Nombre == "" || in.Apellidos == "" || in.Correo == "" || in.Telefono == "" {
		return in, apperror.Validation(msgContactRequired)
	}
	if err := validation.Validator().Struct(in); err != nil {
		return in, apperror.Validation(msgContactRequired, validation.FormatValidationErrors(err)...)
	}
	return in, nil
}

// CheckContactInput runs the local required-field check without touching the store.
func CheckContactInput(in domain.ContactInput) error {
	_, err := cleanContact(in)
	return err
}
