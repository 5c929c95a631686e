package domain

import "context"

// Contact is a row of the "usuarios" collection.
type Contact struct {
	ID        string `json:"id"`
	Nombre    string `json:"nombre"`
	Apellidos string `json:"apellidos"`
	Correo    string `json:"correo"`
	Telefono  string `json:"telefono"`
	Fecha     string `json:"fecha"`
}

// ContactInput holds the editable fields of a Contact.
type ContactInput struct {
	Nombre    string `json:"nombre" form:"nombre" validate:"required,max=120"`
	Apellidos string `json:"apellidos" form:"apellidos" validate:"required,max=120"`
	Correo    string `json:"correo" form:"correo" validate:"required,max=254"`
	Telefono  string `json:"telefono" form:"telefono" validate:"required,max=40"`
}

// Draft seeds an editable copy from the stored record.
func (c Contact) Draft() ContactInput {
	return ContactInput{
		Nombre:    c.Nombre,
		Apellidos: c.Apellidos,
		Correo:    c.Correo,
		Telefono:  c.Telefono,
	}
}

type ContactUsecase interface {
	Subscribe(ctx context.Context) *Subscription[Contact]
	List(ctx context.Context) ([]Contact, error)
	Create(ctx context.Context, input ContactInput) (*Contact, error)
	Update(ctx context.Context, id string, input ContactInput) error
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, format string) ([]byte, string, error)
}
