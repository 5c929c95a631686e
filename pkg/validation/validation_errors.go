package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to the Spanish labels shown to users
var FieldLabels = map[string]string{
	// Contact fields
	"Nombre":    "Nombre",
	"Apellidos": "Apellidos",
	"Correo":    "Correo",
	"Telefono":  "Teléfono",

	// Post fields
	"Mensaje": "Mensaje",

	// Product fields
	"Titulo":      "Título",
	"Descripcion": "Descripción",
	"Categoria":   "Categoría",
	"Precio":      "Precio",

	// Auth fields
	"Email":       "Correo",
	"Password":    "Contraseña",
	"NewPassword": "Nueva contraseña",
	"Username":    "Nombre de usuario",
	"Token":       "Código",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	param := e.Param()

	switch e.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s: Campo obligatorio", label)
	case "max":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: Máximo %s caracteres", label, param)
		}
		return fmt.Sprintf("%s: Máximo %s", label, param)
	case "min":
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: Mínimo %s caracteres", label, param)
		}
		return fmt.Sprintf("%s: Mínimo %s", label, param)
	case "gte":
		return fmt.Sprintf("%s: Debe ser mayor o igual a %s", label, param)
	case "email":
		return fmt.Sprintf("%s: Formato de correo no válido", label)
	case "no_emoji":
		return fmt.Sprintf("%s: No puede contener emojis ni símbolos especiales", label)
	default:
		return fmt.Sprintf("%s: Validación fallida (%s)", label, e.Tag())
	}
}

func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

// formatCamelCase converts CamelCase to spaced words
func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
