package validation

import (
	"html"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once

	strict = bluemonday.StrictPolicy()
)

// Validator returns the shared validator with the custom tags registered.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		RegisterValidators(validate)
	})
	return validate
}

// RegisterValidators registers custom validators to the validator instance
func RegisterValidators(v *validator.Validate) {
	_ = v.RegisterValidation("notblank", NotBlank)
	_ = v.RegisterValidation("no_emoji", NoEmoji)
}

// NotBlank rejects strings that are empty after trimming whitespace.
func NotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// NoEmoji validates that a string does not contain emoji characters
func NoEmoji(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if r > 0x1F000 {
			return false
		}
		if unicode.In(r, unicode.So, unicode.Sk) {
			return false
		}
	}
	return true
}

// Clean trims s and strips any markup. Entities are decoded again so that
// plain text such as "Café & té" is stored as typed.
func Clean(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(strings.TrimSpace(s))))
}
