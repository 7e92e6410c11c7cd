package menu

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/erazemk/menza/internal/model"
)

// ValidationError reports invalid input for a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewItem is the input for creating a menu item.
type NewItem struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Category    string   `json:"category" validate:"required,max=50"`
	Description string   `json:"description" validate:"max=500"`
	// Available defaults to true when nil.
	Available *bool `json:"available"`
}

type patchInput struct {
	Name        *string  `json:"name" validate:"omitnil,min=1,max=100"`
	Price       *float64 `json:"price" validate:"omitnil,gte=0"`
	Category    *string  `json:"category" validate:"omitnil,min=1,max=50"`
	Description *string  `json:"description" validate:"omitnil,max=500"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizeNewItem trims text fields in place.
func normalizeNewItem(in *NewItem) {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.Description = strings.TrimSpace(in.Description)
}

func normalizePatch(p *model.ItemPatch) {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(p.Name)
	trim(p.Category)
	trim(p.Description)
}

func (s *Service) validateNewItem(in NewItem) error {
	return s.translate(s.validate.Struct(in), "")
}

func (s *Service) validatePatch(p model.ItemPatch, prefix string) error {
	in := patchInput{Name: p.Name, Price: p.Price, Category: p.Category, Description: p.Description}
	return s.translate(s.validate.Struct(in), prefix)
}

// translate converts validator errors into a ValidationError for the first
// failing field.
func (s *Service) translate(err error, prefix string) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validating input: %w", err)
	}

	fe := verrs[0]
	field := prefix + fe.Field()
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Message: "is required"}
	case "min":
		return &ValidationError{Field: field, Message: "must not be empty"}
	case "max":
		return &ValidationError{Field: field, Message: "must be at most " + fe.Param() + " characters"}
	case "gte":
		return &ValidationError{Field: field, Message: "must not be negative"}
	default:
		return &ValidationError{Field: field, Message: "is invalid"}
	}
}
