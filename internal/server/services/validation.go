package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/eventhub/internal/common"
	"github.com/dmitrijs2005/eventhub/internal/server/models"
)

// inputValidator checks request structs against their `validate` tags.
type inputValidator struct {
	validate *validator.Validate
}

func newInputValidator() *inputValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// event_type accepts the known models.EventType values.
	_ = v.RegisterValidation("event_type", func(fl validator.FieldLevel) bool {
		return models.EventType(fl.Field().String()).Valid()
	})

	return &inputValidator{validate: v}
}

// check returns nil or an error wrapping common.ErrorValidation that lists
// every failed field.
func (iv *inputValidator) check(s any) error {
	err := iv.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeField(fe))
	}
	return fmt.Errorf("%w: %s", common.ErrorValidation, strings.Join(msgs, "; "))
}

func describeField(fe validator.FieldError) string {
	name := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "datetime":
		return name + " must be formatted as " + fe.Param()
	case "email":
		return name + " must be a valid email address"
	case "event_type":
		return name + " must be onsite or online"
	case "gte":
		return name + " must be at least " + fe.Param()
	case "lte":
		return name + " must be at most " + fe.Param()
	case "gt":
		return name + " must be greater than " + fe.Param()
	case "max", "min":
		bound := "at most "
		if fe.Tag() == "min" {
			bound = "at least "
		}
		if fe.Kind() == reflect.String || fe.Kind() == reflect.Slice {
			return name + " length must be " + bound + fe.Param()
		}
		return name + " must be " + bound + fe.Param()
	}
	return name + " is invalid (" + fe.Tag() + ")"
}
