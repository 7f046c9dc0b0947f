package dto

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/authz"
	"github.com/ahmetcoskunkizilkaya/incident-backend/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report field names as they appear on the wire.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form", "query"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})

	v.RegisterValidation("report_category", func(fl validator.FieldLevel) bool {
		return models.IsValidCategory(fl.Field().String())
	})
	v.RegisterValidation("report_status", func(fl validator.FieldLevel) bool {
		return models.IsValidStatus(fl.Field().String())
	})
	v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		_, ok := authz.ParseRole(fl.Field().String())
		return ok
	})
	return v
}

// Validate checks struct tags and returns a VALIDATION error naming the
// first offending field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(apperr.KindValidation, "invalid request", err)
	}
	return apperr.Validation(describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "uuid":
		return field + " must be a valid UUID"
	case "report_category":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(models.ReportCategories, ", "))
	case "report_status":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(models.ReportStatuses, ", "))
	case "role":
		return field + " must be one of: CITIZEN, OFFICER, SUPERVISOR, ADMIN"
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return field + " is invalid"
	}
}
