package util

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/samber/lo"
	"gopkg.in/guregu/null.v3"

	"actiapp.dev/backend/internal/constant"
)

func NewValidator() *validator.Validate {
	validate := validator.New()
	validate.RegisterValidation("role", role)
	validate.RegisterValidation("notblank", validators.NotBlank)
	validate.RegisterTagNameFunc(jsonTagName)
	validate.RegisterCustomTypeFunc(nullStringValuer, null.String{})
	validate.RegisterCustomTypeFunc(nullTimeValuer, null.Time{})

	return validate
}

func role(fl validator.FieldLevel) bool {
	return lo.Contains(constant.Roles, fl.Field().String())
}

// jsonTagName reports violations under the field names clients actually send.
func jsonTagName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func nullStringValuer(field reflect.Value) interface{} {
	if valuer, ok := field.Interface().(null.String); ok {
		if !valuer.Valid {
			return nil
		}
		return valuer.String
	}

	return nil
}

func nullTimeValuer(field reflect.Value) interface{} {
	if valuer, ok := field.Interface().(null.Time); ok {
		if !valuer.Valid {
			return nil
		}
		return valuer.Time
	}

	return nil
}
