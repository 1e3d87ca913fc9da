package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"labmaint/internal/types"
)

// Validator wraps go-playground/validator. Field names in errors are the
// JSON names the client sent, not the Go field names.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator with the project's custom tags
// registered.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	// notblank rejects whitespace-only strings, which "required" accepts.
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil && logger != nil {
		logger.Error("failed to register notblank validation", "error", err)
	}
	return &Validator{validate: v, logger: logger}
}

func jsonFieldName(fld reflect.StructField) string {
	name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return fld.Name
	}
	return name
}

// ValidateStruct returns nil or an AppError describing the first failing
// field. A missing value maps to validation_missing_required_field; any
// other rule maps to validation_invalid_input. All failures are listed in
// Details["fields"].
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return types.NewAppError(types.ErrCodeValidationInvalidInput, "invalid request", err)
	}

	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
	}

	first := fieldErrs[0]
	code := types.ErrCodeValidationInvalidInput
	msg := "el campo " + first.Field() + " no es válido"
	if first.Tag() == "required" || first.Tag() == "notblank" {
		code = types.ErrCodeValidationMissingField
		msg = "el campo " + first.Field() + " es obligatorio"
	}
	return types.NewAppErrorWithDetails(code, msg, err, map[string]any{
		"field":  first.Field(),
		"fields": fields,
	})
}
