package core

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"climarisk/internal/types"
)

// Validator wraps go-playground/validator and translates validation failures
// into structured AppErrors with per-field details.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a new Validator. Field names in error details use the
// json tag rather than the Go field name.
func NewValidator(logger *slog.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{
		validate: v,
		logger:   logger,
	}
}

// ValidateStruct validates dst against its struct tags. On failure it
// returns a *types.AppError with code validation_missing_required_field for
// required-tag failures, or a field-specific validation code otherwise.
func (v *Validator) ValidateStruct(dst any) error {
	err := v.validate.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return types.NewAppError(
			types.ErrCodeInternalUnexpected,
			"request validation failed",
			err,
		)
	}

	fields := make(map[string]any, len(verrs))
	code := types.ErrorCode("")
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		fields[name] = validationMessage(fe)
		if code == "" {
			code = codeForField(fe)
		}
	}

	return types.NewAppErrorWithDetails(
		code,
		"request validation failed",
		nil,
		map[string]any{"fields": fields},
	)
}

// codeForField picks the most specific error code for a validation failure.
func codeForField(fe validator.FieldError) types.ErrorCode {
	if fe.Tag() == "required" {
		return types.ErrCodeValidationMissingField
	}
	switch strings.ToLower(fe.Field()) {
	case "latitude", "lat":
		return types.ErrCodeValidationInvalidLat
	case "longitude", "lon":
		return types.ErrCodeValidationInvalidLon
	case "date":
		return types.ErrCodeValidationInvalidDate
	case "months", "horizon":
		return types.ErrCodeValidationInvalidHorizon
	default:
		return types.ErrCodeValidationMissingField
	}
}

// validationMessage renders a human-readable description of one failure.
func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min", "gte":
		return "value is below the allowed minimum (" + fe.Param() + ")"
	case "max", "lte":
		return "value is above the allowed maximum (" + fe.Param() + ")"
	case "oneof":
		return "value must be one of: " + fe.Param()
	default:
		return "failed validation rule: " + fe.Tag()
	}
}
