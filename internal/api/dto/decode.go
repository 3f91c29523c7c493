package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	apperrors "github.com/asafe/user-service/pkg/util"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	if err := validate.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Decode parses a JSON body into dst, rejecting unknown fields, then validates it.
func Decode(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("request body is required", nil)
		}
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": err.Error()})
	}
	if dec.More() {
		return apperrors.NewValidationError("invalid payload", map[string]any{"reason": "trailing data after JSON body"})
	}
	return Validate(dst)
}

// Validate runs struct validation tags on v.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
