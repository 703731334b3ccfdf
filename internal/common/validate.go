package common

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

var validate = newValidator()

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

// Validate runs struct tag validation and maps failures to ErrInvalidPayload with
// a field -> rule map under "errors".
func Validate(v any) error {
	return ValidateAs(v, ErrInvalidPayload)
}

// ValidateAs is Validate reporting failures as kind.
func ValidateAs(v any, kind *AppError) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return kind.Wrap(err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		ns := fe.Namespace()
		if _, rest, ok := strings.Cut(ns, "."); ok {
			ns = rest
		}
		fields[ns] = fe.Tag()
	}
	return kind.With("errors", fields).Wrap(err)
}

// DecodeJSON reads a JSON body into dst and validates it. Unknown fields are
// rejected.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrInvalidPayload.With("errors", map[string]string{"body": "required"})
		}
		return ErrInvalidPayload.Wrap(err)
	}
	return Validate(dst)
}
