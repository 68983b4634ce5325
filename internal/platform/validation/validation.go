// Package validation decodes request bodies into explicit schemas and checks them with
// struct tags.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultMaxBodyBytes bounds JSON request bodies.
const DefaultMaxBodyBytes int64 = 1 << 20

// Error describes a rejected request. Fields names the offending JSON fields when known.
type Error struct {
	Message string
	Fields  []string
}

func (e *Error) Error() string {
	return e.Message
}

// Newf builds an Error without field information.
func Newf(format string, args ...any) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

var (
	once     sync.Once
	validate *validator.Validate
)

// Validator returns the shared validator configured to report JSON field names.
func Validator() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return field.Name
		})
		v.RegisterCustomTypeFunc(func(field reflect.Value) any {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
		validate = v
	})
	return validate
}

// Struct validates value and converts validator failures into an *Error.
func Struct(value any) error {
	err := Validator().Struct(value)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &Error{Message: err.Error()}
	}
	fields := make([]string, 0, len(fieldErrs))
	seen := make(map[string]struct{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		name := fieldPath(fe)
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return &Error{
		Message: "invalid fields: " + strings.Join(fields, ", "),
		Fields:  fields,
	}
}

// DecodeJSON reads one JSON document from r into dst, rejecting unknown fields and trailing
// data, then validates dst.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return Newf("request body required")
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, DefaultMaxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return decodeError(err)
	}
	if decoder.More() {
		return Newf("request body must contain a single JSON object")
	}
	return Struct(dst)
}

func decodeError(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		return Newf("request body required")
	case errors.As(err, &syntaxErr):
		return Newf("malformed JSON at offset %d", syntaxErr.Offset)
	case errors.As(err, &typeErr):
		return &Error{Message: fmt.Sprintf("field %s has the wrong type", typeErr.Field), Fields: []string{typeErr.Field}}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		field := strings.Trim(strings.TrimPrefix(err.Error(), "json: unknown field "), `"`)
		return &Error{Message: fmt.Sprintf("unknown field %s", field), Fields: []string{field}}
	default:
		return Newf("invalid request body: %v", err)
	}
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}
