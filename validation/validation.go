// Package validation collects field violations, keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Merge copies other into v.
func (v Violations) Merge(other Violations) Violations {
	for k, msg := range other {
		v[k] = msg
	}
	return v
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v[field] = "required"
	}
}

func PositiveFloat(field string, val float64, v Violations) {
	if val <= 0 {
		v[field] = "must_be_positive"
	}
}

func NonNegativeFloat(field string, val float64, v Violations) {
	if val < 0 {
		v[field] = "must_not_be_negative"
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v[field] = "out_of_range"
	}
}

var (
	once     sync.Once
	validate *validator.Validate
)

func engine() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// codes maps validator tags to violation codes.
var codes = map[string]string{
	"required": "required",
	"gt":       "must_be_positive",
	"gte":      "must_not_be_negative",
	"lte":      "out_of_range",
	"oneof":    "invalid_choice",
	"min":      "too_short",
	"max":      "too_long",
	"len":      "invalid_length",
	"numeric":  "must_be_numeric",
	"hexcolor": "invalid_color",
	"url":      "invalid_url",
}

// Struct validates the `validate` tags of v.
func Struct(v any) Violations {
	out := Violations{}
	err := engine().Struct(v)
	if err == nil {
		return out
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["_"] = "invalid"
		return out
	}
	for _, fe := range verrs {
		code, ok := codes[fe.Tag()]
		if !ok {
			code = "invalid"
		}
		out[fieldPath(fe.Namespace())] = code
	}
	return out
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
