package validation

import (
	"errors"
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Violations maps a field path (e.g. "items[0].quantity") to an error code.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records a violation unless the field already has one.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func MaxLen(field, value string, maxLen int, v Violations) {
	if utf8.RuneCountInString(value) > maxLen {
		v.Add(field, "too_long")
	}
}

func NonNegativeDecimal(field string, val decimal.Decimal, v Violations) {
	if val.IsNegative() {
		v.Add(field, "must_not_be_negative")
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

// MaxInt reports values above maxVal.
func MaxInt(field string, val, maxVal int, v Violations) {
	if val > maxVal {
		v.Add(field, "too_large")
	}
}

// BelowDecimal reports values that are not strictly below limit.
func BelowDecimal(field string, val, limit decimal.Decimal, v Violations) {
	if val.GreaterThanOrEqual(limit) {
		v.Add(field, "too_large")
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	vd := validator.New()
	vd.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	// Money fields are checked numerically (gte=0 and friends).
	vd.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return vd
}

// Struct validates s with its `validate` tags and returns the violations keyed by JSON path.
func Struct(s any) Violations {
	v := make(Violations)
	err := validate.Struct(s)
	if err == nil {
		return v
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		v.Add("_", "invalid")
		return v
	}
	for _, fe := range verrs {
		v.Add(fieldPath(fe.Namespace()), codeFor(fe))
	}
	return v
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func codeFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "required"
		}
		return "too_short"
	case "max":
		switch fe.Kind() {
		case reflect.String, reflect.Slice, reflect.Map:
			return "too_long"
		}
		return "too_large"
	case "lt", "lte":
		return "too_large"
	case "gte":
		if fe.Param() == "0" {
			return "must_not_be_negative"
		}
		return "must_be_positive"
	case "gt":
		return "must_be_positive"
	default:
		return "invalid_" + fe.Tag()
	}
}
