package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	std  *validator.Validate
)

// Init configures the validator used by Gin's binding.
// Errors carry the json tag name, or the form tag name for multipart fields.
func Init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		configure(v)
	}
}

func configure(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
	v.RegisterAlias("nonzero", "required")
	_ = v.RegisterValidation("finite", finite)
}

// finite rejects NaN and ±Inf; non-float fields always pass.
func finite(fl validator.FieldLevel) bool {
	switch fl.Field().Kind() {
	case reflect.Float32, reflect.Float64:
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	return true
}

func fieldName(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return fld.Name
}

func engine() *validator.Validate {
	once.Do(func() {
		std = validator.New(validator.WithRequiredStructEnabled())
		configure(std)
	})
	return std
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	return engine().Struct(s)
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return map[string]string{ute.Field: "must be " + ute.Type.String()}
	}
	if errors.As(err, &se) {
		return map[string]string{"payload": "invalid json"}
	}

	var ne *strconv.NumError
	if errors.As(err, &ne) {
		return map[string]string{"payload": fmt.Sprintf("invalid number %q", ne.Num)}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	// Fallback
	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()
	kind := fe.Kind()

	switch tag {
	case "required", "nonzero":
		return "is required"
	case "email":
		return "must be a valid email"
	case "url", "http_url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of [" + strings.Join(strings.Fields(param), ", ") + "]"
	case "min":
		if isNumberKind(kind) {
			return "must be at least " + param
		}
		return "must have at least " + param + " " + unit(kind)
	case "max":
		if isNumberKind(kind) {
			return "must be at most " + param
		}
		return "must have at most " + param + " " + unit(kind)
	case "len":
		return "must have exactly " + param + " " + unit(kind)
	case "gt":
		return "must be greater than " + param
	case "gte":
		return "must be greater than or equal to " + param
	case "lt":
		return "must be less than " + param
	case "lte":
		return "must be less than or equal to " + param
	case "finite":
		return "must be a finite number"
	case "dive":
		return "contains an invalid item"
	default:
		return "is invalid (" + tag + ")"
	}
}

func unit(k reflect.Kind) string {
	switch k {
	case reflect.Slice, reflect.Array, reflect.Map:
		return "items"
	default:
		return "characters"
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
