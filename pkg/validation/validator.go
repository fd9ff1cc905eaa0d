package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/go-user-registry/internal/domain/entity"
)

// Now is the clock the adult rule measures against.
var Now = time.Now

// phonePattern accepts "(DD) NNNN-NNNN" landlines and "(DD) 9NNNN-NNNN"
// mobiles. Area codes never start with 0.
var phonePattern = regexp.MustCompile(`^\([1-9]{2}\) (?:[2-8]|9[1-9])[0-9]{3}-[0-9]{4}$`)

var birthDateLayouts = []string{"2006-01-02", time.RFC3339}

var initOnce sync.Once

// Init configures the validator behind Gin's binding. Safe to call more than once.
func Init() {
	initOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			if err := Register(v); err != nil {
				panic(err)
			}
		}
	})
}

// Register installs JSON field naming and the custom tags on v:
//   - birthdate: a date as YYYY-MM-DD or RFC 3339
//   - adult: a birth date strictly before today minus entity.MinimumAge years
//   - phone_br: a Brazilian phone number, see phonePattern
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("birthdate", validBirthDate); err != nil {
		return err
	}
	if err := v.RegisterValidation("adult", adult); err != nil {
		return err
	}
	return v.RegisterValidation("phone_br", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
}

// ParseBirthDate parses the accepted birth date formats and keeps only the
// calendar date.
func ParseBirthDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range birthDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return entity.DateOnly(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ValidPhone reports whether s is empty or a well-formed Brazilian phone number.
func ValidPhone(s string) bool {
	return s == "" || phonePattern.MatchString(s)
}

func validBirthDate(fl validator.FieldLevel) bool {
	_, err := ParseBirthDate(fl.Field().String())
	return err == nil
}

// adult passes unparsable input so that birthdate alone reports the format problem.
func adult(fl validator.FieldLevel) bool {
	t, err := ParseBirthDate(fl.Field().String())
	if err != nil {
		return true
	}
	return entity.IsAdult(t, Now())
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) ||
		errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return map[string]string{"payload": "invalid json"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

func formatFieldError(fe validator.FieldError) string {
	tag := fe.Tag()
	param := fe.Param()

	switch tag {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", param)
	case "min":
		if isNumberKind(fe.Kind()) {
			return "must be at least " + param
		}
		return "must be at least " + param + " characters long"
	case "max":
		if isNumberKind(fe.Kind()) {
			return "must be at most " + param
		}
		return "must be at most " + param + " characters long"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "numeric":
		return "must be numeric"
	case "boolean":
		return "must be a boolean value"

	case "birthdate":
		return "must be a date in YYYY-MM-DD format"
	case "adult":
		return fmt.Sprintf("user must be at least %d years old", entity.MinimumAge)
	case "phone_br":
		return "must match the format (XX) XXXXX-XXXX"

	default:
		if param != "" {
			return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
		}
		return fmt.Sprintf("validation failed for '%s'", tag)
	}
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
