package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	hsCodeRe    = regexp.MustCompile(`^[0-9]{2,10}$`)
	hsChapterRe = regexp.MustCompile(`^[0-9]{2}$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so clients can map errors to inputs.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("hscode", func(fl validator.FieldLevel) bool {
		return ValidateHSCode(fl.Field().String())
	})
	_ = v.RegisterValidation("hschapter", func(fl validator.FieldLevel) bool {
		return ValidateHSChapter(fl.Field().String())
	})
	return v
}

// NormalizeHSCode strips the dots and spaces people type into HS codes
// ("1001.90" becomes "100190").
func NormalizeHSCode(code string) string {
	return strings.NewReplacer(".", "", " ", "").Replace(strings.TrimSpace(code))
}

func ValidateHSCode(code string) bool {
	return hsCodeRe.MatchString(code)
}

func ValidateHSChapter(chapter string) bool {
	return hsChapterRe.MatchString(chapter)
}

// Chapter returns the two-digit chapter of an HS code.
func Chapter(code string) string {
	if len(code) < 2 {
		return ""
	}
	return code[:2]
}

// Struct validates s against its `validate` tags. It returns nil when s is
// valid, otherwise a map of JSON field name to message.
func Struct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "hscode":
		return "must be 2 to 10 digits"
	case "hschapter":
		return "must be 2 digits"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	default:
		return "is invalid"
	}
}

// TrimAndLimit trims surrounding space and cuts s to at most max bytes
// without splitting a UTF-8 sequence.
func TrimAndLimit(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	s = s[:max]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
