package render

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	configureValidator(v)
	return v
}

func configureValidator(validate *validator.Validate) {
	_ = validate.RegisterValidation("notblank", validateNotBlank)
	_ = validate.RegisterValidation("date", validateDate)
	validate.RegisterTagNameFunc(useJSONTagNames)
}

// Json tag wins, form tag is used for multipart forms
func useJSONTagNames(fld reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
		// skip if tag key says it should be ignored
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return ""
}

// String is not empty after trimming spaces
func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// Calendar date as YYYY-MM-DD
func validateDate(fl validator.FieldLevel) bool {
	_, err := time.Parse(time.DateOnly, fl.Field().String())
	return err == nil
}
