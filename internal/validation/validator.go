// Package validation wraps go-playground/validator with the rules and
// error shape the API uses: a map from JSON field name to messages.
//
//	type TagRequest struct {
//	    Color string `json:"color" validate:"required,tagcolor"`
//	}
//
//	if errs := validation.ValidateStruct(&req); errs != nil {
//	    c.JSON(http.StatusBadRequest, errs)
//	}
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// TagColorPattern is the accepted format for tag colors
var TagColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

var slugPattern = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)

// Errors maps a JSON field name to its error messages
type Errors map[string][]string

// Add appends a message for field
func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, strings.Join(e[f], ", ")))
	}
	return strings.Join(parts, "; ")
}

// Field returns a single-field error
func Field(field, message string) Errors {
	return Errors{field: {message}}
}

// AsErrors extracts field errors from err
func AsErrors(err error) (Errors, bool) {
	var errs Errors
	if errors.As(err, &errs) {
		return errs, true
	}
	return nil, false
}

// GetValidator returns the singleton validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})

		_ = validate.RegisterValidation("tagcolor", func(fl validator.FieldLevel) bool {
			return IsTagColor(fl.Field().String())
		})
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})

	return validate
}

// IsTagColor reports whether s is a #RGB or #RRGGBB color
func IsTagColor(s string) bool {
	return TagColorPattern.MatchString(s)
}

// ValidateStruct validates s and returns the failures keyed by top level JSON field
func ValidateStruct(s interface{}) Errors {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return Field("non_field_errors", err.Error())
	}

	errs := Errors{}
	for _, fe := range validationErrs {
		errs.Add(topLevelField(fe.Namespace()), translateError(fe))
	}
	return errs
}

// topLevelField turns "RecipeRequest.ingredients[0].amount" into "ingredients"
func topLevelField(namespace string) string {
	parts := strings.SplitN(namespace, ".", 3)
	field := namespace
	if len(parts) > 1 {
		field = parts[1]
	}
	if i := strings.IndexByte(field, '['); i >= 0 {
		field = field[:i]
	}
	return field
}

var errorMessageTemplates = map[string]string{
	"required": "This field is required.",
	"email":    "Enter a valid email address.",
	"tagcolor": "Enter a valid hex color, e.g. #FFAA00.",
	"slug":     "Enter a valid slug consisting of letters, numbers, underscores or hyphens.",
}

// translateError produces a message for one failed rule.
// Nested failures name the inner field so the client can tell them apart.
func translateError(fe validator.FieldError) string {
	msg := message(fe)
	if strings.Contains(fe.Namespace(), "[") {
		return fmt.Sprintf("%s: %s", fe.Field(), msg)
	}
	return msg
}

func message(fe validator.FieldError) string {
	if tpl, ok := errorMessageTemplates[fe.Tag()]; ok {
		return tpl
	}

	isString := fe.Kind() == reflect.String
	isSlice := fe.Kind() == reflect.Slice

	switch fe.Tag() {
	case "gte", "min":
		switch {
		case isString:
			return fmt.Sprintf("Ensure this field has at least %s characters.", fe.Param())
		case isSlice:
			return fmt.Sprintf("Ensure this field has at least %s elements.", fe.Param())
		default:
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
		}
	case "lte", "max":
		switch {
		case isString:
			return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
		case isSlice:
			return fmt.Sprintf("Ensure this field has no more than %s elements.", fe.Param())
		default:
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
		}
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", fe.Param())
	default:
		return fmt.Sprintf("Failed %s validation.", fe.Tag())
	}
}
