package validator

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// LocalDateTimeLayouts are the accepted layouts for wall-clock inputs.
var LocalDateTimeLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// UISpaceTypes are the space categories the map and filters know about.
var UISpaceTypes = []string{
	"desk",
	"small_meeting_space",
	"large_meeting_room",
	"huddle",
	"wellbeing",
	"beerpoint",
	"office",
}

// Validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()

	// Use JSON tag names in error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	registerCustomValidations()
}

func registerCustomValidations() {
	validate.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "employee", "admin", "":
			return true
		}
		return false
	})

	validate.RegisterValidation("localdatetime", func(fl validator.FieldLevel) bool {
		_, ok := ParseLocalDateTime(fl.Field().String(), time.UTC)
		return ok
	})

	validate.RegisterValidation("ui_space_type", func(fl validator.FieldLevel) bool {
		value := strings.ToLower(fl.Field().String())
		if value == "" {
			return true
		}
		for _, t := range UISpaceTypes {
			if value == t {
				return true
			}
		}
		return false
	})
}

// ParseLocalDateTime parses a wall-clock "YYYY-MM-DDTHH:MM[:SS]" value in loc.
func ParseLocalDateTime(value string, loc *time.Location) (time.Time, bool) {
	for _, layout := range LocalDateTimeLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate validates a struct and returns a map of field errors
func Validate(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return map[string]string{"_": err.Error()}
	}

	errors := make(map[string]string)
	for _, err := range validationErrors {
		field := err.Field()
		switch err.Tag() {
		case "required":
			errors[field] = "This field is required"
		case "email":
			errors[field] = "Invalid email format"
		case "min":
			errors[field] = "Value is too short (min: " + err.Param() + ")"
		case "max":
			errors[field] = "Value is too long (max: " + err.Param() + ")"
		case "gte":
			errors[field] = "Value must be at least " + err.Param()
		case "lte":
			errors[field] = "Value must be at most " + err.Param()
		case "url":
			errors[field] = "Invalid URL format"
		case "datetime":
			errors[field] = "Invalid date. Expected YYYY-MM-DD"
		case "localdatetime":
			errors[field] = "Invalid date and time. Expected YYYY-MM-DDTHH:MM"
		case "role":
			errors[field] = "Invalid role. Must be: employee or admin"
		case "ui_space_type":
			errors[field] = "Invalid space type. Must be one of: " + strings.Join(UISpaceTypes, ", ")
		default:
			errors[field] = "Invalid value"
		}
	}

	return errors
}

// ValidateVar validates a single variable
func ValidateVar(field interface{}, tag string) error {
	return validate.Var(field, tag)
}
