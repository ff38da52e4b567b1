package service

import (
	"errors"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var canvasTokenPattern = regexp.MustCompile(`^[a-zA-Z0-9~]+$`)

// NewConfigValidator returns a validator with the https_url and canvas_token tags registered.
func NewConfigValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("https_url", func(fl validator.FieldLevel) bool {
		return ValidBaseURL(fl.Field().String())
	})
	_ = v.RegisterValidation("canvas_token", func(fl validator.FieldLevel) bool {
		return ValidAPIKey(fl.Field().String())
	})
	return v
}

// ValidBaseURL reports whether raw parses as an https URL with a host. Advisory only.
func ValidBaseURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Hostname() != ""
}

// ValidAPIKey applies the Canvas token heuristic: longer than 20 characters, alphanumeric plus '~'.
func ValidAPIKey(key string) bool {
	return len(key) > 20 && canvasTokenPattern.MatchString(key)
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return "invalid API configuration"
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Field() {
		case "BaseURL":
			if fe.Tag() == "required" {
				msgs = append(msgs, "Please enter your Canvas URL")
			} else {
				msgs = append(msgs, "Canvas URL must be a valid https:// URL (e.g., https://yourschool.instructure.com)")
			}
		case "APIKey":
			if fe.Tag() == "required" {
				msgs = append(msgs, "Please enter your Canvas API key")
			} else {
				msgs = append(msgs, "Please enter a valid Canvas API key (should be a long string of letters and numbers)")
			}
		default:
			msgs = append(msgs, fe.Error())
		}
	}
	return strings.Join(msgs, "; ")
}
