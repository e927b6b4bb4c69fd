package entity

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tonelab/venue/media"
)

var youtubePattern = regexp.MustCompile(`^(https?://)?(www\.)?(youtube\.com/watch\?v=|youtu\.be/)[\w-]+`)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation("mediaurl", func(fl validator.FieldLevel) bool {
		return media.ValidMediaURL(fl.Field().String())
	})
	_ = v.RegisterValidation("youtube", func(fl validator.FieldLevel) bool {
		return youtubePattern.MatchString(fl.Field().String())
	})

	return v
}

// invalid turns a validator error into an ErrInvalid with readable field messages.
func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s cannot exceed %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s cannot exceed %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s cannot be less than %s", fe.Field(), fe.Param())
	case "mediaurl":
		return fe.Field() + " must be a URL or a path starting with /"
	case "youtube":
		return "please provide a valid YouTube URL"
	case "url":
		return fe.Field() + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
