package config

import (
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	storageutil "github.com/tonelab/venue/storage/util"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func ValidateAbsPath(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && path.IsAbs(s)
}

func ValidateLocalpath(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return s != "" && filepath.IsLocal(s)
}

func ValidateIdentifier(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}

	return identifierPattern.MatchString(s)
}

// ValidatePathPattern accepts empty patterns (use the default) and relative patterns
// that cannot climb out of the storage root and name every upload uniquely.
func ValidatePathPattern(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}

	if strings.ContainsRune(s, 0) || strings.Contains(s, "..") {
		return false
	}

	if path.IsAbs(s) || filepath.IsAbs(s) || filepath.VolumeName(s) != "" {
		return false
	}

	// Reject drive-letter forms like "C:/" regardless of host OS.
	if len(s) >= 2 && s[1] == ':' {
		return false
	}

	return storageutil.NewPathPattern(s).Validate() == nil
}

// ValidateURLPrefix accepts root-relative URL paths such as "/api/uploads".
func ValidateURLPrefix(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	return strings.HasPrefix(s, "/") && !strings.Contains(s, "..") && !strings.ContainsAny(s, "?# ")
}

func newValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterValidation("abspath", ValidateAbsPath)
	validate.RegisterValidation("localpath", ValidateLocalpath)
	validate.RegisterValidation("identifier", ValidateIdentifier)
	validate.RegisterValidation("pathpattern", ValidatePathPattern)
	validate.RegisterValidation("urlprefix", ValidateURLPrefix)

	return validate
}
