package config

import (
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("abspath", validateAbsPath)
}

// validateAbsPath rejects relative paths; the config file must not depend on the
// working directory of whichever process loads it.
func validateAbsPath(fl validator.FieldLevel) bool {
	return filepath.IsAbs(fl.Field().String())
}

func newValidator() *validator.Validate {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		panic(err)
	}
	return v
}
