package auth

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// ValidateCredentials runs the client side checks done before any
// credential call reaches the identity provider. The email is expected to
// be normalized already.
func ValidateCredentials(email, password string, minPasswordLength int) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return ErrInvalidEmail.Clone().WithMetadata(map[string]any{
			"reason": err.Error(),
		})
	}

	if minPasswordLength < 1 {
		minPasswordLength = 1
	}

	if err := validation.Validate(password, validation.Required, validation.Length(minPasswordLength, 0)); err != nil {
		return ErrPasswordTooShort.Clone().WithMetadata(map[string]any{
			"min_length": minPasswordLength,
			"reason":     err.Error(),
		})
	}

	return nil
}
