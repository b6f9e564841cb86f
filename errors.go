package auth

import (
	"database/sql"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeInvalidEmail       = "INVALID_EMAIL"
	TextCodePasswordTooShort   = "PASSWORD_TOO_SHORT"
	TextCodeInvalidTransition  = "INVALID_SESSION_TRANSITION"
	TextCodeProviderFailure    = "IDENTITY_PROVIDER_FAILURE"
	TextCodeManagerClosed      = "SESSION_MANAGER_CLOSED"
	TextCodeIdentityNotFound   = "IDENTITY_NOT_FOUND"
)

// ErrInvalidCredentials is returned when the provider rejects email and password
var ErrInvalidCredentials = goerrors.New("invalid login credentials", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidEmail is returned when an email fails client side validation
var ErrInvalidEmail = goerrors.New("a valid email is required", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidEmail).
	WithCode(goerrors.CodeBadRequest)

// ErrPasswordTooShort is returned when a password is below the configured minimum
var ErrPasswordTooShort = goerrors.New("password is too short", goerrors.CategoryValidation).
	WithTextCode(TextCodePasswordTooShort).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidSessionTransition is returned for moves outside the session transition table
var ErrInvalidSessionTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ErrProviderUnavailable wraps connectivity failures from the identity provider
var ErrProviderUnavailable = goerrors.New("identity provider unavailable", goerrors.CategoryInternal).
	WithTextCode(TextCodeProviderFailure).
	WithCode(goerrors.CodeInternal)

// ErrManagerClosed is returned by operations invoked after Close
var ErrManagerClosed = goerrors.New("session manager is closed", goerrors.CategoryOperation).
	WithTextCode(TextCodeManagerClosed)

// ErrIdentityNotFound is the error stores return when no team member matches
var ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrorResult is the structured error handed to callers of SignIn and SignUp
type ErrorResult struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e *ErrorResult) Error() string {
	if e == nil {
		return ""
	}
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// NewErrorResult maps any error into an ErrorResult. Rich errors keep
// their text code, falling back to their category.
func NewErrorResult(err error) *ErrorResult {
	if err == nil {
		return nil
	}

	var result *ErrorResult
	if goerrors.As(err, &result) {
		return result
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		code := richErr.TextCode
		if code == "" {
			code = fmt.Sprintf("%v", richErr.Category)
		}
		return &ErrorResult{Message: richErr.Message, Code: code}
	}

	return &ErrorResult{Message: err.Error(), Code: TextCodeProviderFailure}
}

// IsNotFound reports if err is an expected "no rows" outcome rather than a
// connectivity or validation failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if repository.IsRecordNotFound(err) || goerrors.IsNotFound(err) {
		return true
	}
	if goerrors.Is(err, sql.ErrNoRows) {
		return true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Category == goerrors.CategoryNotFound
	}
	return false
}
