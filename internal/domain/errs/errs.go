// Package errs holds the error taxonomy shared by the application and
// infrastructure layers. Callers wrap these with fmt.Errorf("...: %w") and the
// HTTP layer classifies them with errors.Is.
package errs

import "errors"

var (
	// ErrValidation is returned for missing or malformed input fields.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned for a missing, invalid or expired session token.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInactiveUser is returned when the session belongs to a deactivated identity.
	ErrInactiveUser = errors.New("inactive user")
	// ErrDecode is returned when image bytes cannot be decoded.
	ErrDecode = errors.New("image decode failed")
	// ErrExchange is returned when the authorization code exchange fails.
	ErrExchange = errors.New("authorization code exchange failed")
	// ErrUserInfo is returned when the provider profile cannot be fetched.
	ErrUserInfo = errors.New("provider user info fetch failed")
	// ErrUpload is returned when the blob store rejects an upload.
	ErrUpload = errors.New("image upload failed")
	// ErrInvalidProviderData is returned when the provider profile lacks email or subject id.
	ErrInvalidProviderData = errors.New("invalid provider data")
)
