package domain

import "errors"

// Sentinel errors for the application. Managers wrap these with a contextual
// message; callers match with errors.Is.
var (
	ErrValidation         = errors.New("invalid input")
	ErrConflict           = errors.New("resource already exists")
	ErrNotFound           = errors.New("resource not found")
	ErrAuth               = errors.New("invalid credentials")
	ErrStorageUnavailable = errors.New("persistent storage unavailable")
	ErrStorage            = errors.New("storage failure")
)
