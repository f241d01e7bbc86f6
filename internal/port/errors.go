package port

import "errors"

// Sentinel errors used across ports. Validation-class errors are never
// retried; the retry layer checks them with errors.Is.
var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrJobNotFound        = errors.New("job not found")
	ErrInvalidPath        = errors.New("repository path is not a directory")
	ErrDimensionMismatch  = errors.New("embedding dimension mismatch")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidRequest     = errors.New("invalid request")
)
