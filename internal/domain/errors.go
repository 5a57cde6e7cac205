package domain

import "errors"

var (
	ErrAllProvidersExhausted = errors.New("all providers exhausted")
	ErrProviderUnavailable   = errors.New("provider not configured or not available")
	ErrNoProvidersConfigured = errors.New("no providers configured")
	ErrUnsupportedFileType   = errors.New("unsupported file type")
	ErrFileTooLarge          = errors.New("file exceeds maximum allowed size")
	ErrUnreadableSource      = errors.New("document source is not readable")
	ErrInvalidMode           = errors.New("invalid extraction mode")
)
