package models

import "errors"

var (
	// ErrInvalidInput is returned for empty or oversized text.
	ErrInvalidInput = errors.New("invalid input")
	// ErrModelLoad is returned when a model cannot be loaded.
	ErrModelLoad = errors.New("model load failed")
	// ErrUnknownModel is returned for a model id the registry does not know.
	// Errors wrapping it also wrap ErrModelLoad.
	ErrUnknownModel = errors.New("unknown model")
	// ErrSchema is returned for malformed batch input.
	ErrSchema = errors.New("schema error")
	// ErrUnsupportedFormat is returned for uploads with an unsupported extension.
	ErrUnsupportedFormat = errors.New("unsupported format")
)
