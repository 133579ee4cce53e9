package usecase

import "errors"

// Sentinel errors for use case layer
var (
	ErrUnknownForm = errors.New("unknown form")
)
