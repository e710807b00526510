package domain

import "errors"

var (
	// ErrInvalidInput signals malformed caller input (empty keyword set, missing CSV column).
	ErrInvalidInput = errors.New("invalid input")
	// ErrProvider signals a transient external provider failure.
	ErrProvider = errors.New("provider error")
	// ErrQuotaExceeded signals an exhausted provider quota or token budget.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrInsufficientSignal signals that the classifier could not detect any category
	// (text too short or carries no topical signal).
	ErrInsufficientSignal = errors.New("insufficient signal")
)
