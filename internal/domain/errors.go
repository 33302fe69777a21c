package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by stores and
// services to communicate domain-specific error conditions.
// -----------------------------------------------------------------------------

// Profile errors
var (
	ErrProfileNotFound = errors.New("profile not found")
)

// Question errors
var (
	ErrQuestionNotFound     = errors.New("question not found")
	ErrQuestionTypeMismatch = errors.New("question type mismatch")
)

// Session history errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// Generation errors
var (
	// ErrUnparsable signals that generated text yielded no structured data
	// after every recovery strategy. It is a definite failure value, not a
	// crash path.
	ErrUnparsable = errors.New("generated output is unparsable")
)

// Upload errors
var (
	ErrUnsupportedFile = errors.New("unsupported file format")
)

// General errors
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)
