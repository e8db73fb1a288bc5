package chat

import "errors"

var (
	// ErrInvalidInput is returned for a missing or empty user message.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInferenceFailure is returned when the model call fails or yields no usable reply.
	ErrInferenceFailure = errors.New("inference failed")
	// ErrStorageFailure is returned when a session log cannot be loaded or saved.
	ErrStorageFailure = errors.New("storage failed")
)
