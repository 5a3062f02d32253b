package llms

import "errors"

var (
	// ErrBackendUnavailable the inference service can not be reached
	ErrBackendUnavailable = errors.New("inference backend unavailable")
	// ErrInvalidResponse the inference reply can not be parsed into a turn
	ErrInvalidResponse = errors.New("invalid inference response")
	// ErrStoreUnavailable the persistence medium failed
	ErrStoreUnavailable = errors.New("conversation store unavailable")
	// ErrValidation empty user input or bad parameters
	ErrValidation = errors.New("validation error")
	// ErrNotFound no stored conversation with that id
	ErrNotFound = errors.New("conversation not found")
	// ErrBusy the session is waiting for the backend
	ErrBusy = errors.New("session is awaiting a response")
)
