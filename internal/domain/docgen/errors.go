package docgen

import "errors"

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrContextClosed  = errors.New("generation context already released")
	ErrInvalidInput   = errors.New("invalid input")
	ErrNetwork        = errors.New("network error")
	ErrNoModels       = errors.New("no models configured")
	ErrRunCancelled   = errors.New("generation run cancelled")
	ErrTimeout        = errors.New("model call timed out")
	ErrUnexpectedBody = errors.New("unexpected response status")
)
