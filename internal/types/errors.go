package types

import "errors"

var (
	ErrAgentNotFound      = errors.New("agent not found")
	ErrScreenshotNotFound = errors.New("screenshot not found")
	ErrInvalidTimestamp   = errors.New("invalid timestamp format")
	ErrStorageUnavailable = errors.New("storage unavailable")
)
