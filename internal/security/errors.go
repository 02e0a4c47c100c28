package security

import "errors"

var (
	ErrInvalidEventType = errors.New("invalid security event type")
	ErrInvalidSeverity  = errors.New("invalid security severity")
	ErrEventNotFound    = errors.New("security event not found")
	ErrAlertNotFound    = errors.New("security alert not found")
	ErrInvalidAlert     = errors.New("invalid security alert")
)
