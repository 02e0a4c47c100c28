package model

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

var (
	ErrUnknownEventType = errors.New("unknown security event type")
	ErrUnknownSeverity  = errors.New("unknown security severity")
)

// EventType is the closed set of security event kinds.
type EventType string

const (
	EventLoginSuccess           EventType = "login_success"
	EventLoginFailure           EventType = "login_failure"
	EventLogout                 EventType = "logout"
	EventRegistration           EventType = "registration"
	EventPasswordChange         EventType = "password_change"
	EventPasswordResetRequest   EventType = "password_reset_request"
	EventPasswordResetComplete  EventType = "password_reset_complete"
	EventAccountLockout         EventType = "account_lockout"
	EventAccountUnlock          EventType = "account_unlock"
	EventAdminAction            EventType = "admin_action"
	EventAPIAccess              EventType = "api_access"
	EventSensitiveDataAccess    EventType = "sensitive_data_access"
	EventSuspiciousActivity     EventType = "suspicious_activity"
	EventGeographicAnomaly      EventType = "geographic_anomaly"
	EventMultipleFailedAttempts EventType = "multiple_failed_attempts"
)

var EventTypes = []EventType{
	EventLoginSuccess, EventLoginFailure, EventLogout, EventRegistration,
	EventPasswordChange, EventPasswordResetRequest, EventPasswordResetComplete,
	EventAccountLockout, EventAccountUnlock, EventAdminAction, EventAPIAccess,
	EventSensitiveDataAccess, EventSuspiciousActivity, EventGeographicAnomaly,
	EventMultipleFailedAttempts,
}

func (t EventType) Valid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

func (t EventType) String() string {
	return string(t)
}

func ParseEventType(s string) (EventType, error) {
	t := EventType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, s)
	}
	return t, nil
}

func (t EventType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, string(t))
	}
	return string(t), nil
}

func (t *EventType) Scan(src interface{}) error {
	s, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseEventType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Severity is the closed set of event and alert severities, lowest first.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var Severities = []Severity{SeverityInfo, SeverityWarning, SeverityError, SeverityCritical}

// Rank orders severities; unknown values rank below info.
func (s Severity) Rank() int {
	for i, known := range Severities {
		if s == known {
			return i
		}
	}
	return -1
}

func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

func (s Severity) String() string {
	return string(s)
}

func ParseSeverity(str string) (Severity, error) {
	s := Severity(str)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSeverity, str)
	}
	return s, nil
}

func (s Severity) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSeverity, string(s))
	}
	return string(s), nil
}

func (s *Severity) Scan(src interface{}) error {
	str, err := scanString(src)
	if err != nil {
		return err
	}
	parsed, err := ParseSeverity(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func scanString(src interface{}) (string, error) {
	switch v := src.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("cannot scan %T into string enum", src)
	}
}
