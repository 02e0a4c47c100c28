package security

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ayyo42069/tuning-portal-react-sub000/internal/geo"
	"github.com/ayyo42069/tuning-portal-react-sub000/internal/metrics"
	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/ayyo42069/tuning-portal-react-sub000/params"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	AlertTypeAccountLockout    = "account_lockout"
	AlertTypeNewLocationAccess = "new_location_access"
	AlertTypeBruteForceAttempt = "brute_force_attempt"
)

type EventInput struct {
	UserID    *uint
	EventType model.EventType
	Severity  model.Severity
	IPAddress string
	UserAgent string
	Details   map[string]interface{}
}

type AlertInput struct {
	EventID   uint64
	UserID    *uint
	AlertType string
	Severity  model.Severity
	Message   string
}

// AlertNotifier is told about every alert at or above error severity.
type AlertNotifier interface {
	NotifyAlert(ctx context.Context, alert *model.SecurityAlert) error
}

type SecurityService struct {
	eventRepo    EventRepository
	alertRepo    AlertRepository
	locationRepo LocationRepository
	locator      geo.Locator
	notifier     AlertNotifier
	now          func() time.Time
}

// sanitizeUserAgent replaces invalid UTF-8 and caps the result at
// params.MaxUserAgentLength bytes without splitting a rune.
func sanitizeUserAgent(ua string) string {
	ua = strings.ToValidUTF8(ua, "\uFFFD")
	if len(ua) <= params.MaxUserAgentLength {
		return ua
	}
	cut := params.MaxUserAgentLength
	for cut > 0 && !utf8.RuneStart(ua[cut]) {
		cut--
	}
	return ua[:cut]
}

// RecordEvent persists one security event and returns its id. Recording does
// not trigger any check.
func (s *SecurityService) RecordEvent(ctx context.Context, input EventInput) (uint64, error) {
	if !input.EventType.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEventType, input.EventType)
	}
	if !input.Severity.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeverity, input.Severity)
	}
	ip := input.IPAddress
	if ip == "" {
		ip = params.UnknownIPAddress
	}

	event := model.SecurityEvent{
		UserID:    input.UserID,
		EventType: input.EventType,
		Severity:  input.Severity,
		IPAddress: ip,
		UserAgent: sanitizeUserAgent(input.UserAgent),
		CreatedAt: s.now(),
	}
	if input.Details != nil {
		event.Details = datatypes.JSONMap(input.Details)
	}
	if err := s.eventRepo.Create(ctx, &event); err != nil {
		return 0, fmt.Errorf("record %s event: %w", input.EventType, err)
	}
	metrics.SecurityEventsRecorded.WithLabelValues(string(event.EventType), string(event.Severity)).Inc()
	return event.ID, nil
}

func (s *SecurityService) GetEvent(ctx context.Context, eventID uint64) (*model.SecurityEvent, error) {
	event, err := s.eventRepo.First(ctx, clause.Eq{Column: "id", Value: eventID})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEventNotFound
	}
	return event, err
}

func (s *SecurityService) CreateAlert(ctx context.Context, input AlertInput) (*model.SecurityAlert, error) {
	if input.AlertType == "" || input.Message == "" {
		return nil, ErrInvalidAlert
	}
	if !input.Severity.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, input.Severity)
	}
	alert := model.SecurityAlert{
		EventID:   input.EventID,
		UserID:    input.UserID,
		AlertType: input.AlertType,
		Severity:  input.Severity,
		Message:   input.Message,
		CreatedAt: s.now(),
	}
	if err := s.alertRepo.Create(ctx, &alert); err != nil {
		return nil, fmt.Errorf("create %s alert: %w", input.AlertType, err)
	}
	metrics.SecurityAlertsCreated.WithLabelValues(alert.AlertType).Inc()

	if s.notifier != nil && alert.Severity.Rank() >= model.SeverityError.Rank() {
		if err := s.notifier.NotifyAlert(ctx, &alert); err != nil {
			slog.WarnContext(ctx, "Failed to send alert notification", "alertID", alert.ID, "error", err)
		}
	}
	return &alert, nil
}

// CheckGeographicAnomaly records where the user accessed from and raises a
// new_location_access alert the first time a country and region pair is seen.
func (s *SecurityService) CheckGeographicAnomaly(ctx context.Context, userID uint, ip, userAgent string, relatedEventID uint64) BestEffort {
	const op = "check_geographic_anomaly"
	if ip == "" {
		ip = params.UnknownIPAddress
	}
	loc, err := s.locator.Locate(ctx, ip)
	if err != nil {
		return bestEffort(op, err)
	}

	seen, err := s.locationRepo.Count(ctx,
		clause.Eq{Column: "user_id", Value: userID},
		clause.Eq{Column: "country", Value: loc.Country},
		clause.Eq{Column: "region", Value: loc.Region},
	)
	if err != nil {
		return bestEffort(op, err)
	}
	firstAccess := seen == 0

	// a new location is only suspicious when the user has logged in from somewhere else before
	suspicious := false
	if firstAccess {
		known, err := s.locationRepo.Count(ctx, clause.Eq{Column: "user_id", Value: userID})
		if err != nil {
			return bestEffort(op, err)
		}
		suspicious = known > 0
	}

	access := model.UserAccessLocation{
		UserID:        userID,
		IPAddress:     ip,
		Country:       loc.Country,
		Region:        loc.Region,
		City:          loc.City,
		Latitude:      loc.Latitude,
		Longitude:     loc.Longitude,
		IsFirstAccess: firstAccess,
		IsSuspicious:  suspicious,
		CreatedAt:     s.now(),
	}
	if err := s.locationRepo.Create(ctx, &access); err != nil {
		return bestEffort(op, err)
	}
	if !firstAccess {
		return bestEffort(op)
	}

	eventID, err := s.RecordEvent(ctx, EventInput{
		UserID:    &userID,
		EventType: model.EventGeographicAnomaly,
		Severity:  model.SeverityWarning,
		IPAddress: ip,
		UserAgent: userAgent,
		Details: map[string]interface{}{
			"relatedEventId": relatedEventID,
			"country":        loc.Country,
			"region":         loc.Region,
			"city":           loc.City,
			"latitude":       loc.Latitude,
			"longitude":      loc.Longitude,
		},
	})
	if err != nil {
		return bestEffort(op, err)
	}
	_, err = s.CreateAlert(ctx, AlertInput{
		EventID:   eventID,
		UserID:    &userID,
		AlertType: AlertTypeNewLocationAccess,
		Severity:  model.SeverityWarning,
		Message:   fmt.Sprintf("Login from new location: %s, %s, %s", loc.City, loc.Region, loc.Country),
	})
	return bestEffort(op, err)
}

func NewSecurityService(eventRepo EventRepository, alertRepo AlertRepository, locationRepo LocationRepository, locator geo.Locator, notifier AlertNotifier) *SecurityService {
	return &SecurityService{
		eventRepo:    eventRepo,
		alertRepo:    alertRepo,
		locationRepo: locationRepo,
		locator:      geo.WithFallback(locator),
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
	}
}
