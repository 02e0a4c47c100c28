package mail

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []*Message
	err      error
}

func (s *fakeSender) Send(message *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
	return s.err
}

func testAlert() *model.SecurityAlert {
	userID := uint(42)
	return &model.SecurityAlert{
		ID:        7,
		EventID:   19,
		UserID:    &userID,
		AlertType: "account_lockout",
		Severity:  model.SeverityError,
		Message:   "Account locked after 5 failed login attempts",
		CreatedAt: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestAlertNotifier_SendsToRecipients(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewAlertNotifier(sender, "Tuning Portal", []string{"sec@example.com", "ops@example.com"})

	require.NoError(t, notifier.NotifyAlert(context.Background(), testAlert()))
	notifier.Wait()

	require.Len(t, sender.messages, 1)
	msg := sender.messages[0]
	assert.Equal(t, []string{"sec@example.com", "ops@example.com"}, msg.To)
	assert.Equal(t, "[Tuning Portal] ERROR: account_lockout", msg.Subject)
	assert.Contains(t, msg.Body, "Account locked after 5 failed login attempts")
	assert.Contains(t, msg.Body, "User:     42")
	assert.Contains(t, msg.Body, "2025-03-14T12:00:00Z")
}

func TestAlertNotifier_NoRecipients(t *testing.T) {
	sender := &fakeSender{}
	notifier := NewAlertNotifier(sender, "Tuning Portal", nil)

	require.NoError(t, notifier.NotifyAlert(context.Background(), testAlert()))
	notifier.Wait()
	assert.Empty(t, sender.messages)
}

func TestAlertNotifier_SendFailureIsSwallowed(t *testing.T) {
	sender := &fakeSender{err: errors.New("connection refused")}
	notifier := NewAlertNotifier(sender, "Tuning Portal", []string{"sec@example.com"})

	assert.NoError(t, notifier.NotifyAlert(context.Background(), testAlert()))
	notifier.Wait()
	assert.Len(t, sender.messages, 1)
}
