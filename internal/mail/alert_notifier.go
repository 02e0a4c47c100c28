package mail

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ayyo42069/tuning-portal-react-sub000/model"
	"github.com/valyala/bytebufferpool"
)

// AlertNotifier emails security alerts to the configured administrators.
// Delivery happens in the background so alert creation never waits on SMTP.
type AlertNotifier struct {
	sender     MailSender
	siteName   string
	recipients []string
	wg         sync.WaitGroup
}

func (n *AlertNotifier) alertMessage(alert *model.SecurityAlert) *Message {
	body := bytebufferpool.Get()
	defer bytebufferpool.Put(body)

	fmt.Fprintf(body, "A %s security alert was raised on %s.\n\n", alert.Severity, n.siteName)
	fmt.Fprintf(body, "Alert:    #%d %s\n", alert.ID, alert.AlertType)
	fmt.Fprintf(body, "Event:    #%d\n", alert.EventID)
	if alert.UserID != nil {
		fmt.Fprintf(body, "User:     %d\n", *alert.UserID)
	}
	fmt.Fprintf(body, "Time:     %s\n", alert.CreatedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(body, "Message:  %s\n", alert.Message)

	return &Message{
		To:      n.recipients,
		Subject: fmt.Sprintf("[%s] %s: %s", n.siteName, strings.ToUpper(alert.Severity.String()), alert.AlertType),
		Body:    body.String(),
	}
}

func (n *AlertNotifier) NotifyAlert(ctx context.Context, alert *model.SecurityAlert) error {
	if len(n.recipients) == 0 {
		return nil
	}
	msg := n.alertMessage(alert)
	alertID := alert.ID
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.sender.Send(msg); err != nil {
			slog.ErrorContext(ctx, "Failed to send security alert email", "alertID", alertID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until queued notifications have been handed to the sender.
func (n *AlertNotifier) Wait() {
	n.wg.Wait()
}

func NewAlertNotifier(sender MailSender, siteName string, recipients []string) *AlertNotifier {
	return &AlertNotifier{
		sender:     sender,
		siteName:   siteName,
		recipients: recipients,
	}
}
