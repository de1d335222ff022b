// Package notify delivers best-effort notifications about new leads.
package notify

import (
	"context"
	"log/slog"
)

// Notification kinds.
const (
	KindLead      = "lead"
	KindAutoReply = "auto_reply"
)

// CompanyNotProvided replaces an empty company in lead notifications.
const CompanyNotProvided = "Not provided"

// AutoReplySubject is the subject line of the confirmation sent to a contact.
const AutoReplySubject = "Thank you for contacting ATTEC"

// Lead is the flat set of fields sent when a contact form is submitted.
type Lead struct {
	Name         string `json:"contact_name"`
	Email        string `json:"contact_email"`
	Company      string `json:"contact_company"`
	Message      string `json:"contact_message"`
	SubmissionID string `json:"submission_id"`
}

// Subject returns the notification subject line for the lead.
func (l Lead) Subject() string {
	from := l.Company
	if from == "" || from == CompanyNotProvided {
		from = "Website"
	}
	return "New Lead: " + l.Name + " from " + from
}

// Notifier sends lead notifications. Callers treat every error as
// non-fatal.
type Notifier interface {
	NotifyLead(ctx context.Context, lead Lead) error
	SendAutoReply(ctx context.Context, name, email string) error
}

// LogNotifier only logs notifications. It is used when no delivery
// endpoint is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With("component", "notify")}
}

// NotifyLead implements Notifier.
func (n *LogNotifier) NotifyLead(ctx context.Context, lead Lead) error {
	n.logger.InfoContext(ctx, "new lead",
		"submission_id", lead.SubmissionID,
		"subject", lead.Subject(),
	)
	return nil
}

// SendAutoReply implements Notifier.
func (n *LogNotifier) SendAutoReply(ctx context.Context, name, _ string) error {
	n.logger.InfoContext(ctx, "auto-reply skipped, no delivery endpoint configured", "contact_name", name)
	return nil
}
