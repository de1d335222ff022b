package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Header names for webhook requests.
const (
	HeaderSignature  = "X-Attec-Signature"
	HeaderTimestamp  = "X-Attec-Timestamp"
	HeaderDeliveryID = "X-Attec-Delivery-Id"
)

const (
	// DefaultTimeout is the total request timeout.
	DefaultTimeout = 10 * time.Second
	// dialTimeout is the connection timeout.
	dialTimeout = 5 * time.Second
)

// Payload is the JSON body POSTed to the webhook endpoint.
type Payload struct {
	Type       string    `json:"type"`
	DeliveryID string    `json:"delivery_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Subject    string    `json:"subject"`
	To         string    `json:"to,omitempty"`
	Lead       *Lead     `json:"lead,omitempty"`
	Name       string    `json:"contact_name,omitempty"`
}

// DeliveryError reports a non-2xx response from the endpoint.
type DeliveryError struct {
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return "webhook endpoint returned status " + strconv.Itoa(e.StatusCode)
}

// WebhookNotifier POSTs signed JSON payloads to an HTTP endpoint, which is
// responsible for turning them into emails.
type WebhookNotifier struct {
	url         string
	host        string
	secret      string
	client      *http.Client
	now         func() time.Time
	maxAttempts int
	retryDelay  func(attempt int) time.Duration
	logger      *slog.Logger
}

// WebhookOption configures a WebhookNotifier.
type WebhookOption func(*WebhookNotifier)

// WithMaxAttempts sets how many times a delivery is tried. Values below 1
// are ignored.
func WithMaxAttempts(n int) WebhookOption {
	return func(w *WebhookNotifier) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithRetryDelay replaces NextRetryDelay, for tests.
func WithRetryDelay(fn func(attempt int) time.Duration) WebhookOption {
	return func(w *WebhookNotifier) { w.retryDelay = fn }
}

// NewWebhookNotifier creates a notifier posting to rawURL.
func NewWebhookNotifier(rawURL, secret string, timeout time.Duration, logger *slog.Logger, opts ...WebhookOption) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &WebhookNotifier{
		url:         rawURL,
		host:        extractHost(rawURL),
		secret:      secret,
		client:      NewHTTPClient(timeout),
		now:         time.Now,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  NextRetryDelay,
		logger:      logger.With("component", "notify_webhook"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// extractHost returns the host of rawURL for logging. Full URLs are never
// logged since they may carry tokens.
func extractHost(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "(invalid)"
	}
	return parsed.Host
}

// NewHTTPClient creates an HTTP client for webhook delivery.
// It does not follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   dialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   dialTimeout,
			ResponseHeaderTimeout: timeout,
			MaxIdleConns:          10,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// NotifyLead implements Notifier.
func (n *WebhookNotifier) NotifyLead(ctx context.Context, lead Lead) error {
	if lead.Company == "" {
		lead.Company = CompanyNotProvided
	}
	return n.deliver(ctx, Payload{
		Type:    KindLead,
		Subject: lead.Subject(),
		Lead:    &lead,
	})
}

// SendAutoReply implements Notifier.
func (n *WebhookNotifier) SendAutoReply(ctx context.Context, name, email string) error {
	return n.deliver(ctx, Payload{
		Type:    KindAutoReply,
		Subject: AutoReplySubject,
		To:      email,
		Name:    name,
	})
}

// deliver sends p, retrying transient failures with backoff. Every attempt
// carries the same delivery id so receivers can deduplicate.
func (n *WebhookNotifier) deliver(ctx context.Context, p Payload) error {
	p.DeliveryID = uuid.NewString()
	p.OccurredAt = n.now().UTC()

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", p.Type, err)
	}

	for attempt := 0; ; attempt++ {
		err = n.attempt(ctx, p, body)
		if err == nil || attempt+1 >= n.maxAttempts || !IsRetryable(err) {
			return err
		}

		delay := n.retryDelay(attempt)
		n.logger.WarnContext(ctx, "webhook delivery failed, retrying",
			"type", p.Type,
			"delivery_id", p.DeliveryID,
			"host", n.host,
			"attempt", attempt+1,
			"retry_in", delay,
			"error", err,
		)
		if sleepErr := sleepContext(ctx, delay); sleepErr != nil {
			return err
		}
	}
}

// attempt makes one signed POST. The signature covers the attempt's own
// timestamp, so a retry is never rejected as a replay.
func (n *WebhookNotifier) attempt(ctx context.Context, p Payload, body []byte) error {
	now := n.now().UTC()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", p.Type, err)
	}

	ts := now.Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Attec-Notify/1.0")
	req.Header.Set(HeaderSignature, Sign(n.secret, ts, body))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderDeliveryID, p.DeliveryID)

	start := time.Now()
	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver %s: %w", p.Type, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	n.logger.DebugContext(ctx, "webhook delivered",
		"type", p.Type,
		"delivery_id", p.DeliveryID,
		"host", n.host,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{StatusCode: resp.StatusCode}
	}
	return nil
}
