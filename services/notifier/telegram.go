package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/internal/metrics"
	"sjsage522/eventworker/logger"
	apperrors "sjsage522/eventworker/pkg/errors"
)

// Notifier delivers run results to the chat audience.
type Notifier interface {
	SendEvents(ctx context.Context, events []extractor.Event) error
	SendAlert(ctx context.Context, failures []Failure) error
	SendError(ctx context.Context, errMsg string) error
}

// TelegramNotifier implements Notifier with the Bot API sendMessage method
type TelegramNotifier struct {
	client *resty.Client
	token  string
	chatID string
	limits Limits
	now    func() time.Time
	log    *logger.Logger
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramNotifier creates a notifier posting to apiURL.
func NewTelegramNotifier(apiURL, token, chatID string, timeout time.Duration, limits Limits) *TelegramNotifier {
	client := resty.New().
		SetBaseURL(strings.TrimRight(apiURL, "/")).
		SetHeader("Content-Type", "application/json")
	if timeout > 0 {
		client.SetTimeout(timeout)
	}
	return &TelegramNotifier{
		client: client,
		token:  token,
		chatID: chatID,
		limits: limits,
		now:    time.Now,
		log:    logger.ForNotifier(),
	}
}

// SendEvents renders and delivers the digest of new events.
func (n *TelegramNotifier) SendEvents(ctx context.Context, events []extractor.Event) error {
	msg := BuildEventMessage(events, n.limits)
	if msg.Truncated {
		n.log.Warn().Int("events", len(events)).Msg("digest exceeds message limit, sending truncated plain text")
	}
	return n.deliver(ctx, "events", msg)
}

// SendAlert delivers the all-extractors-failed alert.
func (n *TelegramNotifier) SendAlert(ctx context.Context, failures []Failure) error {
	return n.deliver(ctx, "alert", BuildAllFailedMessage(failures, n.now(), n.limits))
}

// SendError delivers a generic run error.
func (n *TelegramNotifier) SendError(ctx context.Context, errMsg string) error {
	return n.deliver(ctx, "error", BuildErrorMessage(errMsg, n.now(), n.limits))
}

func (n *TelegramNotifier) deliver(ctx context.Context, kind string, msg Message) error {
	err := n.Send(ctx, msg)
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metrics.NotificationsSent.WithLabelValues(kind, result).Inc()
	if err == nil {
		n.log.Info().Str("kind", kind).Bool("truncated", msg.Truncated).Msg("message delivered")
	}
	return err
}

// Send posts one message. Non-2xx responses and ok:false both fail.
func (n *TelegramNotifier) Send(ctx context.Context, msg Message) error {
	resp, err := n.client.R().
		SetContext(ctx).
		SetBody(sendMessageRequest{
			ChatID:    n.chatID,
			Text:      msg.Text,
			ParseMode: msg.ParseMode,
		}).
		Post("/bot" + n.token + "/sendMessage")
	if err != nil {
		return apperrors.NewDelivery("sendMessage request failed", n.redact(err))
	}

	var out apiResponse
	decodeErr := json.Unmarshal(resp.Body(), &out)

	if !resp.IsSuccess() {
		detail := out.Description
		if decodeErr != nil || detail == "" {
			detail = snippet(resp.String())
		}
		return apperrors.NewDelivery(fmt.Sprintf("HTTP %d: %s", resp.StatusCode(), detail), nil)
	}
	if decodeErr != nil {
		return apperrors.NewDelivery("invalid sendMessage response", decodeErr)
	}
	if !out.OK {
		desc := out.Description
		if desc == "" {
			desc = "unknown error"
		}
		return apperrors.NewDelivery("Telegram API rejected request: "+desc, nil)
	}
	return nil
}

// redactedError hides the bot token, which appears in request URLs, while
// keeping the cause reachable for errors.Is.
type redactedError struct {
	err   error
	token string
}

func (e *redactedError) Error() string {
	return strings.ReplaceAll(e.err.Error(), e.token, "<redacted>")
}

func (e *redactedError) Unwrap() error {
	return e.err
}

func (n *TelegramNotifier) redact(err error) error {
	if n.token == "" || err == nil {
		return err
	}
	return &redactedError{err: err, token: n.token}
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if len([]rune(s)) > 200 {
		return string([]rune(s)[:200]) + truncationSuffix
	}
	return s
}
