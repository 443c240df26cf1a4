package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.Mailer = (*ResendMailer)(nil)

type message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// ResendMailer posts HTML messages to a Resend compatible email API.
type ResendMailer struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
}

func NewResendMailer(apiURL, apiKey, from string) (*ResendMailer, error) {
	const op = "NewResendMailer"

	if apiURL == "" || apiKey == "" || from == "" {
		return nil, fmt.Errorf("%s: api url, api key and sender are required", op)
	}

	return &ResendMailer{
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (m *ResendMailer) SendVerification(
	ctx context.Context, to domain.Identity, link string,
) error {
	const op = "ResendMailer.SendVerification"

	html, err := renderVerification(to, link)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = m.send(ctx, message{
		From:    m.from,
		To:      []string{to.Email},
		Subject: "Verify your email",
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *ResendMailer) SendOrderConfirmation(ctx context.Context, o domain.Order) error {
	const op = "ResendMailer.SendOrderConfirmation"

	html, err := renderOrder(o)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = m.send(ctx, message{
		From:    m.from,
		To:      []string{o.Email},
		Subject: "Order #" + o.ID + " confirmed",
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (m *ResendMailer) send(ctx context.Context, msg message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("email api responded %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	slog.Debug("email sent", "op", "ResendMailer.send", "to", msg.To, "subject", msg.Subject)
	return nil
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct{}

var _ port.Mailer = LogMailer{}

func (LogMailer) SendVerification(_ context.Context, to domain.Identity, link string) error {
	slog.Info("verification email", "op", "LogMailer.SendVerification", "to", to.Email, "link", link)
	return nil
}

func (LogMailer) SendOrderConfirmation(_ context.Context, o domain.Order) error {
	if o.Email == "" {
		return errors.New("LogMailer.SendOrderConfirmation: empty recipient")
	}
	slog.Info("order confirmation email",
		"op", "LogMailer.SendOrderConfirmation",
		"to", o.Email, "orderID", o.ID, "sum", o.Summary.Sum,
	)
	return nil
}
