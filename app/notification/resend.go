package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-billing/app/factory"
)

var ErrNotification = errors.New("notification delivery failed")

const (
	defaultResendBaseURL = "https://api.resend.com"
	defaultFromAddress   = "noreply@yourapp.com"
)

type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

type ResendConfig struct {
	APIKey      string
	BaseURL     string
	From        string
	HTTPTimeout time.Duration
}

type ResendSender struct {
	cfg    ResendConfig
	client *http.Client
	logger logrus.FieldLogger
}

func NewResendSender(cfg ResendConfig) *ResendSender {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultResendBaseURL
	}
	if strings.TrimSpace(cfg.From) == "" {
		cfg.From = defaultFromAddress
	}

	return &ResendSender{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		logger: factory.NewModuleLogger("resend-sender"),
	}
}

// Send is a no-op without an API key.
func (s *ResendSender) Send(ctx context.Context, to, subject, html string) error {
	if strings.TrimSpace(s.cfg.APIKey) == "" {
		s.logger.WithField("to", to).Warn("RESEND_API_KEY is not set, skipping email")
		return nil
	}

	payload, err := json.Marshal(map[string]string{
		"from":    s.cfg.From,
		"to":      to,
		"subject": subject,
		"html":    html,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotification, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status=%d body=%s", ErrNotification, resp.StatusCode, string(body))
	}

	s.logger.WithField("to", to).WithField("subject", subject).Info("Email sent")
	return nil
}
