package notify

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

	"jobmate/jobalert-service/internal/config"
	"jobmate/jobalert-service/internal/logger"
)

const defaultSendGridBaseURL = "https://api.sendgrid.com"

// SendGrid is a minimal client for the SendGrid v3 mail send endpoint.
type SendGrid struct {
	apiKey     string
	baseURL    string
	fromEmail  string
	fromName   string
	httpClient *http.Client
	maxRetries int
	backoff    time.Duration
	log        *logger.Logger
}

// NewSendGrid returns nil, nil when no API key is configured.
func NewSendGrid(cfg config.SendGridConfig, log *logger.Logger) (*SendGrid, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, nil
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("sendgrid: SENDGRID_FROM_EMAIL required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultSendGridBaseURL
	}
	return &SendGrid{
		apiKey:     cfg.APIKey,
		baseURL:    base,
		fromEmail:  cfg.FromEmail,
		fromName:   cfg.FromName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		backoff:    time.Second,
		log:        log.With("client", "SendGridClient"),
	}, nil
}

type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Mail is one outgoing message.
type Mail struct {
	To      EmailAddress
	Subject string
	Text    string
	HTML    string
}

// --- SendGrid mail send wire types ---
type mailSendRequest struct {
	Personalizations []personalization `json:"personalizations"`
	From             EmailAddress      `json:"from"`
	Subject          string            `json:"subject"`
	Content          []mailContent     `json:"content"`
}

type personalization struct {
	To []EmailAddress `json:"to"`
}

type mailContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type errorResponse struct {
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// HTTPError is a non-2xx answer from SendGrid.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sendgrid http %d: %s", e.StatusCode, e.Message)
}

func (e *HTTPError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Send delivers m, retrying rate limits and server errors with
// exponential backoff.
func (s *SendGrid) Send(ctx context.Context, m Mail) error {
	if strings.TrimSpace(m.To.Email) == "" {
		return fmt.Errorf("sendgrid: recipient required")
	}
	contents := []mailContent{}
	if t := strings.TrimSpace(m.Text); t != "" {
		contents = append(contents, mailContent{Type: "text/plain", Value: t})
	}
	if h := strings.TrimSpace(m.HTML); h != "" {
		contents = append(contents, mailContent{Type: "text/html", Value: h})
	}
	if len(contents) == 0 {
		return fmt.Errorf("sendgrid: Text or HTML content required")
	}

	wire := mailSendRequest{
		Personalizations: []personalization{{To: []EmailAddress{m.To}}},
		From:             EmailAddress{Email: s.fromEmail, Name: s.fromName},
		Subject:          m.Subject,
		Content:          contents,
	}

	backoff := s.backoff
	for attempt := 0; ; attempt++ {
		err := s.doOnce(ctx, wire)
		if err == nil {
			return nil
		}
		var he *HTTPError
		if !errors.As(err, &he) || !he.retryable() || attempt >= s.maxRetries {
			return err
		}
		s.log.Warn("Sendgrid request retrying", "attempt", attempt+1, "sleep", backoff.String(), "error", err.Error())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func (s *SendGrid) doOnce(ctx context.Context, body mailSendRequest) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v3/mail/send", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		he := &HTTPError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
		var er errorResponse
		if json.Unmarshal(raw, &er) == nil && len(er.Errors) > 0 {
			he.Message = er.Errors[0].Message
		}
		return he
	}
	return nil
}
