// Package gateway sends formatted notifications to WhatsApp through the Avisa API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single send.
const DefaultTimeout = 15 * time.Second

// Message is one outbound WhatsApp message.
type Message struct {
	Phone    string
	Text     string
	MediaURL string
}

// Receipt is the gateway's acknowledgement of a send.
type Receipt struct {
	MessageID string
}

// Gateway delivers a message and reports the provider's receipt.
type Gateway interface {
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// Config holds Avisa connection settings.
type Config struct {
	BaseURL string        `yaml:"base_url" validate:"omitempty,url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
}

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("avisa: http %d: %s", e.Code, e.Body)
}

// Avisa implements Gateway over the Avisa HTTP API. Each Send is a single attempt.
type Avisa struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewAvisa creates an Avisa gateway.
func NewAvisa(cfg Config) *Avisa {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Avisa{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.Token,
		httpClient: &http.Client{Timeout: timeout},
		log:        slog.Default().With("component", "avisa"),
	}
}

type sendRequest struct {
	Phone    string `json:"phone"`
	Message  string `json:"message"`
	MediaURL string `json:"media_url,omitempty"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// Send posts msg to <base>/send.
func (a *Avisa) Send(ctx context.Context, msg Message) (*Receipt, error) {
	payload, err := json.Marshal(sendRequest{
		Phone:    msg.Phone,
		Message:  msg.Text,
		MediaURL: msg.MediaURL,
	})
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/send", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Content-Type", "application/json")

	a.log.Debug("Sending WhatsApp message", "phone", msg.Phone)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avisa send: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var out sendResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	a.log.Info("WhatsApp message sent", "message_id", out.ID)
	return &Receipt{MessageID: out.ID}, nil
}
