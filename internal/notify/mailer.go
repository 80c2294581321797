package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/balancebeacon/backend/internal/domain"
	"github.com/balancebeacon/backend/internal/logging"
)

// Message is the context handed to the mail gateway for one participant.
type Message struct {
	Kind        string
	Recipient   string
	OwnerName   string
	Description string
	Amount      decimal.Decimal
	Currency    domain.Currency
}

const (
	KindShareCreated  = "share_created"
	KindShareReminder = "share_reminder"
)

// MailerClient delivers participant notifications through the mail gateway.
// Delivery is best-effort: callers decide whether a failure matters.
type MailerClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewMailerClient(baseURL string, timeout time.Duration) *MailerClient {
	return &MailerClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type mailerPayload struct {
	Kind        string `json:"kind"`
	Recipient   string `json:"recipient"`
	OwnerName   string `json:"owner_name"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

func (c *MailerClient) Send(ctx context.Context, msg Message) error {
	log := logging.FromContext(ctx)

	payload := mailerPayload{
		Kind:        msg.Kind,
		Recipient:   msg.Recipient,
		OwnerName:   msg.OwnerName,
		Description: msg.Description,
		Amount:      msg.Amount.StringFixed(2),
		Currency:    string(msg.Currency),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("Send: marshal: %w", err)
	}

	url := c.baseURL + "/send"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("Send: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("Send: send: %w", err)
	}
	defer resp.Body.Close()

	log.Info("mailer response received",
		"kind", msg.Kind,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Send: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
