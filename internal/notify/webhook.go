package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSender POSTs notifications to an HTTP hook, e.g. a Zapier catch
// hook that fans out to SMS.
type WebhookSender struct {
	hookURL    string
	httpClient *http.Client
}

// NewWebhookSender creates a new webhook sender
func NewWebhookSender(hookURL string) *WebhookSender {
	return &WebhookSender{
		hookURL:    hookURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *WebhookSender) Name() string { return "webhook" }

// Send posts the notification as a JSON payload
func (s *WebhookSender) Send(ctx context.Context, n *Notification) error {
	payload := map[string]interface{}{
		"type": "blockchain_alert",
		"data": map[string]interface{}{
			"alertId":   n.AlertID,
			"alertType": n.AlertType,
			"chain":     n.Chain,
			"token":     n.Token,
			"condition": n.Condition,
			"threshold": n.Threshold,
			"observed":  n.Observed,
			"message":   n.Message,
			"target":    n.Target,
			"timestamp": n.Timestamp.Format(time.RFC3339),
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.hookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return nil
}
