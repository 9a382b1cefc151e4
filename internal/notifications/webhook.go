/*-------------------------------------------------------------------------
 *
 * webhook.go
 *    Webhook notification channel
 *
 * Posts approval events to a configured external endpoint.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/notifications/webhook.go
 *
 *-------------------------------------------------------------------------
 */

package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

/* WebhookService provides webhook notification capabilities */
type WebhookService struct {
	httpClient *http.Client
	timeout    time.Duration
}

/* NewWebhookService creates a new webhook service */
func NewWebhookService(timeout time.Duration) *WebhookService {
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &WebhookService{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

/* SendWebhook sends a webhook notification */
func (w *WebhookService) SendWebhook(ctx context.Context, url string, payload map[string]interface{}) error {
	if url == "" {
		return fmt.Errorf("webhook URL is required")
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook payload serialization failed: error=%w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payloadJSON))
	if err != nil {
		return fmt.Errorf("webhook request creation failed: url='%s', error=%w", url, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "DocFlow/1.0")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: url='%s', error=%w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook request failed: url='%s', status_code=%d", url, resp.StatusCode)
	}

	return nil
}
