// internal/dispatch/webhook.go
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mlenstra/shrike/internal/retry"
	"github.com/mlenstra/shrike/internal/types"
)

// WebhookDeliverer is the generic HTTP provider: it POSTs the rendered
// message as a small JSON body to the provider's configured "url". Any
// provider-specific payload shaping (chat messages, paging events) belongs
// to an external collaborator, not here.
//
// Outcome mapping: 2xx success; 4xx terminal (the provider rejected the
// message, retrying cannot help); 5xx and transport errors transient.
type WebhookDeliverer struct {
	client *http.Client
}

// NewWebhookDeliverer creates a webhook deliverer. The client timeout stays
// zero: the dispatcher's per-attempt context deadline bounds each request.
func NewWebhookDeliverer() *WebhookDeliverer {
	return &WebhookDeliverer{client: &http.Client{}}
}

type webhookPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Deliver implements Deliverer.
func (w *WebhookDeliverer) Deliver(ctx context.Context, provider types.Provider, message string) error {
	url, ok := provider.Config["url"]
	if !ok || url == "" {
		return retry.Terminal(fmt.Errorf("provider %s: no url configured", provider.ID))
	}

	body, err := json.Marshal(webhookPayload{
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return retry.Terminal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return retry.Terminal(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		// Transport errors and deadline expiry are transient
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.Terminal(fmt.Errorf("provider %s rejected delivery: %s", provider.ID, resp.Status))
	default:
		return fmt.Errorf("provider %s: %s", provider.ID, resp.Status)
	}
}
