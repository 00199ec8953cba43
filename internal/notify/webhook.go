package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// WebhookChannel POSTs the message as JSON to a configured URL. This is how
// chat-platform pushes and SMS gateway bridges are wired in.
type WebhookChannel struct {
	id     ChannelID
	url    string
	client *http.Client
}

// NewWebhookChannel builds a webhook channel. client may be nil, in which
// case http.DefaultClient is used; the dispatcher's per-send context bounds
// the request either way.
func NewWebhookChannel(id ChannelID, url string, client *http.Client) *WebhookChannel {
	if client == nil {
		client = http.DefaultClient
	}
	return &WebhookChannel{id: id, url: url, client: client}
}

func (w *WebhookChannel) ID() ChannelID { return w.id }

func (w *WebhookChannel) Send(ctx context.Context, message string) error {
	body, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook %s: unexpected status %d", w.id, resp.StatusCode)
	}
	return nil
}
