package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NtfyClient publishes notifications to an ntfy server using its JSON API.
type NtfyClient struct {
	server     string
	topic      string
	httpClient *http.Client
}

// Ensure NtfyClient implements Notifier
var _ Notifier = (*NtfyClient)(nil)

// ntfyMessage is the JSON body accepted by POST <server>/.
type ntfyMessage struct {
	Topic   string   `json:"topic"`
	Title   string   `json:"title,omitempty"`
	Message string   `json:"message"`
	Tags    []string `json:"tags,omitempty"`
}

// NewNtfyClient creates a client for topic on server.
func NewNtfyClient(server, topic string) *NtfyClient {
	return &NtfyClient{
		server: strings.TrimRight(server, "/"),
		topic:  topic,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Send publishes the notification.
func (c *NtfyClient) Send(n Notification) error {
	body, err := json.Marshal(ntfyMessage{
		Topic:   c.topic,
		Title:   n.Title,
		Message: n.Message,
		Tags:    n.Tags,
	})
	if err != nil {
		return fmt.Errorf("failed to encode ntfy message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.server+"/", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create ntfy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send ntfy request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ntfy returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return nil
}
