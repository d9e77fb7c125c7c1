// Package push dispatches notifications to the counterparty's device via an
// Expo-compatible push service. Delivery is fire-and-forget: a failed push
// never fails the send that triggered it.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// DefaultEndpoint is the Expo push API.
const DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

// Dispatcher sends a notification to a device identified by token. The data
// payload must carry enough to deep-link back to the originating
// conversation.
type Dispatcher interface {
	Notify(ctx context.Context, token, title, body string, data map[string]string) error
}

// ExpoDispatcher implements Dispatcher against the Expo HTTP API.
type ExpoDispatcher struct {
	Endpoint string
	Client   *http.Client
}

type expoMessage struct {
	To    string            `json:"to"`
	Sound string            `json:"sound"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

func (d *ExpoDispatcher) Notify(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := expoMessage{To: token, Sound: "default", Title: title, Body: body, Data: data}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling push message: %w", err)
	}

	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("push failed: %s; body: %s", resp.Status, string(b))
	}
	return nil
}
