package push

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpoDispatcher_Notify(t *testing.T) {
	var gotBody []byte
	var gotCT string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotCT = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	d := &ExpoDispatcher{Endpoint: ts.URL}
	err := d.Notify(context.Background(), "ExponentPushToken[abc]", "alice", "hi\n+ $20.00",
		map[string]string{"conversationId": "a_b"})
	require.NoError(t, err)

	assert.Equal(t, "application/json", gotCT)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(gotBody, &msg))
	assert.Equal(t, "ExponentPushToken[abc]", msg["to"])
	assert.Equal(t, "alice", msg["title"])
	assert.Equal(t, "default", msg["sound"])
	data, ok := msg["data"].(map[string]any)
	require.True(t, ok, "data payload must deep-link the conversation")
	assert.Equal(t, "a_b", data["conversationId"])
}

func TestExpoDispatcher_Notify_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	d := &ExpoDispatcher{Endpoint: ts.URL}
	err := d.Notify(context.Background(), "tok", "t", "b", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push failed: 502")
}
