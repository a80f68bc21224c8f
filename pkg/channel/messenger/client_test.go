package messenger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"flowbot/pkg/config"
)

func TestNewClientRequiresAccessToken(t *testing.T) {
	_, err := NewClient(config.MessengerConfig{}, nil)
	require.Error(t, err)
}

func TestClientSend(t *testing.T) {
	var gotQuery string
	var gotBody sendRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		payload, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(payload, &gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(config.MessengerConfig{
		AccessToken: "token-123",
		GraphURL:    server.URL,
	}, nil)
	require.NoError(t, err)

	err = client.Send(context.Background(), "psid-1", MessageObject{Text: "hello"})
	require.NoError(t, err)
	require.Equal(t, "access_token=token-123", gotQuery)
	require.Equal(t, "psid-1", gotBody.Recipient.ID)
	require.Equal(t, "hello", gotBody.Message.Text)
}

func TestClientSendNonSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad recipient"}`))
	}))
	defer server.Close()

	client, err := NewClient(config.MessengerConfig{
		AccessToken: "token-123",
		GraphURL:    server.URL,
	}, nil)
	require.NoError(t, err)

	err = client.Send(context.Background(), "psid-1", MessageObject{Text: "hello"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "400")
	require.Contains(t, err.Error(), "bad recipient")
}
