package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flowbot/pkg/config"
)

const defaultGraphURL = "https://graph.facebook.com/v2.6/me/messages"
const sendTimeout = 10 * time.Second

// sendRequest is the Graph API send body: recipient identity plus the
// finished message object.
type sendRequest struct {
	Recipient participant   `json:"recipient"`
	Message   MessageObject `json:"message"`
}

// Client posts message objects to the Messenger send API. Delivery is
// fire-and-forget from the adapter's perspective; a non-success response
// surfaces as an error carrying the response details for the log.
type Client struct {
	httpClient  *http.Client
	graphURL    string
	accessToken string
	log         *slog.Logger
}

// NewClient validates credentials and constructs a send client. A missing
// access token is a startup failure, not a silent default.
func NewClient(cfg config.MessengerConfig, log *slog.Logger) (*Client, error) {
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errors.New("channels.messenger.access_token is required")
	}

	graphURL := strings.TrimSpace(cfg.GraphURL)
	if graphURL == "" {
		graphURL = defaultGraphURL
	}

	if log == nil {
		log = slog.Default()
	}

	return &Client{
		httpClient:  &http.Client{Timeout: sendTimeout},
		graphURL:    graphURL,
		accessToken: accessToken,
		log:         log.With("component", "channel.messenger.client"),
	}, nil
}

// Send delivers one message object to a recipient via the Graph API.
func (c *Client) Send(ctx context.Context, recipientID string, message MessageObject) error {
	body, err := json.Marshal(sendRequest{
		Recipient: participant{ID: recipientID},
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("encode send request: %w", err)
	}

	url := c.graphURL + "?access_token=" + c.accessToken
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.log.Debug("Sending message", "recipient", recipientID)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to send API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("send API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	return nil
}
