package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// sendURLFormat is the FCM HTTP v1 per-project message-send endpoint.
const sendURLFormat = "https://fcm.googleapis.com/v1/projects/%s/messages:send"

// Message is one push message for one device token. Fire-and-forget after
// send; failures are isolated to the single message.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// fcmRequest mirrors the v1 send body:
// {"message":{"token":..,"notification":{..},"data":{..},"android":{"priority":"high"}}}
type fcmRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Token        string            `json:"token"`
	Notification fcmNotification   `json:"notification"`
	Data         map[string]string `json:"data,omitempty"`
	Android      *fcmAndroid       `json:"android,omitempty"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority string `json:"priority"`
}

// Client sends individual push messages over the FCM HTTP v1 API.
type Client struct {
	httpClient *http.Client
	sendURL    string
}

// ClientOption customizes a Client (tests point sendURL at a fake gateway).
type ClientOption func(*Client)

func WithSendURL(u string) ClientOption {
	return func(c *Client) { c.sendURL = u }
}

func WithSendHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient builds a send client for the given Firebase project.
func NewClient(projectID string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
		sendURL:    fmt.Sprintf(sendURLFormat, projectID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Send delivers one message to one device token, bearer-authorized with the
// shared access token and marked high priority for the delivery channel.
// Non-2xx statuses and transport errors are returned with token context so
// the caller can log them; there is no retry.
func (c *Client) Send(ctx context.Context, accessToken string, msg Message) error {
	payload := fcmRequest{
		Message: fcmMessage{
			Token: msg.Token,
			Notification: fcmNotification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data:    msg.Data,
			Android: &fcmAndroid{Priority: "high"},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send to token %s: %w", truncateToken(msg.Token), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send to token %s: status=%d body=%s",
			truncateToken(msg.Token), resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return nil
}

// truncateToken keeps device tokens out of logs; a prefix is enough to
// correlate with the token store.
func truncateToken(token string) string {
	if len(token) <= 12 {
		return token
	}
	return token[:12] + "..."
}
