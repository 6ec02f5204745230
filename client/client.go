// Package client talks to a contact relay over its HTTP API and websocket.
package client

import (
	"bytes"
	"contact-relay/domain"
	"contact-relay/domain/event"
	"contact-relay/errors"
	"contact-relay/services"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Response mirrors the {success, message} body of the relay API.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client holds one relay connection. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu       sync.Mutex
	conn     *websocket.Conn
	id       domain.ConnectionID
	username string
	frames   chan event.InboundFrame
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Connect opens the websocket and waits for the connection-id pushed by the relay.
// Frames received afterwards are available on Frames.
func (c *Client) Connect(ctx context.Context) (domain.ConnectionID, error) {
	wsURL, err := websocketURL(c.baseURL)
	if err != nil {
		return "", err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return "", fmt.Errorf("could not connect to %s: %w", wsURL, err)
	}

	var first event.InboundFrame
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
	}
	if err := conn.ReadJSON(&first); err != nil {
		_ = conn.Close()
		return "", fmt.Errorf("waiting for connection id: %w", err)
	}
	var id string
	if first.Event != event.NameID || json.Unmarshal(first.Data, &id) != nil {
		_ = conn.Close()
		return "", fmt.Errorf("%w: %s", errors.ErrUnexpectedFrame, first.Event)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	c.conn = conn
	c.id = domain.ConnectionID(id)
	c.frames = make(chan event.InboundFrame, 64)
	c.mu.Unlock()

	go c.read(conn, c.frames)
	return c.id, nil
}

func (c *Client) read(conn *websocket.Conn, frames chan<- event.InboundFrame) {
	defer close(frames)
	for {
		var frame event.InboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		frames <- frame
	}
}

// Frames is closed when the websocket goes away.
func (c *Client) Frames() <-chan event.InboundFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

func (c *Client) ID() domain.ConnectionID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

func (c *Client) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// Login identifies the current connection as username.
func (c *Client) Login(ctx context.Context, username string) error {
	id := c.ID()
	if id == "" {
		return errors.ErrNotConnected
	}
	if err := c.call(ctx, "/api/login", services.LoginRequest{Username: username, ID: string(id)}); err != nil {
		return err
	}
	c.mu.Lock()
	c.username = username
	c.mu.Unlock()
	return nil
}

// AddUser sends a contact request to target.
func (c *Client) AddUser(ctx context.Context, target string) error {
	return c.call(ctx, "/api/addUserRequest", services.FriendRequest{For: target, From: c.Username()})
}

// Respond answers a contact request previously received from requester.
func (c *Client) Respond(ctx context.Context, requester string, status domain.Status) error {
	return c.call(ctx, "/api/addUserResponse", services.FriendResponse{
		For:    requester,
		From:   c.Username(),
		Status: string(status),
	})
}

// Send relays text to a contact. Delivery is not acknowledged.
func (c *Client) Send(to, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errors.ErrNotConnected
	}
	return c.conn.WriteJSON(event.Frame{
		Event: event.NameMessage,
		Data:  event.OutgoingMessage{From: c.username, For: to, Message: text},
	})
}

// Stats fetches the relay monitoring snapshot.
func (c *Client) Stats(ctx context.Context) (services.Stats, error) {
	var stats services.Stats
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stats", nil)
	if err != nil {
		return stats, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return stats, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("stats: unexpected status %d", resp.StatusCode)
	}
	return stats, json.NewDecoder(resp.Body).Decode(&stats)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) call(ctx context.Context, path string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%s: decoding response: %w", path, err)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", errors.ErrRequestRejected, result.Message)
	}
	return nil
}

func websocketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
