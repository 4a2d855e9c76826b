// Package api provides the HTTP client for the hub REST API: the matchmaking
// (lfg) endpoint and room member lookups.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/huddle/chat-hub/internal/protocol"
)

// Client is a JSON HTTP client for the hub API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewClient creates a Client for the given base URL. The token, if non-empty,
// is sent as a bearer Authorization header on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// PostMatchmaking posts a looking-for-group request and returns the server's
// poll directive. No retry is performed; the caller owns rescheduling.
func (c *Client) PostMatchmaking(ctx context.Context, req protocol.MatchRequest) (*protocol.MatchResponse, error) {
	var resp protocol.MatchResponse
	if err := c.post(ctx, "lfg", req, &resp); err != nil {
		return nil, fmt.Errorf("api: matchmaking: %w", err)
	}
	return &resp, nil
}

// ChatMembers fetches the current member list for a room.
func (c *Client) ChatMembers(ctx context.Context, room string) ([]protocol.Friend, error) {
	var resp struct {
		Members []protocol.Friend `json:"members"`
	}
	path := "rooms/" + url.PathEscape(room) + "/members"
	if err := c.get(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("api: chat members for %q: %w", room, err)
	}
	return resp.Members, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
