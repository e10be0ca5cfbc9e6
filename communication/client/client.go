package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"othello/communication"
	"othello/game"
	"time"
)

// Client talks to a remote agent server.
type Client struct {
	serverURL string
	http      *http.Client
}

// NewClient initializes and returns a new Client.
func NewClient(serverURL string) *Client {
	return &Client{
		serverURL: serverURL,
		http:      &http.Client{Timeout: time.Minute},
	}
}

func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil)
}

func (c *Client) ValidMoves(ctx context.Context, pos game.Position) (communication.ValidMovesResponse, error) {
	var resp communication.ValidMovesResponse
	err := c.do(ctx, http.MethodPost, "/api/valid-moves", communication.SearchRequest{Position: pos}, &resp)
	return resp, err
}

func (c *Client) Probabilities(ctx context.Context, req communication.SearchRequest) (communication.ProbabilitiesResponse, error) {
	var resp communication.ProbabilitiesResponse
	err := c.do(ctx, http.MethodPost, "/api/probabilities", req, &resp)
	return resp, err
}

func (c *Client) Move(ctx context.Context, req communication.SearchRequest) (communication.MoveResponse, error) {
	var resp communication.MoveResponse
	err := c.do(ctx, http.MethodPost, "/api/move", req, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var failure communication.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&failure); err != nil || failure.Error == "" {
			return fmt.Errorf("request %s failed with status %d", path, resp.StatusCode)
		}
		return fmt.Errorf("request %s failed with status %d: %s", path, resp.StatusCode, failure.Error)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
