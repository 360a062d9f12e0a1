package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"RoverBridge/internal/model"
	"RoverBridge/internal/parser"
	"RoverBridge/internal/store"
)

// Client talks to a running bridge over its HTTP edge. It implements
// core.CommandSender so tools can drive the robot through the bridge
// instead of sending datagrams themselves.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the bridge at baseURL (e.g. http://localhost:8000).
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, &http.Client{Timeout: 5 * time.Second})
}

// NewClientWithHTTP is NewClient with a caller supplied http.Client.
func NewClientWithHTTP(baseURL string, hc *http.Client) *Client {
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Send posts cmd to /send_udp. A 400 answer is reported as model.ErrBadRequest,
// anything else that is not 200 as a *model.TransportError.
func (c *Client) Send(ctx context.Context, cmd model.Command) error {
	if cmd == nil {
		return fmt.Errorf("%w: nil command", model.ErrBadRequest)
	}
	form := parser.EncodeCommandForm(cmd)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send_udp",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return &model.TransportError{Op: "post", Addr: c.baseURL, Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", model.ErrBadRequest, msg)
	default:
		return &model.TransportError{Op: "post", Addr: c.baseURL,
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}
}

// History fetches up to limit recorded snapshots, newest first.
func (c *Client) History(ctx context.Context, limit int) ([]store.Record, error) {
	var recs []store.Record
	if err := c.getJSON(ctx, "/api/history?limit="+strconv.Itoa(limit), &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// Latest fetches the most recent recorded snapshot.
func (c *Client) Latest(ctx context.Context) (store.Record, error) {
	var rec store.Record
	err := c.getJSON(ctx, "/api/latest", &rec)
	return rec, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &model.TransportError{Op: "get", Addr: c.baseURL, Err: err}
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusNotFound:
		return store.ErrEmpty
	case http.StatusServiceUnavailable:
		return ErrRecordingDisabled
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("get %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
