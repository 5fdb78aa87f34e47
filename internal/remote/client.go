// Package remote is the client for the songbook API collaborator. The queue
// only needs push semantics: any non-2xx response is failure input to its
// retry state machine.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Kuebic/songbook-offline/internal/constants"
	"github.com/Kuebic/songbook-offline/internal/domain"
	"github.com/Kuebic/songbook-offline/internal/httpclient"
)

type Client struct {
	baseURL string
	userID  string
	http    *httpclient.Client
}

func NewClient(baseURL, userID string, hc *httpclient.Client) *Client {
	if hc == nil {
		hc = httpclient.NewClient(nil, constants.MinRequestInterval)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		http:    hc,
	}
}

// Apply pushes one sync operation to the remote API.
func (c *Client) Apply(ctx context.Context, op *domain.SyncOperation) error {
	method := http.MethodPost
	path := "/api/v1/" + resourcePath(op.Resource)
	switch op.Type {
	case domain.OperationUpdate:
		method = http.MethodPut
		path += "/" + op.EntityID
	case domain.OperationDelete:
		method = http.MethodDelete
		path += "/" + op.EntityID
	}

	var body io.Reader
	if op.Type != domain.OperationDelete && len(op.Data) > 0 {
		body = bytes.NewReader(op.Data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &domain.SyncError{Retryable: false, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", c.userID)

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		// Network and timeout failures are the retryable class.
		return &domain.SyncError{Retryable: true, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &domain.SyncError{
		StatusCode: resp.StatusCode,
		Retryable:  resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		Err:        fmt.Errorf("remote rejected %s %s: %s", method, path, strings.TrimSpace(string(msg))),
	}
}

// Probe checks API reachability for the connectivity monitor.
func (c *Client) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

func resourcePath(r domain.Resource) string {
	return string(r) + "s"
}
