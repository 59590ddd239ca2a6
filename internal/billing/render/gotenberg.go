package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
)

// GotenbergClient drives a long-lived Gotenberg instance, which hosts the
// headless Chromium used to turn bill HTML into PDF bytes. One client is
// shared for the process lifetime; each render opens its own page inside
// the engine.
//
// The client imposes no timeout of its own: the per-render wall-clock
// budget belongs to the Renderer, which passes it down as the request
// context deadline.
type GotenbergClient struct {
	baseURL string
	client  *http.Client
}

// NewGotenbergClient constructs a client for the given base URL.
func NewGotenbergClient(baseURL string) *GotenbergClient {
	return &GotenbergClient{
		baseURL: baseURL,
		client:  &http.Client{},
	}
}

// Ping checks whether the rendering engine is reachable.
func (c *GotenbergClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("render: gotenberg returned status %d", resp.StatusCode)
	}
	return nil
}

// RenderHTML converts bill HTML into PDF bytes.
func (c *GotenbergClient) RenderHTML(ctx context.Context, html string) ([]byte, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "index.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("render: convert failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
