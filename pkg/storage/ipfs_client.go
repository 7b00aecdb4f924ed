package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

type IPFSClient interface {
	PinFile(ctx context.Context, name string, body io.Reader) (string, error)
	UnpinFile(ctx context.Context, cid string) error
}

type httpIPFSClient struct {
	baseURL string
	http    *http.Client
}

// NewIPFSClient talks to an IPFS node's HTTP API (Kubo-compatible).
func NewIPFSClient(baseURL string, timeout time.Duration) IPFSClient {
	return &httpIPFSClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *httpIPFSClient) PinFile(ctx context.Context, name string, body io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v0/add?pin=true", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ipfs add failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ipfs add returned status %d", resp.StatusCode)
	}

	var result struct {
		Hash string `json:"Hash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode ipfs response: %w", err)
	}
	return result.Hash, nil
}

func (c *httpIPFSClient) UnpinFile(ctx context.Context, cid string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v0/pin/rm?arg="+cid, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ipfs unpin failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ipfs unpin returned status %d", resp.StatusCode)
	}
	return nil
}
