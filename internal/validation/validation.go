// Package validation defines the validation contract the editor core
// depends on, plus a client for delegating validation to an external
// service over HTTP.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/AaronLay10/QuestForge/internal/quest"
)

// Validator checks a quest document and reports errors and warnings.
// Implementations must not mutate the document.
type Validator interface {
	Validate(ctx context.Context, doc *quest.Document) (*quest.ValidationResult, error)
}

// Client validates quests against a remote validation service.
type Client struct {
	url    string
	client *http.Client
}

// NewClient creates a validation client for the given endpoint URL.
func NewClient(url string) *Client {
	return &Client{
		url: url,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Validate posts the document to the validation service and decodes the
// result. Transport and decode failures are returned as errors; they say
// nothing about the document's validity.
func (c *Client) Validate(ctx context.Context, doc *quest.Document) (*quest.ValidationResult, error) {
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode quest for validation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build validation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("validation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("validation service returned %d: %s", resp.StatusCode, msg)
	}

	var result quest.ValidationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode validation result: %w", err)
	}
	return &result, nil
}
