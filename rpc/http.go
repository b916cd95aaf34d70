package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// BatchClient is an HTTP implementation of Caller. Each Call posts the
// operation array as a JSON body and decodes the positionally aligned
// response array from the reply.
type BatchClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
	log      zerolog.Logger
}

// BatchOption configures a BatchClient.
type BatchOption func(*BatchClient)

// WithHTTPClient overrides the HTTP client used for batched calls.
func WithHTTPClient(client *http.Client) BatchOption {
	return func(b *BatchClient) {
		if client != nil {
			b.client = client
		}
	}
}

// WithAPIKey sets the bearer credential sent with every call.
func WithAPIKey(key string) BatchOption {
	return func(b *BatchClient) {
		b.apiKey = key
	}
}

// WithLogger sets the logger for call-level diagnostics.
func WithLogger(log zerolog.Logger) BatchOption {
	return func(b *BatchClient) {
		b.log = log
	}
}

// NewBatchClient creates a Caller that posts batched operations to endpoint.
func NewBatchClient(endpoint string, opts ...BatchOption) *BatchClient {
	b := &BatchClient{
		endpoint: endpoint,
		client:   http.DefaultClient,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Call executes the given operations in a single HTTP round trip.
func (b *BatchClient) Call(ctx context.Context, ops []Operation) ([]json.RawMessage, error) {
	body, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("encode operations: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if b.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	b.log.Debug().Int("operations", len(ops)).Msg("issuing batched call")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("call: server returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var results []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode call response: %w", err)
	}
	if len(results) != len(ops) {
		return nil, fmt.Errorf("call: got %d responses for %d operations", len(results), len(ops))
	}
	return results, nil
}

// Delete removes the entities with the given keys in one round trip.
func (b *BatchClient) Delete(ctx context.Context, entityType string, keys []string) error {
	_, err := b.Call(ctx, []Operation{DeleteOp(entityType, keys)})
	return err
}
