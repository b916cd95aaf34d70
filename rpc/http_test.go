package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBatchClient_Call tests that operations go out as one JSON array and
// the positionally aligned response array comes back decoded.
func TestBatchClient_Call(t *testing.T) {
	var (
		mu       sync.Mutex
		auth     string
		received []map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		auth = r.Header.Get("Authorization")
		_ = json.Unmarshal(body, &received)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"ok": true}, {"url": "signed"}]`))
	}))
	defer server.Close()

	client := NewBatchClient(server.URL,
		WithHTTPClient(server.Client()),
		WithAPIKey("secret"),
	)

	ops := []Operation{
		CreateOp("FileComponent", map[string]any{"id": "comp-1"}),
		UploadMetadataOp("render.exr", 1024, "comp-1", 0),
	}
	results, err := client.Call(context.Background(), ops)
	require.NoError(t, err)
	require.Len(t, results, 2)

	var meta UploadMetadata
	require.NoError(t, DecodeResponse(results[1], &meta))
	assert.Equal(t, "signed", meta.URL)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "Bearer secret", auth)
	require.Len(t, received, 2)
	assert.Equal(t, "create", received[0]["action"])
	assert.Equal(t, "get_upload_metadata", received[1]["action"])
}

// TestBatchClient_Call_Errors tests server errors and misaligned responses.
func TestBatchClient_Call_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantMsg string
	}{
		{
			name: "server_error_status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal failure", http.StatusInternalServerError)
			},
			wantMsg: "status 500",
		},
		{
			name: "misaligned_response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`[{}]`))
			},
			wantMsg: "got 1 responses for 2 operations",
		},
		{
			name: "malformed_body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`not an array`))
			},
			wantMsg: "decode call response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewBatchClient(server.URL, WithHTTPClient(server.Client()))
			ops := []Operation{
				CreateOp("FileComponent", nil),
				UploadMetadataOp("a", 1, "comp-1", 0),
			}

			_, err := client.Call(context.Background(), ops)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

// TestBatchClient_Delete tests that Delete issues a single delete operation.
func TestBatchClient_Delete(t *testing.T) {
	var received []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		_, _ = w.Write([]byte(`[{}]`))
	}))
	defer server.Close()

	client := NewBatchClient(server.URL, WithHTTPClient(server.Client()))
	err := client.Delete(context.Background(), "FileComponent", []string{"comp-1"})
	require.NoError(t, err)

	require.Len(t, received, 1)
	assert.Equal(t, "delete", received[0]["action"])
	assert.Equal(t, "FileComponent", received[0]["entity_type"])
	assert.Equal(t, []any{"comp-1"}, received[0]["keys"])
}
