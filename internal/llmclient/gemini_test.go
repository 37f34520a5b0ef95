// File: internal/llmclient/gemini_test.go
package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/raccoon-cli/api/schemas"
)

func geminiBody(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":` + mustJSON(text) + `}],"role":"model"},"finishReason":"STOP"}],"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}}`
}

func newGeminiTestClient(t *testing.T, endpoint string) *GeminiClient {
	t.Helper()
	client, err := NewGeminiClient("gemini-2.0-flash", "test-key", testLLMConfig("gemini/gemini-2.0-flash"), zap.NewNop())
	require.NoError(t, err)
	client.SetEndpoint(endpoint)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewGeminiClientValidation(t *testing.T) {
	_, err := NewGeminiClient("gemini-2.0-flash", "", testLLMConfig("gemini/x"), zap.NewNop())
	assert.Error(t, err, "missing API key must be rejected")

	_, err = NewGeminiClient("", "key", testLLMConfig("gemini/x"), zap.NewNop())
	assert.Error(t, err, "missing model must be rejected")
}

func TestGeminiGenerate(t *testing.T) {
	var seen geminiRequestPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		w.Write([]byte(geminiBody("gemini answer")))
	}))
	defer server.Close()

	client := newGeminiTestClient(t, server.URL)

	out, err := client.Generate(context.Background(), schemas.GenerationRequest{
		SystemPrompt: "persona",
		UserPrompt:   "prompt",
		Options:      schemas.GenerationOptions{Temperature: 0.5, MaxTokens: 1024},
	})
	require.NoError(t, err)

	assert.Equal(t, "gemini answer", out)
	require.Len(t, seen.Contents, 1)
	assert.Equal(t, "user", seen.Contents[0].Role)
	assert.Equal(t, "prompt", seen.Contents[0].Parts[0].Text)
	require.NotNil(t, seen.SystemInstruction)
	assert.Equal(t, "persona", seen.SystemInstruction.Parts[0].Text)
	assert.Equal(t, 1024, seen.GenerationConfig.MaxOutputTokens)
}

func TestGeminiGenerateRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(geminiBody("eventually")))
	}))
	defer server.Close()

	client := newGeminiTestClient(t, server.URL)

	out, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "eventually", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGeminiGenerateSafetyBlockIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"candidates":[{"content":{"parts":[],"role":"model"},"finishReason":"SAFETY"}]}`))
	}))
	defer server.Close()

	client := newGeminiTestClient(t, server.URL)

	_, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
	assert.Equal(t, int32(1), calls.Load(), "safety blocks are not retried")
}

func TestGeminiGenerateNoCandidatesIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := newGeminiTestClient(t, server.URL)

	_, err := client.Generate(context.Background(), schemas.GenerationRequest{UserPrompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no candidates")
}
