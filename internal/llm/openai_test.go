package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteJSON(t *testing.T) {
	var gotReq map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"subjective\":\"headache\"}"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key", "gpt-4o-mini", WithBaseURL(srv.URL))
	out, err := client.CompleteJSON(context.Background(), "summarize the visit", 0.3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"subjective":"headache"}`, out)

	assert.Equal(t, "gpt-4o-mini", gotReq["model"])
	assert.InDelta(t, 0.3, gotReq["temperature"], 0.001)
	rf, ok := gotReq["response_format"].(map[string]any)
	require.True(t, ok, "request must pin a response format")
	assert.Equal(t, "json_object", rf["type"])
}

func TestCompleteJSONDefaultsModel(t *testing.T) {
	client := NewOpenAIClient("test-key", "")
	assert.Equal(t, "gpt-4o-mini", client.model)
}

func TestCompleteJSONEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key", "gpt-4o-mini", WithBaseURL(srv.URL))
	_, err := client.CompleteJSON(context.Background(), "anything", 0.2)
	assert.EqualError(t, err, "empty completion response")
}

func TestCompleteJSONAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid api key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	client := NewOpenAIClient("bad-key", "gpt-4o-mini", WithBaseURL(srv.URL))
	_, err := client.CompleteJSON(context.Background(), "anything", 0.2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid api key")
}
