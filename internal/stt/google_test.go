package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	DoFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.DoFunc(req)
}

func jsonResponse(status int, body any) *http.Response {
	data, _ := json.Marshal(body)
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func newTranscriber(t *testing.T, client HTTPClient) *GoogleTranscriber {
	t.Helper()
	tr, err := NewGoogleTranscriber(GoogleConfig{APIKey: "key", Client: client})
	require.NoError(t, err)
	return tr
}

func TestNewGoogleTranscriberRequiresKey(t *testing.T) {
	_, err := NewGoogleTranscriber(GoogleConfig{})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	var captured recognizeRequest
	client := &mockHTTPClient{DoFunc: func(req *http.Request) (*http.Response, error) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&captured))
		return jsonResponse(http.StatusOK, map[string]any{
			"results": []map[string]any{
				{"alternatives": []map[string]any{
					{"transcript": "patient reports fever", "confidence": 0.92},
				}},
			},
		}), nil
	}}

	pcm := []byte{1, 2, 3, 4}
	text, err := newTranscriber(t, client).Transcribe(context.Background(), pcm, 16000)
	require.NoError(t, err)
	assert.Equal(t, "patient reports fever", text)

	assert.Equal(t, "LINEAR16", captured.Config.Encoding)
	assert.Equal(t, 16000, captured.Config.SampleRateHertz)
	assert.Equal(t, DefaultLanguage, captured.Config.LanguageCode)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pcm), captured.Audio.Content)
}

func TestTranscribeNoSpeech(t *testing.T) {
	client := &mockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, map[string]any{}), nil
	}}

	text, err := newTranscriber(t, client).Transcribe(context.Background(), []byte{1, 2}, 16000)
	require.NoError(t, err)
	assert.Empty(t, text, "no results means nothing heard, not an error")
}

func TestTranscribeEmptyAudio(t *testing.T) {
	client := &mockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		t.Fatal("no request may be issued for empty audio")
		return nil, nil
	}}

	text, err := newTranscriber(t, client).Transcribe(context.Background(), nil, 16000)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTranscribeAPIError(t *testing.T) {
	client := &mockHTTPClient{DoFunc: func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusForbidden, map[string]any{
			"error": map[string]any{"code": 403, "message": "key invalid", "status": "PERMISSION_DENIED"},
		}), nil
	}}

	_, err := newTranscriber(t, client).Transcribe(context.Background(), []byte{1, 2}, 16000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PERMISSION_DENIED")
	assert.Contains(t, err.Error(), "key invalid")
}
