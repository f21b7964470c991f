package stt

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the Google Cloud Speech REST endpoint.
	DefaultBaseURL = "https://speech.googleapis.com"

	// DefaultLanguage is used when no language code is configured.
	DefaultLanguage = "en-US"

	// DefaultTimeout bounds one recognition round trip.
	DefaultTimeout = 30 * time.Second
)

// HTTPClient is the minimal HTTP surface the transcriber needs; it exists
// so tests can inject a fake.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// GoogleTranscriber sends LINEAR16 audio to the Google Speech recognize
// endpoint in one blocking call per phrase.
type GoogleTranscriber struct {
	apiKey   string
	baseURL  string
	language string
	client   HTTPClient
}

// GoogleConfig configures a GoogleTranscriber.
type GoogleConfig struct {
	APIKey   string        // Required
	BaseURL  string        // Optional, for tests
	Language string        // Optional BCP-47 code, default en-US
	Timeout  time.Duration // Optional, default 30s
	Client   HTTPClient    // Optional, default net/http client
}

// NewGoogleTranscriber validates the config and builds the client.
func NewGoogleTranscriber(cfg GoogleConfig) (*GoogleTranscriber, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("speech API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	return &GoogleTranscriber{
		apiKey:   cfg.APIKey,
		baseURL:  cfg.BaseURL,
		language: cfg.Language,
		client:   cfg.Client,
	}, nil
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding        string `json:"encoding"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	LanguageCode    string `json:"languageCode"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Transcribe posts the audio and returns the first alternative of the first
// result. No recognizable speech yields "" with a nil error.
func (t *GoogleTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	reqBody, err := json.Marshal(recognizeRequest{
		Config: recognizeConfig{
			Encoding:        "LINEAR16",
			SampleRateHertz: sampleRate,
			LanguageCode:    t.language,
		},
		Audio: recognizeAudio{Content: base64.StdEncoding.EncodeToString(pcm)},
	})
	if err != nil {
		return "", fmt.Errorf("marshal recognize request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/speech:recognize?key=%s", t.baseURL, t.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("create recognize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("speech API error: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var ae apiError
		if json.Unmarshal(body, &ae) == nil && ae.Error.Message != "" {
			return "", fmt.Errorf("speech API %s: %s", ae.Error.Status, ae.Error.Message)
		}
		return "", fmt.Errorf("speech API status %d", resp.StatusCode)
	}

	var rr recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return "", fmt.Errorf("decode recognize response: %w", err)
	}
	if len(rr.Results) == 0 || len(rr.Results[0].Alternatives) == 0 {
		return "", nil
	}
	return rr.Results[0].Alternatives[0].Transcript, nil
}
