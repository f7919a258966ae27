// Package synthesis implements the client for the remote speech-synthesis
// inference endpoint: one HTTP POST per attempt, bounded retry on transient
// unavailability, and all-or-nothing persistence of the returned audio.
package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/book-expert/sesame-tts/internal/core"
	"github.com/book-expert/sesame-tts/internal/retry"
)

// HTTP headers.
const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
	bearerPrefix        = "Bearer "
)

// Error messages.
const (
	errReceivedEmptyAudio = "received empty audio data"
)

// requestParameters is the optional "parameters" object of the inference
// request body. The preset name and the profile tuning values travel
// together so the same call shape serves both default-voice and
// cloned-voice synthesis.
type requestParameters struct {
	VoicePreset string  `json:"voice_preset,omitempty"`
	Pitch       float64 `json:"pitch"`
	Timbre      float64 `json:"timbre"`
	Pace        float64 `json:"pace"`
}

// requestBody is the JSON payload of the inference request.
type requestBody struct {
	Inputs     string             `json:"inputs"`
	Parameters *requestParameters `json:"parameters,omitempty"`
}

// Client is the HTTP transport for the inference endpoint. It performs a
// single attempt per call; the retry policy lives in the Engine.
type Client struct {
	httpClient  *http.Client
	endpointURL string
	token       string
}

// NewClient creates a transport for the inference endpoint. The timeout
// applies per request and is the only cancellation mechanism for an attempt.
func NewClient(endpointURL, token string, timeout time.Duration) *Client {
	return &Client{
		endpointURL: endpointURL,
		token:       token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize performs one inference attempt and returns the raw audio bytes.
// A 503 response or a network-level failure is wrapped as a transient error
// for the retry policy; any other non-200 status wraps
// core.ErrRequestRejected and is final.
func (c *Client) Synthesize(ctx context.Context, text string, params *requestParameters) ([]byte, error) {
	body, err := json.Marshal(requestBody{Inputs: text, Parameters: params})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpointURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerAuthorization, bearerPrefix+c.token)
	httpReq.Header.Set(headerContentType, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, retry.Mark(fmt.Errorf("failed to reach %s: %w", c.endpointURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyFailure(resp)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Mark(fmt.Errorf("failed to read audio data: %w", err))
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrRequestRejected, errReceivedEmptyAudio)
	}

	return audioData, nil
}

// classifyFailure maps a non-200 response to the failure taxonomy. The body
// is carried in the error text for diagnostics only, never parsed.
func (c *Client) classifyFailure(resp *http.Response) error {
	diagnostic, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		diagnostic = nil
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return retry.Mark(errors.New("service returned status " + resp.Status))
	}

	return fmt.Errorf(
		"%w: status %s: %s",
		core.ErrRequestRejected,
		resp.Status,
		string(diagnostic),
	)
}
