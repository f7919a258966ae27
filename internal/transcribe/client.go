// Package transcribe provides a client for an OpenAI-compatible audio
// transcription endpoint, used to capture reference text for voice
// profiles during extraction. Transient failures follow the same bounded
// retry contract as the synthesis transport.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/sesame-tts/internal/core"
	"github.com/book-expert/sesame-tts/internal/retry"
)

// HTTP headers.
const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	bearerPrefix        = "Bearer "
)

// Form field names.
const (
	formFieldFile  = "file"
	formFieldModel = "model"
)

// Client posts voice samples to the transcription endpoint and returns the
// recognized text.
type Client struct {
	httpClient  *http.Client
	endpointURL string
	token       string
	model       string
	policy      retry.Policy
}

// transcriptionResponse is the endpoint's success payload.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// NewClient creates a transcription client. The policy is the same bounded
// retry budget the synthesis engine uses.
func NewClient(endpointURL, token, model string, timeout time.Duration, policy retry.Policy) *Client {
	return &Client{
		endpointURL: endpointURL,
		token:       token,
		model:       model,
		policy:      policy,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe uploads the audio sample and returns its transcript. The
// multipart body is built once and replayed across retry attempts.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	formBody, contentType, err := c.buildForm(audioPath)
	if err != nil {
		return "", err
	}

	var transcript string

	err = retry.Do(c.policy, func(_ int) error {
		text, attemptErr := c.attempt(ctx, formBody, contentType)
		if attemptErr != nil {
			return attemptErr
		}

		transcript = text

		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrTransient) {
			return "", fmt.Errorf("%w: %v", core.ErrServiceUnavailable, err)
		}

		return "", err
	}

	return transcript, nil
}

func (c *Client) attempt(ctx context.Context, formBody []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.endpointURL,
		bytes.NewReader(formBody),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set(headerAuthorization, bearerPrefix+c.token)
	req.Header.Set(headerContentType, contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", retry.Mark(fmt.Errorf("failed to reach %s: %w", c.endpointURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		return "", retry.Mark(errors.New("service returned status " + resp.Status))
	}

	if resp.StatusCode != http.StatusOK {
		diagnostic, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf(
			"%w: status %s: %s",
			core.ErrRequestRejected,
			resp.Status,
			string(diagnostic),
		)
	}

	var payload transcriptionResponse

	err = json.NewDecoder(resp.Body).Decode(&payload)
	if err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}

	return payload.Text, nil
}

// buildForm assembles the multipart request body: the sample file plus the
// model field.
func (c *Client) buildForm(audioPath string) ([]byte, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio sample: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile(formFieldFile, filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}

	_, err = io.Copy(part, file)
	if err != nil {
		return nil, "", fmt.Errorf("failed to copy sample data: %w", err)
	}

	err = writer.WriteField(formFieldModel, c.model)
	if err != nil {
		return nil, "", fmt.Errorf("failed to write model field: %w", err)
	}

	err = writer.Close()
	if err != nil {
		return nil, "", fmt.Errorf("failed to close multipart writer: %w", err)
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
