package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/voice-turn-lab/internal/logging"
)

// ErrTranscriptionFailed reports a failed round-trip to the transcription
// service. The wrapped message carries the server-provided detail when one
// was returned.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Client submits finalized utterance audio to the transcription service.
type Client struct {
	URL  string
	HTTP *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		URL:  strings.TrimRight(baseURL, "/") + "/api/transcribe",
		HTTP: &http.Client{Timeout: 60 * time.Second},
	}
}

// Transcribe posts the WAV blob as multipart form field "file" and returns
// the transcription text. The text may be empty; deciding what to do with
// an empty transcript is the caller's job. There is no retry: a failed
// transcription ends the turn.
func (c *Client) Transcribe(ctx context.Context, wav []byte, correlationID string) (string, error) {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	fw, err := mw.CreateFormFile("file", "segment.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(wav); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if correlationID != "" {
		req.Header.Set("X-Correlation-ID", correlationID)
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp.Body)
		logging.Warnw("stt: service returned non-2xx",
			"status", resp.StatusCode, "detail", detail, "correlation_id", correlationID)
		if detail == "" {
			return "", fmt.Errorf("%w: status %d", ErrTranscriptionFailed, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, detail)
	}

	var out struct {
		Transcription string `json:"transcription"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTranscriptionFailed, err)
	}
	logging.Debugw("stt: response received",
		"latency_ms", time.Since(start).Milliseconds(), "chars", len(out.Transcription),
		"correlation_id", correlationID)
	return out.Transcription, nil
}

// readDetail extracts {"detail": ...} from an error body, best effort.
func readDetail(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var out struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return ""
	}
	return strings.TrimSpace(out.Detail)
}
