package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voice-turn-lab/internal/logging"
)

// ErrSynthesisFailed reports a failed round-trip to the speech synthesis
// service. Playback is skipped for the turn; the text reply still lands in
// the transcript.
var ErrSynthesisFailed = errors.New("speech synthesis failed")

// Client converts reply text into WAV audio via the TTS service.
type Client struct {
	URL  string
	HTTP *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		URL:  strings.TrimRight(baseURL, "/") + "/api/tts",
		HTTP: &http.Client{Timeout: 60 * time.Second},
	}
}

// Synthesize posts the reply text and returns the decoded WAV bytes.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	payload, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp.Body)
		logging.Warnw("tts: service returned non-2xx", "status", resp.StatusCode, "detail", detail)
		if detail == "" {
			return nil, fmt.Errorf("%w: status %d", ErrSynthesisFailed, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", ErrSynthesisFailed, detail)
	}

	var out struct {
		Audio string `json:"audio"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSynthesisFailed, err)
	}
	if out.Audio == "" {
		return nil, fmt.Errorf("%w: no audio data received", ErrSynthesisFailed)
	}
	wav, err := base64.StdEncoding.DecodeString(out.Audio)
	if err != nil {
		return nil, fmt.Errorf("%w: decode audio: %v", ErrSynthesisFailed, err)
	}
	logging.Debugw("tts: audio received",
		"latency_ms", time.Since(start).Milliseconds(), "bytes", len(wav))
	return wav, nil
}

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
