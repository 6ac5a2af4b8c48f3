package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/voice-turn-lab/internal/logging"
)

// ErrStreamFailed reports that the chat service produced no usable reply:
// request failure, non-2xx status, or a stream that broke before the end
// marker. The caller substitutes the fallback assistant turn.
var ErrStreamFailed = errors.New("chat stream failed")

// Client talks to the chat completion service and assembles its streamed
// reply.
type Client struct {
	URL  string
	HTTP *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		URL:  strings.TrimRight(baseURL, "/") + "/api/chat",
		HTTP: &http.Client{Timeout: 120 * time.Second},
	}
}

// Complete posts the transcript and consumes the streamed completion,
// invoking onDelta (when non-nil) for each fragment and returning the
// assembled text once the end marker arrives.
func (c *Client) Complete(ctx context.Context, message, userID string, onDelta func(string)) (string, error) {
	payload, err := json.Marshal(map[string]string{"message": message, "user_id": userID})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStreamFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := readDetail(resp.Body)
		logging.Warnw("llm: service returned non-2xx", "status", resp.StatusCode, "detail", detail)
		if detail == "" {
			return "", fmt.Errorf("%w: status %d", ErrStreamFailed, resp.StatusCode)
		}
		return "", fmt.Errorf("%w: %s", ErrStreamFailed, detail)
	}

	var assembled strings.Builder
	dec := &Decoder{}
	buf := make([]byte, 4096)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			for _, delta := range dec.Feed(buf[:n]) {
				assembled.WriteString(delta)
				if onDelta != nil {
					onDelta(delta)
				}
			}
			if dec.Done() {
				logging.Debugw("llm: stream completed",
					"latency_ms", time.Since(start).Milliseconds(), "chars", assembled.Len())
				return assembled.String(), nil
			}
		}
		if rerr == io.EOF {
			return "", fmt.Errorf("%w: stream ended before completion marker", ErrStreamFailed)
		}
		if rerr != nil {
			return "", fmt.Errorf("%w: %v", ErrStreamFailed, rerr)
		}
	}
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
