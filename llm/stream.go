package llm

import (
	"bytes"
	"encoding/json"
	"strings"
)

const (
	dataPrefix = "data: "
	doneToken  = "[DONE]"
)

// Decoder is a line-buffered decoder for the chat service's SSE-style
// stream. It is fed arbitrary byte fragments, which need not align with
// line boundaries, and yields the content deltas carried in data lines.
// Malformed data lines are skipped individually; the literal [DONE] token
// ends the stream.
type Decoder struct {
	buf  []byte
	done bool
}

// Feed consumes one transport fragment and returns any content deltas
// completed by it. A partial trailing line is buffered until the next
// fragment. Once the end marker has been seen Feed returns nil.
func (d *Decoder) Feed(p []byte) []string {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, p...)
	var deltas []string
	for {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			return deltas
		}
		line := string(d.buf[:i])
		d.buf = d.buf[i+1:]
		delta, end, ok := decodeLine(line)
		if end {
			d.done = true
			d.buf = nil
			return deltas
		}
		if ok && delta != "" {
			deltas = append(deltas, delta)
		}
	}
}

// Done reports whether the end-of-stream marker has been seen.
func (d *Decoder) Done() bool { return d.done }

func decodeLine(line string) (delta string, end bool, ok bool) {
	line = strings.TrimRight(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return "", false, false
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == doneToken {
		return "", true, false
	}
	var msg struct {
		Choices []struct {
			Delta struct {
				Content string `json:"content"`
			} `json:"delta"`
		} `json:"choices"`
	}
	if err := json.Unmarshal([]byte(payload), &msg); err != nil || len(msg.Choices) == 0 {
		return "", false, false
	}
	return msg.Choices[0].Delta.Content, false, true
}
