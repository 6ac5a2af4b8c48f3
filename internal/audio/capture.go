package audio

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/voice-turn-lab/internal/logging"
)

// ErrDeviceUnavailable reports that no usable audio input could be opened:
// permission denied, no input device, or an unreachable microphone stream.
var ErrDeviceUnavailable = errors.New("audio device unavailable")

// analysisWindow is the number of recent samples the loudness analyzer sees.
const analysisWindow = 2048

// Chunk is one delivery of captured PCM16LE mono audio.
type Chunk struct {
	Data []byte
	At   time.Time
}

// Source produces a stream of PCM chunks from some microphone-like input.
// Implementations close the chunk channel when the input ends, whether by
// Close or by unexpected device loss.
type Source interface {
	Start(ctx context.Context) error
	Chunks() <-chan Chunk
	SampleRate() int
	Close() error
}

// Segment is the audio accumulated for one utterance attempt.
type Segment struct {
	ID        string
	StartedAt time.Time

	chunks [][]byte
	size   int
}

func newSegment() *Segment {
	return &Segment{ID: uuid.NewString(), StartedAt: time.Now()}
}

func (s *Segment) append(data []byte) {
	s.chunks = append(s.chunks, data)
	s.size += len(data)
}

// Size returns the accumulated payload size in bytes.
func (s *Segment) Size() int { return s.size }

// Duration returns the wall-clock time since the segment began.
func (s *Segment) Duration() time.Duration { return time.Since(s.StartedAt) }

func (s *Segment) payload() []byte {
	out := make([]byte, 0, s.size)
	for _, c := range s.chunks {
		out = append(out, c...)
	}
	return out
}

// Capture owns the active recording segment and a rolling window of recent
// samples for loudness analysis. It is not safe for concurrent use: the
// orchestrator goroutine is the only caller, which is what guarantees that
// Finalize never races an Append for the same segment.
type Capture struct {
	src    Source
	seg    *Segment
	window []int16
}

func NewCapture(src Source) *Capture {
	return &Capture{src: src}
}

// Open starts the underlying source. Sources report unopenable inputs as
// ErrDeviceUnavailable.
func (c *Capture) Open(ctx context.Context) error {
	return c.src.Start(ctx)
}

// Chunks exposes the source's delivery channel. A closed channel means the
// input is gone.
func (c *Capture) Chunks() <-chan Chunk { return c.src.Chunks() }

func (c *Capture) SampleRate() int { return c.src.SampleRate() }

// Begin starts a fresh segment. Chunks appended after Begin belong to it.
func (c *Capture) Begin() *Segment {
	c.seg = newSegment()
	logging.Debugw("capture: segment started", "correlation_id", c.seg.ID)
	return c.seg
}

// Segment returns the active segment, or nil when none is recording.
func (c *Capture) Segment() *Segment { return c.seg }

// Append adds a chunk to the active segment and folds its samples into the
// analysis window. A chunk arriving with no active segment only feeds the
// window.
func (c *Capture) Append(ch Chunk) {
	c.window = append(c.window, pcmToSamples(ch.Data)...)
	if n := len(c.window) - analysisWindow; n > 0 {
		c.window = c.window[n:]
	}
	if c.seg == nil {
		return
	}
	c.seg.append(ch.Data)
}

// Window returns the most recent samples for loudness analysis.
func (c *Capture) Window() []int16 { return c.window }

// Finalize drains any chunk the source has already delivered, so the last
// audio produced before the silence decision stays with this segment, then
// seals the segment into a WAV blob. The active segment is cleared; Begin
// may be called immediately after and no audio is shared between the two.
func (c *Capture) Finalize() (*Segment, []byte) {
	seg := c.seg
	if seg == nil {
		return nil, nil
	}
drain:
	for {
		select {
		case ch, ok := <-c.src.Chunks():
			if !ok {
				break drain
			}
			c.Append(ch)
		default:
			break drain
		}
	}
	c.seg = nil
	return seg, BuildWAV(seg.payload(), c.src.SampleRate(), 1, 16)
}

// Close releases the source and discards any active segment. Idempotent.
func (c *Capture) Close() error {
	c.seg = nil
	return c.src.Close()
}
