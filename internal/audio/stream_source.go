package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hraban/opus"

	"github.com/voice-turn-lab/internal/logging"
)

// StreamSource captures audio from a remote microphone that streams Opus
// frames over a websocket, one binary message per frame. Frames are decoded
// to PCM16 mono before delivery, so consumers see the same chunk contract
// as DeviceSource.
type StreamSource struct {
	url        string
	sampleRate int
	ch         chan Chunk
	conn       *websocket.Conn
	dec        *opus.Decoder
	cancel     context.CancelFunc
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

func NewStreamSource(url string, sampleRate int) *StreamSource {
	return &StreamSource{
		url:        url,
		sampleRate: sampleRate,
		ch:         make(chan Chunk, sourceQueueDepth),
	}
}

func (s *StreamSource) Start(ctx context.Context) error {
	dec, err := opus.NewDecoder(s.sampleRate, 1)
	if err != nil {
		return fmt.Errorf("%w: opus decoder: %v", ErrDeviceUnavailable, err)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %v", ErrDeviceUnavailable, s.url, err)
	}
	s.dec = dec
	s.conn = conn

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(1)
	go s.readLoop(runCtx)
	logging.Infow("capture: mic stream connected", "url", s.url, "sample_rate", s.sampleRate)
	return nil
}

func (s *StreamSource) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer s.closeOnce.Do(func() { close(s.ch) })
	// Opus frames are at most 120ms.
	pcm := make([]int16, s.sampleRate*120/1000)
	for {
		if ctx.Err() != nil {
			return
		}
		mt, payload, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				logging.Warnw("capture: mic stream closed", "err", err)
			}
			return
		}
		if mt != websocket.BinaryMessage || len(payload) == 0 {
			continue
		}
		n, err := s.dec.Decode(payload, pcm)
		if err != nil {
			logging.Errorw("capture: opus decode error", "err", err)
			continue
		}
		samples := make([]int16, n)
		copy(samples, pcm[:n])
		select {
		case s.ch <- Chunk{Data: samplesToPCM(samples), At: time.Now()}:
		default:
			logging.Warnw("capture: dropping chunk; queue full")
		}
	}
}

func (s *StreamSource) Chunks() <-chan Chunk { return s.ch }

func (s *StreamSource) SampleRate() int { return s.sampleRate }

// Close tears down the websocket and waits for the read loop. Idempotent.
func (s *StreamSource) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.wg.Wait()
	s.closeOnce.Do(func() { close(s.ch) })
	return nil
}
