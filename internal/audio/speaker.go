package audio

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/voice-turn-lab/internal/logging"
)

// playbackPollInterval is how often Play checks whether the player drained.
const playbackPollInterval = 50 * time.Millisecond

// Speaker plays synthesized WAV replies through the default output device.
// The underlying oto context is created lazily at the first reply's sample
// rate; a process can hold only one.
type Speaker struct {
	mu       sync.Mutex
	otoCtx   *oto.Context
	rate     int
	channels int
}

func NewSpeaker() *Speaker { return &Speaker{} }

// Play decodes the WAV header, ensures an output context, and blocks until
// playback finishes or ctx is cancelled. Cancellation stops the player.
func (s *Speaker) Play(ctx context.Context, wav []byte) error {
	format, pcm, err := ParseWAV(wav)
	if err != nil {
		return fmt.Errorf("playback: %w", err)
	}
	if format.BitsPerSample != 16 {
		return fmt.Errorf("playback: unsupported bit depth %d", format.BitsPerSample)
	}
	octx, err := s.context(format)
	if err != nil {
		return fmt.Errorf("playback: %w", err)
	}

	player := octx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(playbackPollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (s *Speaker) context(format WAVFormat) (*oto.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.otoCtx != nil {
		if format.SampleRate != s.rate || format.Channels != s.channels {
			logging.Warnw("playback: wav format differs from output context",
				"wav_rate", format.SampleRate, "ctx_rate", s.rate,
				"wav_channels", format.Channels, "ctx_channels", s.channels)
		}
		return s.otoCtx, nil
	}
	octx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   100 * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}
	<-ready
	s.otoCtx = octx
	s.rate = format.SampleRate
	s.channels = format.Channels
	logging.Infow("playback: output device ready", "sample_rate", s.rate, "channels", s.channels)
	return octx, nil
}
