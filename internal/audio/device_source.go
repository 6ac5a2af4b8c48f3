package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/voice-turn-lab/internal/logging"
)

// sourceQueueDepth bounds the producer/consumer chunk queue shared by all
// sources. Deliveries are dropped rather than blocking the producer when
// the consumer falls behind.
const sourceQueueDepth = 64

// DeviceSource captures PCM16 mono audio from the default input device via
// miniaudio. The data callback runs on the audio thread: it copies each
// delivery and performs a non-blocking send into the chunk queue.
type DeviceSource struct {
	sampleRate int
	ch         chan Chunk
	mctx       *malgo.AllocatedContext
	device     *malgo.Device
	closeOnce  sync.Once
	dropCount  int64
}

func NewDeviceSource(sampleRate int) *DeviceSource {
	return &DeviceSource{
		sampleRate: sampleRate,
		ch:         make(chan Chunk, sourceQueueDepth),
	}
}

func (d *DeviceSource) Start(ctx context.Context) error {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return fmt.Errorf("%w: init context: %v", ErrDeviceUnavailable, err)
	}
	d.mctx = mctx

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = 1
	cfg.SampleRate = uint32(d.sampleRate)
	cfg.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			data := append([]byte(nil), input...)
			select {
			case d.ch <- Chunk{Data: data, At: time.Now()}:
			default:
				if n := atomic.AddInt64(&d.dropCount, 1); n%100 == 1 {
					logging.Warnw("capture: dropping chunk; queue full", "dropped", n)
				}
			}
		},
		Stop: func() {
			// Fires on device loss as well as on Close; the consumer treats
			// a closed channel as end of capture either way.
			d.closeOnce.Do(func() { close(d.ch) })
		},
	}

	device, err := malgo.InitDevice(mctx.Context, cfg, callbacks)
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		d.mctx = nil
		return fmt.Errorf("%w: init device: %v", ErrDeviceUnavailable, err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		d.mctx = nil
		return fmt.Errorf("%w: start device: %v", ErrDeviceUnavailable, err)
	}
	d.device = device
	logging.Infow("capture: input device started", "sample_rate", d.sampleRate)
	return nil
}

func (d *DeviceSource) Chunks() <-chan Chunk { return d.ch }

func (d *DeviceSource) SampleRate() int { return d.sampleRate }

// Close stops and releases the device. Safe to call multiple times and from
// error paths.
func (d *DeviceSource) Close() error {
	if d.device != nil {
		_ = d.device.Stop()
		d.device.Uninit()
		d.device = nil
	}
	if d.mctx != nil {
		_ = d.mctx.Uninit()
		d.mctx.Free()
		d.mctx = nil
	}
	d.closeOnce.Do(func() { close(d.ch) })
	return nil
}
