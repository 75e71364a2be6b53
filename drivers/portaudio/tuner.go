// Package portaudio implements acq.Tuner against a real sound card via
// github.com/gordonklaus/portaudio, standing in for a wideband SDR tuner.
// PortAudio's blocking Read/Write API has the same shape as the real
// vendor driver: open, configure, stream fixed-size buffers until
// cancelled. It is a reference/demo backend, not a replacement for a real
// SDR driver.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/tve-daq/heimdall-coredaq/acq"
)

// Tuner captures raw 8-bit samples from an input-capable sound card device
// whose name matches the requested serial, packing whatever the card
// delivers into IQ-shaped transfer buffers for the acquisition engine.
type Tuner struct {
	mu sync.Mutex

	stream      *pa.Stream
	sampleRate  float64
	centerFreq  uint64 // not meaningful for a sound card; tracked for Tuner contract
	gain        int32
	dithering   bool
	agc         bool
	noiseGPIO   bool
	cancelled   chan struct{}
	initialized bool
}

var _ acq.Tuner = (*Tuner)(nil)

// New returns an unopened Tuner.
func New() *Tuner {
	return &Tuner{}
}

func (t *Tuner) Open(_ context.Context, serial string) error {
	if err := pa.Initialize(); err != nil {
		return fmt.Errorf("portaudio: initialize: %w", err)
	}

	t.initialized = true

	devices, err := pa.Devices()
	if err != nil {
		return fmt.Errorf("portaudio: listing devices: %w", err)
	}

	var dev *pa.DeviceInfo

	for _, d := range devices {
		if d.Name == serial && d.MaxInputChannels > 0 {
			dev = d
			break
		}
	}

	if dev == nil {
		return fmt.Errorf("portaudio: no input device named %q", serial)
	}

	t.sampleRate = dev.DefaultSampleRate

	return nil
}

func (t *Tuner) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stream != nil {
		_ = t.stream.Close()
		t.stream = nil
	}

	if t.initialized {
		t.initialized = false
		return pa.Terminate()
	}

	return nil
}

func (t *Tuner) SetDitheringEnabled(enabled bool) error { t.dithering = enabled; return nil }
func (t *Tuner) SetAGCEnabled(enabled bool) error       { t.agc = enabled; return nil }

func (t *Tuner) SetCenterFreq(hz uint64) error {
	t.centerFreq = hz // a sound card has no tunable RF front end; kept for parity
	return nil
}

func (t *Tuner) CenterFreq() (uint64, error) { return t.centerFreq, nil }

func (t *Tuner) SetGain(tenthDB int32) error { t.gain = tenthDB; return nil }

func (t *Tuner) SetSampleRate(hz uint64) error {
	t.sampleRate = float64(hz)
	return nil
}

func (t *Tuner) SetNoiseSourceGPIO(on bool) error { t.noiseGPIO = on; return nil }

func (t *Tuner) ResetBuffers() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stream != nil {
		return t.stream.Stop()
	}

	return nil
}

// StartAsyncRead opens an input stream and blocking-reads fixed-size
// buffers of raw samples, packing each into a Transfer and invoking cb,
// until ctx is cancelled or CancelAsyncRead is called. numTransfers has no
// effect here: PortAudio manages its own internal buffering.
func (t *Tuner) StartAsyncRead(ctx context.Context, _ int, transferSize int, cb acq.TransferFunc) error {
	buf := make([]int8, transferSize)

	params := pa.LowLatencyParameters(nil, nil)
	params.Input.Channels = 1
	params.SampleRate = t.sampleRate
	params.FramesPerBuffer = transferSize

	stream, err := pa.OpenStream(params, buf)
	if err != nil {
		return fmt.Errorf("portaudio: open stream: %w", err)
	}

	t.mu.Lock()
	t.stream = stream
	cancelled := make(chan struct{})
	t.cancelled = cancelled
	t.mu.Unlock()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start stream: %w", err)
	}

	defer stream.Stop() //nolint:errcheck

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-cancelled:
			return nil
		default:
		}

		if err := stream.Read(); err != nil {
			return fmt.Errorf("portaudio: read: %w", err)
		}

		out := make([]byte, len(buf))
		for i, s := range buf {
			out[i] = byte(s)
		}

		cb(acq.Transfer{Data: out})
	}
}

func (t *Tuner) CancelAsyncRead() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled != nil {
		close(t.cancelled)
		t.cancelled = nil
	}

	return nil
}
