// Package acqtest provides a deterministic Tuner double for exercising the
// acquisition engine without real hardware, plus helpers for driving
// specific transfer timings and interleavings from test code.
package acqtest

import (
	"context"
	"sync"

	"github.com/tve-daq/heimdall-coredaq/acq"
)

// FakeTuner is a Tuner whose transfers are pushed explicitly by test code
// via Produce, rather than generated on a timer. This lets tests drive
// exact cross-channel interleavings deterministically.
type FakeTuner struct {
	mu sync.Mutex

	OpenErr error

	serial       string
	centerFreqHz uint64
	sampleRateHz uint64
	gainTenthDB  int32
	dithering    bool
	agc          bool
	noiseGPIO    bool
	resetCount   int

	cb        acq.TransferFunc
	cancelled chan struct{}
}

var _ acq.Tuner = (*FakeTuner)(nil)

func (t *FakeTuner) Open(_ context.Context, serial string) error {
	if t.OpenErr != nil {
		return t.OpenErr
	}

	t.serial = serial

	return nil
}

func (t *FakeTuner) Close() error { return nil }

func (t *FakeTuner) SetDitheringEnabled(enabled bool) error {
	t.dithering = enabled
	return nil
}

func (t *FakeTuner) SetAGCEnabled(enabled bool) error {
	t.agc = enabled
	return nil
}

func (t *FakeTuner) SetCenterFreq(hz uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.centerFreqHz = hz

	return nil
}

func (t *FakeTuner) CenterFreq() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.centerFreqHz, nil
}

func (t *FakeTuner) SetGain(tenthDB int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.gainTenthDB = tenthDB

	return nil
}

func (t *FakeTuner) SetSampleRate(hz uint64) error {
	t.sampleRateHz = hz
	return nil
}

func (t *FakeTuner) SetNoiseSourceGPIO(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.noiseGPIO = on

	return nil
}

func (t *FakeTuner) NoiseSourceGPIO() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.noiseGPIO
}

func (t *FakeTuner) ResetBuffers() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetCount++

	return nil
}

func (t *FakeTuner) StartAsyncRead(ctx context.Context, _, _ int, cb acq.TransferFunc) error {
	t.mu.Lock()
	t.cb = cb
	cancelled := make(chan struct{})
	t.cancelled = cancelled
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil
	case <-cancelled:
		return nil
	}
}

func (t *FakeTuner) CancelAsyncRead() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancelled != nil {
		close(t.cancelled)
		t.cancelled = nil
	}

	return nil
}

// Ready reports whether StartAsyncRead has registered a callback, i.e.
// whether the producer has passed the start barrier and is streaming.
func (t *FakeTuner) Ready() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cb != nil
}

// Produce simulates the driver invoking its transfer callback once, as if
// a completed buffer had just arrived.
func (t *FakeTuner) Produce(data []byte) {
	t.mu.Lock()
	cb := t.cb
	t.mu.Unlock()

	if cb != nil {
		cb(acq.Transfer{Data: data})
	}
}
