package acq_test

/*------------------------------------------------------------------
 *
 * Purpose:	Exercises the aligner/emitter end to end against a fake
 *		tuner on each channel: frame ordering, overdrive detection,
 *		the dummy-frame quiesce window after each control command,
 *		and clean shutdown.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tve-daq/heimdall-coredaq/acq"
	"github.com/tve-daq/heimdall-coredaq/acq/acqtest"
)

// syncBuffer is a concurrency-safe io.Writer/io.Reader pair: the engine
// goroutine writes frames while the test goroutine polls for and reads
// them.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.Write(p)
}

func (s *syncBuffer) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.Len()
}

func (s *syncBuffer) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, s.buf.Len())
	copy(out, s.buf.Bytes())

	return out
}

type testHarness struct {
	t       *testing.T
	engine  *acq.Engine
	tuners  []*acqtest.FakeTuner
	out     *syncBuffer
	cfg     acq.Config
	cancel  context.CancelFunc
	runDone chan error
}

func newHarness(t *testing.T, n, daqBufferSize int) *testHarness {
	t.Helper()

	cfg := acq.Config{
		NumChannels:        n,
		HWName:             "test-chassis",
		UnitID:             1,
		DAQBufferSize:      daqBufferSize,
		SampleRateHz:       2_000_000,
		CenterFreqHz:       100_000_000,
		GainTenthDB:        100,
		CtrChannelSerialNo: 0,
	}

	return newHarnessFromConfig(t, cfg)
}

func newHarnessFromConfig(t *testing.T, cfg acq.Config) *testHarness {
	t.Helper()

	n := cfg.NumChannels

	tuners := make([]*acqtest.FakeTuner, n)
	tunerIfaces := make([]acq.Tuner, n)

	for i := range tuners {
		tuners[i] = &acqtest.FakeTuner{}
		tunerIfaces[i] = tuners[i]
	}

	out := &syncBuffer{}
	engine := acq.NewEngine(cfg, tunerIfaces, acq.NilLogger{}, nil, out)

	ctx, cancel := context.WithCancel(context.Background())

	h := &testHarness{t: t, engine: engine, tuners: tuners, out: out, cfg: cfg, cancel: cancel, runDone: make(chan error, 1)}

	for _, c := range engine.Channels() {
		c := c
		go func() {
			_ = engine.RunProducer(ctx, c, "test")
		}()
	}

	require.Eventually(t, func() bool {
		for _, tu := range tuners {
			if !tu.Ready() {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond, "producers never reached streaming state")

	go func() {
		h.runDone <- engine.Run(ctx)
	}()

	return h
}

func (h *testHarness) produceFrame(dataPerChannel [][]byte) {
	for i, tu := range h.tuners {
		tu.Produce(dataPerChannel[i])
	}
}

// waitBytes blocks until at least expectedBytes have been written to the
// output, then returns a snapshot of everything written so far.
func (h *testHarness) waitBytes(expectedBytes int) []byte {
	h.t.Helper()

	require.Eventually(h.t, func() bool {
		return h.out.Len() >= expectedBytes
	}, 2*time.Second, time.Millisecond, "frames never emitted")

	return h.out.Bytes()
}

func framesBytes(headerSize int, dummyCount, dataOrCalCount, payloadBytesPerFrame int) int {
	return headerSize*(dummyCount+dataOrCalCount) + dataOrCalCount*payloadBytesPerFrame
}

func (h *testHarness) stop() {
	h.engine.RequestExit()

	select {
	case err := <-h.runDone:
		require.NoError(h.t, err)
	case <-time.After(2 * time.Second):
		h.t.Fatal("engine.Run did not return after halt")
	}

	h.cancel()
}

func readFrame(t *testing.T, r *bytes.Reader) (acq.IQHeader, [][]byte, int) {
	t.Helper()

	var hdr acq.IQHeader

	n, err := hdr.ReadFrom(r)
	require.NoError(t, err)

	var payloads [][]byte

	if hdr.FrameType != acq.FrameTypeDummy {
		payloads = make([][]byte, hdr.ActiveChannels)
		for i := range payloads {
			buf := make([]byte, hdr.CPILength*2)
			_, err := io.ReadFull(r, buf)
			require.NoError(t, err)
			payloads[i] = buf
		}
	}

	return hdr, payloads, int(n)
}

// A constant byte on every channel yields a first frame that is DATA with
// no overdrive and the expected payload size.
func TestFirstFrameIsDataWithNoOverdrive(t *testing.T) {
	const n = 4
	const daqBufferSize = 1024

	h := newHarness(t, n, daqBufferSize)
	defer h.stop()

	buf := make([]byte, 2*daqBufferSize)
	for i := range buf {
		buf[i] = 0x10
	}

	data := make([][]byte, n)
	for i := range data {
		data[i] = append([]byte(nil), buf...)
	}

	h.produceFrame(data)

	raw := h.waitBytes(framesBytes(acq.HeaderSize(), 0, 1, n*2*daqBufferSize))
	r := bytes.NewReader(raw)
	hdr, payloads, _ := readFrame(t, r)

	require.Equal(t, uint64(0), hdr.DAQBlockIndex)
	require.Equal(t, uint32(0), hdr.OverdriveFlags)
	require.Equal(t, acq.FrameTypeData, hdr.FrameType)
	require.Equal(t, uint32(7), hdr.HeaderVersion)
	require.Equal(t, acq.SyncWord, hdr.SyncWord)

	for _, p := range payloads {
		require.Len(t, p, 2*daqBufferSize)

		for _, b := range p {
			require.Equal(t, byte(0x10), b)
		}
	}
}

// Byte 255 injected into channel 2 only sets overdrive bit 2.
func TestOverdriveBitSetPerChannelOnSaturatedByte(t *testing.T) {
	const n = 4
	const daqBufferSize = 64

	h := newHarness(t, n, daqBufferSize)
	defer h.stop()

	data := make([][]byte, n)
	for i := range data {
		buf := make([]byte, 2*daqBufferSize)
		for j := range buf {
			buf[j] = 0x10
		}
		data[i] = buf
	}

	data[2][5] = 0xff

	h.produceFrame(data)

	raw := h.waitBytes(framesBytes(acq.HeaderSize(), 0, 1, n*2*daqBufferSize))
	hdr, _, _ := readFrame(t, bytes.NewReader(raw))

	require.Equal(t, uint32(0b0100), hdr.OverdriveFlags)
}

// A noise-on command triggers 8 DUMMY frames, then CAL, with the header's
// noise-source state set from frame 1 onward.
func TestNoiseOnTriggersQuiesceThenCAL(t *testing.T) {
	const n = 2
	const daqBufferSize = 16

	h := newHarness(t, n, daqBufferSize)
	defer h.stop()

	headerSize := acq.HeaderSize()
	payload := n * 2 * daqBufferSize

	emitOne := func() { h.produceFrame(constData(n, daqBufferSize, 0x01)) }

	emitOne() // frame 0, steady state DATA
	h.waitBytes(framesBytes(headerSize, 0, 1, payload))

	h.engine.ApplyCommand(acq.Command{Op: acq.OpNoiseOn})

	for i := 0; i < 8; i++ {
		emitOne()
		h.waitBytes(framesBytes(headerSize, i+1, 1, payload))
	}
	emitOne() // frame 9
	h.waitBytes(framesBytes(headerSize, 8, 2, payload))

	raw := h.waitBytes(framesBytes(headerSize, 8, 2, payload))
	r := bytes.NewReader(raw)

	hdr0, _, _ := readFrame(t, r)
	require.Equal(t, acq.FrameTypeData, hdr0.FrameType)
	require.Equal(t, uint32(0), hdr0.NoiseSourceState)

	for i := 1; i <= 8; i++ {
		hdr, _, _ := readFrame(t, r)
		require.Equalf(t, acq.FrameTypeDummy, hdr.FrameType, "frame %d", i)
		require.Equal(t, uint32(0), hdr.CPILength)
		require.Equal(t, uint32(1), hdr.NoiseSourceState)
	}

	hdr9, _, _ := readFrame(t, r)
	require.Equal(t, acq.FrameTypeCal, hdr9.FrameType)
	require.Equal(t, uint32(1), hdr9.NoiseSourceState)
}

// On a chassis with more than four channels, a noise-on command drives the
// noise-source GPIO on both the control-channel device and the secondary
// device named by SecondaryCtrChannelSerialNo, which by the time it reaches
// NewEngine has already been resolved from a device serial to a channel
// index (the job cmd/daqd does via discovery before constructing the
// engine). Every other channel is left alone.
func TestNoiseOnDrivesSecondaryChannelWhenMoreThanFourChannels(t *testing.T) {
	const n = 6
	const daqBufferSize = 16
	const secondaryChannel = 5

	cfg := acq.Config{
		NumChannels:                 n,
		HWName:                      "test-chassis",
		UnitID:                      1,
		DAQBufferSize:               daqBufferSize,
		SampleRateHz:                2_000_000,
		CenterFreqHz:                100_000_000,
		GainTenthDB:                 100,
		CtrChannelSerialNo:          0,
		EnableNoiseSourceCtr:        true,
		SecondaryCtrChannelSerialNo: secondaryChannel,
	}

	h := newHarnessFromConfig(t, cfg)
	defer h.stop()

	headerSize := acq.HeaderSize()
	payload := n * 2 * daqBufferSize

	emitOne := func() { h.produceFrame(constData(n, daqBufferSize, 0x01)) }

	emitOne() // frame 0, steady state DATA
	h.waitBytes(framesBytes(headerSize, 0, 1, payload))

	h.engine.ApplyCommand(acq.Command{Op: acq.OpNoiseOn})

	for i := 0; i < 9; i++ {
		emitOne()
	}
	h.waitBytes(framesBytes(headerSize, 8, 2, payload))

	require.True(t, h.tuners[0].NoiseSourceGPIO(), "control channel (0) should have its noise source driven")
	require.True(t, h.tuners[secondaryChannel].NoiseSourceGPIO(), "secondary channel (%d) should have its noise source driven", secondaryChannel)

	for i := 1; i < secondaryChannel; i++ {
		require.False(t, h.tuners[i].NoiseSourceGPIO(), "channel %d should be untouched", i)
	}
}

// A retune command takes effect after the quiesce window: the header's
// center-frequency field reflects the driver-reported readback.
func TestRetuneAppliesAfterQuiesce(t *testing.T) {
	const n = 2
	const daqBufferSize = 16
	const newFreq = 433_000_000

	h := newHarness(t, n, daqBufferSize)
	defer h.stop()

	headerSize := acq.HeaderSize()
	payload := n * 2 * daqBufferSize

	emitOne := func() { h.produceFrame(constData(n, daqBufferSize, 0x01)) }

	emitOne()
	h.waitBytes(framesBytes(headerSize, 0, 1, payload))

	h.engine.ApplyCommand(acq.Command{Op: acq.OpRetune, CenterFreqHz: newFreq})

	for i := 0; i < 8; i++ {
		emitOne()
		h.waitBytes(framesBytes(headerSize, i+1, 1, payload))
	}
	emitOne() // frame 9, DATA again (noise never toggled)

	raw := h.waitBytes(framesBytes(headerSize, 8, 2, payload))
	r := bytes.NewReader(raw)

	for i := 0; i < 9; i++ {
		readFrame(t, r)
	}

	hdr9, _, _ := readFrame(t, r)
	require.Equal(t, uint64(newFreq), hdr9.CenterFreqHz)
}

// A per-channel regain command takes effect after the quiesce window: the
// gains field matches the requested vector.
func TestRegainAppliesAfterQuiesce(t *testing.T) {
	const n = 3
	const daqBufferSize = 16

	h := newHarness(t, n, daqBufferSize)
	defer h.stop()

	headerSize := acq.HeaderSize()
	payload := n * 2 * daqBufferSize

	emitOne := func() { h.produceFrame(constData(n, daqBufferSize, 0x01)) }

	emitOne()
	h.waitBytes(framesBytes(headerSize, 0, 1, payload))

	gains := []int32{10, 20, 30}
	h.engine.ApplyCommand(acq.Command{Op: acq.OpRegain, Gains: gains})

	for i := 0; i < 8; i++ {
		emitOne()
		h.waitBytes(framesBytes(headerSize, i+1, 1, payload))
	}
	emitOne()

	raw := h.waitBytes(framesBytes(headerSize, 8, 2, payload))
	r := bytes.NewReader(raw)

	for i := 0; i < 9; i++ {
		readFrame(t, r)
	}

	hdr9, _, _ := readFrame(t, r)
	for i, g := range gains {
		require.Equal(t, g, hdr9.IFGainsTenthDB[i])
	}
}

// Halt drains any ready frame, then Run returns cleanly with every
// producer's async read cancelled.
func TestHaltDrainsReadyFrameThenExitsClean(t *testing.T) {
	const n = 2
	const daqBufferSize = 16

	h := newHarness(t, n, daqBufferSize)

	h.produceFrame(constData(n, daqBufferSize, 0x01))
	h.waitBytes(framesBytes(acq.HeaderSize(), 0, 1, n*2*daqBufferSize))

	h.stop()
}

func constData(n, daqBufferSize int, b byte) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		buf := make([]byte, 2*daqBufferSize)
		for j := range buf {
			buf[j] = b
		}
		out[i] = buf
	}

	return out
}
