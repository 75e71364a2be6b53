package acq

/*------------------------------------------------------------------
 *
 * Purpose:	The Acquisition Engine: owns every piece of process-wide
 *		state that a naive port would otherwise keep as global
 *		variables -- the channel array, the alignment mutex and
 *		condition variable, and the pending-reconfiguration flags --
 *		as one explicit value with no hidden singletons.
 *
 * Description:	Engine.Run is the Aligner/Emitter main loop. It is the
 *		only goroutine that writes frames to the output stream and
 *		the only one that applies reconfiguration.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"context"
	"io"
	"sync"
	"time"
)

// NoiseSourceController drives the GPIO line(s) that switch the chassis
// calibration noise source on and off. Chassis variants that use an
// external I2C controller instead simply don't configure one; the engine
// tracks noise-source *state* either way so the header field always
// reflects the desired state most recently set at the time of emission.
type NoiseSourceController interface {
	SetState(ctx context.Context, on bool) error
}

type pendingReconfig struct {
	reconfigureTuner bool // deprecated 'r' path

	centerFreqPending bool
	centerFreqHz      uint64

	gainsPending bool
	gains        []int32

	noiseDesired bool
	noiseLast    bool

	exit bool
}

// Engine is the explicit acquisition-engine value; construct one with
// NewEngine and never reach for package-level state.
type Engine struct {
	mu   sync.Mutex
	cond *sync.Cond

	channels []*ChannelRecord
	barrier  *StartBarrier

	cfg    Config
	log    Logger
	noise  NoiseSourceController
	out    io.Writer
	nowFn  func() time.Time
	header IQHeader

	pending pendingReconfig

	emitIndex           uint64
	dummyFrameEnabled   bool
	dummyFrameCount     int
	secondaryCtrChannel int // -1 if unset

	producerWG sync.WaitGroup
}

// NewEngine allocates channel records and rings sized by cfg, and returns
// an engine ready to have producers started against it and then Run.
func NewEngine(cfg Config, tuners []Tuner, log Logger, noise NoiseSourceController, out io.Writer) *Engine {
	e := &Engine{
		cfg:                 cfg,
		log:                 log,
		noise:               noise,
		out:                 bufio.NewWriterSize(out, 64*1024),
		nowFn:               time.Now,
		secondaryCtrChannel: -1,
	}
	e.cond = sync.NewCond(&e.mu)
	e.barrier = NewStartBarrier(cfg.NumChannels)

	// CtrChannelSerialNo and SecondaryCtrChannelSerialNo hold raw device
	// serial numbers in a config file, but by the time Config reaches
	// NewEngine the caller (cmd/daqd) has already resolved both through
	// discovery into logical channel indices; the engine only ever
	// compares against channel index, never against a serial number.
	for i := 0; i < cfg.NumChannels; i++ {
		cr := NewChannelRecord(i, cfg.DAQBufferSize)
		cr.Tuner = tuners[i]
		cr.CenterFreqHz = cfg.CenterFreqHz
		cr.SampleRateHz = cfg.SampleRateHz
		cr.GainTenthDB = cfg.GainTenthDB
		cr.IsControlDevice = i == cfg.CtrChannelSerialNo
		e.channels = append(e.channels, cr)
	}

	e.header = IQHeader{
		SyncWord:       SyncWord,
		HeaderVersion:  HeaderVersion,
		HardwareID:     stringToFixed16(cfg.HWName),
		UnitID:         uint32(cfg.UnitID),
		IOOType:        uint32(cfg.IOOType),
		ActiveChannels: uint32(cfg.NumChannels),
		SampleBitDepth: SampleBitDepth,
	}

	if cfg.NumChannels > 4 && cfg.SecondaryCtrChannelSerialNo != 0 {
		e.secondaryCtrChannel = cfg.SecondaryCtrChannelSerialNo
	}

	return e
}

// Channels exposes the channel records so producers can be started against
// them; ownership stays with the engine.
func (e *Engine) Channels() []*ChannelRecord {
	return e.channels
}

// Barrier is the shared start barrier every producer must wait on.
func (e *Engine) Barrier() *StartBarrier {
	return e.barrier
}

func (e *Engine) numChannels() int {
	return len(e.channels)
}

// noteProduced is called by a producer callback after it copies a transfer
// into the ring. It advances the counter and wakes the aligner.
func (e *Engine) noteProduced(c *ChannelRecord) {
	c.advance()
	e.cond.Broadcast()
}

// requestExit sets the exit flag and wakes the aligner. Used both for the
// halt opcode and to cascade a control-pipe open/read failure into
// shutdown.
func (e *Engine) requestExit() {
	e.mu.Lock()
	e.pending.exit = true
	e.mu.Unlock()
	e.cond.Broadcast()
}

// applyCommand mutates pending state under the alignment mutex and wakes
// the aligner. Every successful command also arms the dummy-frame
// quiesce window; the Control Reader, not the aligner, sets that flag so
// it's visible to the very next aligner iteration.
func (e *Engine) applyCommand(cmd Command) {
	e.mu.Lock()

	switch cmd.Op {
	case OpReconfigureTuner:
		for _, c := range e.channels {
			c.CenterFreqHz = cmd.CenterFreqHz
			c.SampleRateHz = cmd.SampleRateHz
			c.GainTenthDB = cmd.GainTenthDB
		}

		e.pending.reconfigureTuner = true
		e.armDummyLocked()

	case OpRetune:
		e.pending.centerFreqPending = true
		e.pending.centerFreqHz = cmd.CenterFreqHz
		e.armDummyLocked()

	case OpRegain:
		e.pending.gainsPending = true
		e.pending.gains = cmd.Gains
		e.armDummyLocked()

	case OpNoiseOn:
		e.pending.noiseDesired = true
		e.armDummyLocked()

	case OpNoiseOff:
		e.pending.noiseDesired = false
		e.armDummyLocked()

	case OpHalt:
		e.pending.exit = true
	}

	e.mu.Unlock()
	e.cond.Broadcast()
}

// ApplyCommand applies a decoded control-plane command. It is the same
// entry point ControlReader.Run uses; exported so callers that source
// commands some other way (tests, an alternate transport) can drive the
// engine without going through the pipe-decode path.
func (e *Engine) ApplyCommand(cmd Command) {
	e.applyCommand(cmd)
}

// RequestExit sets the exit flag and wakes the aligner, as if the halt
// opcode had been received.
func (e *Engine) RequestExit() {
	e.requestExit()
}

// armDummyLocked must be called with mu held.
func (e *Engine) armDummyLocked() {
	e.dummyFrameEnabled = true
	e.dummyFrameCount = 0
}
