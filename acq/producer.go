package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Device Producer: brings one tuner to a known state,
 *		rendezvouses with the other producers at the start
 *		barrier, then streams bytes into its ring until cancelled.
 *
 * Description:	Modeled as a small state machine:
 *		{Init, AtBarrier, Streaming, Cancelling}. The deprecated
 *		'r' reconfigure-tuner path cancels the async read from
 *		outside (engine.applyReconfigurationLocked); StartAsyncRead
 *		returning nil is exactly that transition: the producer
 *		loops back to Init and re-enters the barrier, unless the
 *		engine is shutting down, in which case it stops.
 *
 *---------------------------------------------------------------*/

import "context"

// producerState names the states in the producer's state machine; it
// exists for readability and logging, not for branching (the loop in
// RunProducer is the transition table).
type producerState int

const (
	stateInit producerState = iota
	stateAtBarrier
	stateStreaming
	stateCancelling
)

func (s producerState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateAtBarrier:
		return "at-barrier"
	case stateStreaming:
		return "streaming"
	case stateCancelling:
		return "cancelling"
	default:
		return "unknown"
	}
}

const asyncTransferCount = 12 // driver-side transfer buffers.

// RunProducer drives one channel's Device Producer for the life of the
// process. It must be launched before Engine.Run; it registers itself with
// the engine's producer WaitGroup on entry, so Engine.Run's shutdown waits
// for it (NewEngine does not start goroutines itself, keeping construction
// side-effect-free).
func (e *Engine) RunProducer(ctx context.Context, c *ChannelRecord, serial string) error {
	e.producerWG.Add(1)
	defer e.producerWG.Done()

	if err := c.Tuner.Open(ctx, serial); err != nil {
		return err // failed open is fatal at startup.
	}

	for {
		e.log.Infof("producer %d: %s", c.Index, stateInit)
		e.initDevice(c)

		e.log.Infof("producer %d: %s", c.Index, stateAtBarrier)
		e.barrier.Wait()

		e.log.Infof("producer %d: %s", c.Index, stateStreaming)
		bufSize := c.Ring.bufferSize

		err := c.Tuner.StartAsyncRead(ctx, asyncTransferCount, bufSize, func(t Transfer) {
			e.deliverTransfer(c, t)
		})

		e.log.Infof("producer %d: %s", c.Index, stateCancelling)

		if err != nil {
			e.log.Errorf("producer %d: async read failed: %v", c.Index, err)
			return err
		}

		if e.isExiting() {
			return nil
		}

		// Cancelled by the deprecated reconfigure-tuner path: loop back
		// through Init and re-enter the barrier.
	}
}

// initDevice reproduces the load-bearing init order exactly: phase
// coherence across channels depends on every device going through the
// same sequence before it starts streaming. Failures here are logged but
// non-fatal: the device continues with whatever state it already has.
func (e *Engine) initDevice(c *ChannelRecord) {
	if err := c.Tuner.SetDitheringEnabled(false); err != nil {
		e.log.Errorf("producer %d: disable dithering: %v", c.Index, err)
	}

	if err := c.Tuner.SetAGCEnabled(false); err != nil {
		e.log.Errorf("producer %d: disable AGC: %v", c.Index, err)
	}

	if err := c.Tuner.SetCenterFreq(c.CenterFreqHz); err != nil {
		e.log.Errorf("producer %d: set center freq: %v", c.Index, err)
	}

	if actual, err := c.Tuner.CenterFreq(); err != nil {
		e.log.Errorf("producer %d: read back center freq: %v", c.Index, err)
	} else {
		c.CenterFreqHz = actual
	}

	if err := c.Tuner.SetGain(c.GainTenthDB); err != nil {
		e.log.Errorf("producer %d: set gain: %v", c.Index, err)
	}

	if err := c.Tuner.SetSampleRate(c.SampleRateHz); err != nil {
		e.log.Errorf("producer %d: set sample rate: %v", c.Index, err)
	}

	if err := c.Tuner.SetNoiseSourceGPIO(false); err != nil {
		e.log.Errorf("producer %d: noise source GPIO off: %v", c.Index, err)
	}

	if err := c.Tuner.ResetBuffers(); err != nil {
		e.log.Errorf("producer %d: reset buffers: %v", c.Index, err)
	}
}

// deliverTransfer is the driver callback: copy into the next ring slot,
// advance the counter, signal the aligner. Must return quickly; the
// driver calls it from its own internal thread and won't start the next
// transfer until it does.
func (e *Engine) deliverTransfer(c *ChannelRecord, t Transfer) {
	slot := c.Ring.WriteSlot(c.BlocksProduced())
	copy(slot, t.Data)
	e.noteProduced(c)
}

func (e *Engine) isExiting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.pending.exit
}
