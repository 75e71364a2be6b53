package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Aligner / Emitter main loop.
 *
 * Description:	Waits on the alignment condition variable, computes
 *		readiness as the minimum blocks-produced counter across
 *		channels, and when every channel has advanced past the
 *		last emitted index, stamps the header, writes the frame,
 *		advances emit_index, and applies any pending
 *		reconfiguration. Channels are always read and emitted in
 *		ascending logical index, regardless of which producer
 *		happened to complete first.
 *
 *---------------------------------------------------------------*/

import (
	"context"
)

// Run is the Aligner/Emitter main loop. It returns once the exit flag is
// set and every ready frame has been drained.
func (e *Engine) Run(ctx context.Context) error {
	stopWatch := make(chan struct{})
	defer close(stopWatch)

	go func() {
		select {
		case <-ctx.Done():
			e.requestExit()
		case <-stopWatch:
		}
	}()

	for {
		e.mu.Lock()

		for !e.dataReadyLocked() && !e.pending.exit {
			e.cond.Wait()
		}

		if e.pending.exit && !e.dataReadyLocked() {
			e.mu.Unlock()

			return e.shutdown(ctx)
		}

		e.emitFrameLocked()
		e.applyReconfigurationLocked(ctx)

		e.mu.Unlock()
	}
}

// dataReadyLocked requires mu held.
func (e *Engine) dataReadyLocked() bool {
	return e.minBlocksProducedLocked() > e.emitIndex
}

func (e *Engine) minBlocksProducedLocked() uint64 {
	min := e.channels[0].BlocksProduced()
	for _, c := range e.channels[1:] {
		if v := c.BlocksProduced(); v < min {
			min = v
		}
	}

	return min
}

// emitFrameLocked stamps the header, writes it (and, for DATA/CAL, every
// channel's payload slice), advances emit_index, and advances/clears the
// dummy-frame window. Requires mu held.
func (e *Engine) emitFrameLocked() {
	h := &e.header
	h.UnixTimeSeconds = uint64(e.nowFn().Unix())
	h.DAQBlockIndex = e.emitIndex

	for _, c := range e.channels {
		if c.Index < MaxChannels {
			h.IFGainsTenthDB[c.Index] = c.GainTenthDB
		}
	}

	h.CenterFreqHz = e.channels[0].CenterFreqHz
	h.ADCSampleRateHz = e.channels[0].SampleRateHz

	if e.pending.noiseDesired {
		h.NoiseSourceState = 1
	} else {
		h.NoiseSourceState = 0
	}

	slots := make([][]byte, len(e.channels))

	var overdrive uint32

	for _, c := range e.channels {
		if produced := c.BlocksProduced(); produced > e.emitIndex+ringDepth {
			c.DroppedBlocks.Add(1)
			e.log.Errorf("aligner: channel %d lapped at emit index %d (produced %d)", c.Index, e.emitIndex, produced)
		}

		slot := c.Ring.ReadSlot(e.emitIndex)
		slots[c.Index] = slot

		if containsOverdrive(slot) {
			overdrive |= 1 << uint(c.Index)
		}
	}

	h.OverdriveFlags = overdrive

	if e.dummyFrameEnabled {
		h.FrameType = FrameTypeDummy
		h.DataType = 0
		h.CPILength = 0
	} else if e.pending.noiseDesired {
		h.FrameType = FrameTypeCal
		h.DataType = 1
		h.CPILength = uint32(e.cfg.DAQBufferSize)
	} else {
		h.FrameType = FrameTypeData
		h.DataType = 1
		h.CPILength = uint32(e.cfg.DAQBufferSize)
	}

	_, _ = h.WriteTo(e.out)

	if h.FrameType != FrameTypeDummy {
		for _, slot := range slots {
			_, _ = e.out.Write(slot)
		}
	}

	if flusher, ok := e.out.(interface{ Flush() error }); ok {
		_ = flusher.Flush()
	}

	e.emitIndex++

	if e.dummyFrameEnabled {
		e.dummyFrameCount++
		if e.dummyFrameCount >= ringDepth {
			e.dummyFrameEnabled = false
			e.dummyFrameCount = 0
		}
	}
}

func containsOverdrive(slot []byte) bool {
	for _, b := range slot {
		if b == 0xff {
			return true
		}
	}

	return false
}

// shutdown cancels every device's async read, joins the producers, and
// returns. A failed cancel is treated as shutdown-fatal.
func (e *Engine) shutdown(ctx context.Context) error {
	for _, c := range e.channels {
		if err := c.Tuner.CancelAsyncRead(); err != nil {
			e.log.Errorf("shutdown: cancel async read on channel %d: %v", c.Index, err)

			return err
		}
	}

	e.producerWG.Wait()

	for _, c := range e.channels {
		_ = c.Tuner.Close()
	}

	return nil
}
