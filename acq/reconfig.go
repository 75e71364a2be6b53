package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Apply pending reconfiguration at a frame boundary.
 *
 * Description:	Called by the aligner immediately after emitting a frame,
 *		still holding the alignment mutex. Every branch here is
 *		independent: a retune and a regain can both be pending on
 *		the same frame boundary.
 *
 *---------------------------------------------------------------*/

import "context"

// applyReconfigurationLocked requires mu held.
func (e *Engine) applyReconfigurationLocked(ctx context.Context) {
	if e.pending.reconfigureTuner {
		for _, c := range e.channels {
			if err := c.Tuner.CancelAsyncRead(); err != nil {
				e.log.Errorf("reconfig: cancel async read on channel %d: %v", c.Index, err)
			}
		}

		e.pending.reconfigureTuner = false
	}

	if e.pending.centerFreqPending {
		for _, c := range e.channels {
			if err := c.Tuner.SetCenterFreq(e.pending.centerFreqHz); err != nil {
				e.log.Errorf("reconfig: set center freq on channel %d: %v", c.Index, err)
				continue
			}

			actual, err := c.Tuner.CenterFreq()
			if err != nil {
				e.log.Errorf("reconfig: read back center freq on channel %d: %v", c.Index, err)
				continue
			}

			c.CenterFreqHz = actual
		}

		e.pending.centerFreqPending = false
	}

	if e.pending.gainsPending {
		for i, c := range e.channels {
			if i >= len(e.pending.gains) {
				break
			}

			gain := e.pending.gains[i]
			if err := c.Tuner.SetGain(gain); err != nil {
				e.log.Errorf("reconfig: set gain on channel %d: %v", c.Index, err)
				continue
			}

			c.GainTenthDB = gain
		}

		e.pending.gainsPending = false
	}

	if e.pending.noiseDesired != e.pending.noiseLast && e.cfg.EnableNoiseSourceCtr {
		e.driveNoiseSourceLocked(ctx, e.pending.noiseDesired)
		e.pending.noiseLast = e.pending.noiseDesired
	}
}

// driveNoiseSourceLocked drives GPIO 0 of the control-channel device to the
// desired state, and of the secondary control-channel device as well when
// one is configured -- the N>4 multi-board hardware quirk, surfaced as a
// named option rather than a hard-coded index. When the chassis instead
// exposes the noise source through the host's own GPIO controller (e.g.
// gpiocdev) rather than through the tuner vendor driver, the configured
// NoiseSourceController is driven too. Requires mu held.
func (e *Engine) driveNoiseSourceLocked(ctx context.Context, on bool) {
	for _, c := range e.channels {
		if !c.IsControlDevice && c.Index != e.secondaryCtrChannel {
			continue
		}

		if err := c.Tuner.SetNoiseSourceGPIO(on); err != nil {
			e.log.Errorf("reconfig: set noise source GPIO on channel %d: %v", c.Index, err)
		}
	}

	if e.noise != nil {
		if err := e.noise.SetState(ctx, on); err != nil {
			e.log.Errorf("reconfig: set noise source controller state: %v", err)
		}
	}
}
