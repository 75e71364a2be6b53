// Package acq implements the coherent multi-channel acquisition engine: the
// per-device producer loop, the shared ring bank, the start barrier that
// phase-aligns the devices, the aligner/emitter that releases frames only
// once every channel has produced a matching block, and the control-plane
// reader that re-tunes, re-gains, and toggles the calibration noise source.
//
// The engine knows nothing about any particular tuner hardware; it drives
// the Tuner interface, which a vendor driver package (or a test fake) must
// satisfy.
package acq
