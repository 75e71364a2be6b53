package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Vendor tuner driver boundary. The actual hardware SDK is
 *		treated as a third-party library; this interface is the
 *		whole of what the engine needs from it.
 *
 * Description:	The engine only ever calls through this interface. Real
 *		hardware backends (e.g. drivers/portaudio in this repo, or
 *		a cgo binding to a vendor SDK elsewhere) and the
 *		deterministic fakes used by tests both satisfy it.
 *
 *---------------------------------------------------------------*/

import "context"

// Transfer is one fixed-size buffer of raw interleaved 8-bit IQ bytes
// delivered by the driver's asynchronous read.
type Transfer struct {
	Data []byte
}

// TransferFunc is the callback a Tuner invokes once per completed transfer.
// Inside the engine, the producer callback (producer.go) is the only
// implementation; any implementation must return quickly since the driver
// won't start the next transfer until it does.
type TransferFunc func(Transfer)

// Tuner is the operation set the engine needs from the vendor driver:
// static configuration, an async streaming read serviced by fixed
// transfer buffers and a callback, and cancellation.
type Tuner interface {
	// Open acquires the device identified by serial. Fatal at startup if
	// it fails.
	Open(ctx context.Context, serial string) error

	// Close releases the device.
	Close() error

	// SetDitheringEnabled toggles ADC dithering. The producer always
	// disables it.
	SetDitheringEnabled(enabled bool) error

	// SetAGCEnabled toggles automatic gain control. The producer always
	// disables it.
	SetAGCEnabled(enabled bool) error

	// SetCenterFreq requests a center frequency in Hz.
	SetCenterFreq(hz uint64) error

	// CenterFreq reads back the actual tuned center frequency, which may
	// differ from what was requested.
	CenterFreq() (uint64, error)

	// SetGain requests a gain in tenths of a dB, per the driver's
	// convention.
	SetGain(tenthDB int32) error

	// SetSampleRate requests a sample rate in Hz.
	SetSampleRate(hz uint64) error

	// SetNoiseSourceGPIO drives the device's GPIO 0 for boards whose
	// noise source is wired directly to the tuner rather than to an
	// external I2C controller.
	SetNoiseSourceGPIO(on bool) error

	// ResetBuffers clears the driver's internal FIFOs.
	ResetBuffers() error

	// StartAsyncRead starts the driver's asynchronous read loop. The
	// driver invokes cb once per transfer of transferSize bytes, using
	// numTransfers driver-side buffers (12, in this engine).
	// StartAsyncRead blocks until the read is cancelled (via ctx or
	// CancelAsyncRead) or fails; it returns nil on a clean cancel.
	StartAsyncRead(ctx context.Context, numTransfers, transferSize int, cb TransferFunc) error

	// CancelAsyncRead cancels an in-flight StartAsyncRead from outside,
	// causing it to return. Used by the deprecated reconfigure-trigger
	// path to force producers back through initialization.
	CancelAsyncRead() error
}
