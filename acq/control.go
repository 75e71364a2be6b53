package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Out-of-band control plane: read one opcode (plus any typed
 *		argument) at a time from the control pipe and apply it to
 *		the engine's pending-reconfiguration state.
 *
 * Description:	Opcode-plus-raw-binary is fragile across hosts, but the
 *		wire format is kept unchanged for compatibility with
 *		existing control-plane clients; it is isolated behind
 *		decodeCommand so nothing else in the package parses bytes
 *		off the pipe.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Control-plane opcodes.
const (
	OpReconfigureTuner byte = 'r'
	OpRetune           byte = 'c'
	OpRegain           byte = 'g'
	OpNoiseOn          byte = 'n'
	OpNoiseOff         byte = 'f'
	OpHalt             byte = 0x02
)

// Command is one decoded control-plane request.
type Command struct {
	Op byte

	// Populated depending on Op.
	CenterFreqHz uint64
	SampleRateHz uint64
	GainTenthDB  int32
	Gains        []int32
}

// controlWireOrder matches the control pipe's wire format: arguments are
// raw, little-endian on the host, with no framing beyond the opcode byte.
var controlWireOrder = binary.LittleEndian

// decodeCommand reads exactly one opcode and, if the opcode requires them,
// its fixed-width arguments, from r. numChannels sizes the 'g' (regain)
// argument vector.
func decodeCommand(r io.Reader, numChannels int) (Command, error) {
	var opBuf [1]byte

	if _, err := io.ReadFull(r, opBuf[:]); err != nil {
		return Command{}, err
	}

	cmd := Command{Op: opBuf[0]}

	switch cmd.Op {
	case OpReconfigureTuner:
		var args struct {
			CenterFreq uint32
			SampleRate uint32
			Gain       int32
		}

		if err := binary.Read(r, controlWireOrder, &args); err != nil {
			return Command{}, fmt.Errorf("decoding reconfigure args: %w", err)
		}

		cmd.CenterFreqHz = uint64(args.CenterFreq)
		cmd.SampleRateHz = uint64(args.SampleRate)
		cmd.GainTenthDB = args.Gain

	case OpRetune:
		var freq uint32

		if err := binary.Read(r, controlWireOrder, &freq); err != nil {
			return Command{}, fmt.Errorf("decoding retune arg: %w", err)
		}

		cmd.CenterFreqHz = uint64(freq)

	case OpRegain:
		gains := make([]int32, numChannels)

		if err := binary.Read(r, controlWireOrder, gains); err != nil {
			return Command{}, fmt.Errorf("decoding regain args: %w", err)
		}

		cmd.Gains = gains

	case OpNoiseOn, OpNoiseOff, OpHalt:
		// No arguments.

	default:
		return Command{}, fmt.Errorf("%w: 0x%02x", errUnknownOpcode, cmd.Op)
	}

	return cmd, nil
}

var errUnknownOpcode = errors.New("unknown control opcode")

// ControlReader owns the pipe and feeds decoded commands into the engine.
type ControlReader struct {
	pipe   io.ReadCloser
	engine *Engine
	log    Logger
}

// NewControlReader wraps an already-opened pipe. Opening the named pipe at
// its fixed filesystem path is the caller's job (pipe_unix.go) so tests can
// supply any io.ReadCloser, including a pty.
func NewControlReader(pipe io.ReadCloser, engine *Engine, log Logger) *ControlReader {
	return &ControlReader{pipe: pipe, engine: engine, log: log}
}

// Run reads commands until the pipe closes or the engine exits. A pipe-open
// failure is the caller's responsibility to report as startup-fatal; Run
// itself only ever sees an already-open pipe, so its own read errors
// cascade into an engine exit the same way an open failure would.
func (cr *ControlReader) Run() {
	for {
		cmd, err := decodeCommand(cr.pipe, cr.engine.numChannels())
		if err != nil {
			if errors.Is(err, errUnknownOpcode) {
				cr.log.Errorf("control: %v, discarding", err)
				continue
			}

			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				cr.log.Infof("control: pipe closed, requesting shutdown")
			} else {
				cr.log.Errorf("control: read failed: %v, requesting shutdown", err)
			}

			cr.engine.requestExit()

			return
		}

		cr.engine.applyCommand(cmd)
	}
}
