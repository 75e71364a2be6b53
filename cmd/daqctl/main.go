// Command daqctl is the interactive companion to daqd: it opens the
// acquisition daemon's control pipe and sends single-opcode commands,
// either once from flags or continuously from raw keystrokes.
package main

/*------------------------------------------------------------------
 *
 * Purpose:	Control-plane client. Raw-mode keystroke handling uses
 *		github.com/pkg/term the way interactive serial tools do,
 *		applied here to /dev/tty instead of a device's serial port.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/pkg/term"
	"github.com/spf13/pflag"

	"github.com/tve-daq/heimdall-coredaq/acq"
)

func main() {
	var pipePath = pflag.StringP("pipe", "p", "/tmp/daq_control", "Path to the daemon's control pipe")
	var numChannels = pflag.IntP("channels", "n", 1, "Number of channels (needed to size the regain command)")
	var interactive = pflag.BoolP("interactive", "i", false, "Read single keystrokes from the terminal instead of one-shot flags")
	var retuneHz = pflag.Uint64("retune", 0, "Send a retune command to this frequency in Hz")
	var regainDB = pflag.Int32("regain", 0, "Send a regain command, in tenths of a dB, applied to every channel")
	var noiseOn = pflag.Bool("noise-on", false, "Send a noise-source-on command")
	var noiseOff = pflag.Bool("noise-off", false, "Send a noise-source-off command")
	var halt = pflag.Bool("halt", false, "Send a halt command")
	var help = pflag.BoolP("help", "h", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - interactive control-plane CLI for daqd\n\n", os.Args[0])
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nInteractive-mode keystrokes:\n")
		fmt.Fprintf(os.Stderr, "  c  retune to --retune\n")
		fmt.Fprintf(os.Stderr, "  g  regain to --regain\n")
		fmt.Fprintf(os.Stderr, "  n  noise source on\n")
		fmt.Fprintf(os.Stderr, "  f  noise source off\n")
		fmt.Fprintf(os.Stderr, "  2  halt\n")
		fmt.Fprintf(os.Stderr, "  q  quit daqctl (does not halt the daemon)\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	pipe, err := os.OpenFile(*pipePath, os.O_WRONLY, os.ModeNamedPipe)
	if err != nil {
		fmt.Fprintf(os.Stderr, "daqctl: opening control pipe %q: %v\n", *pipePath, err)
		os.Exit(1)
	}
	defer pipe.Close()

	if *interactive {
		if err := runInteractive(pipe, *numChannels, *retuneHz, *regainDB); err != nil {
			fmt.Fprintf(os.Stderr, "daqctl: %v\n", err)
			os.Exit(1)
		}

		return
	}

	switch {
	case *halt:
		err = sendHalt(pipe)
	case *noiseOn:
		err = sendNoise(pipe, true)
	case *noiseOff:
		err = sendNoise(pipe, false)
	case *retuneHz != 0:
		err = sendRetune(pipe, *retuneHz)
	case *regainDB != 0:
		err = sendRegain(pipe, *numChannels, *regainDB)
	default:
		fmt.Fprintln(os.Stderr, "daqctl: nothing to do, pass one of --retune/--regain/--noise-on/--noise-off/--halt/--interactive")
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "daqctl: %v\n", err)
		os.Exit(1)
	}
}

// runInteractive puts the terminal in raw mode and dispatches single
// keystrokes to canned commands until 'q' is pressed or the terminal
// closes. Canned retune/regain targets come from the one-shot flags so an
// operator can, e.g., `daqctl -i --retune 100000000` and press 'c' to
// apply it repeatedly.
func runInteractive(pipe *os.File, numChannels int, retuneHz uint64, regainDB int32) error {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return fmt.Errorf("opening terminal in raw mode: %w", err)
	}
	defer tty.Restore()
	defer tty.Close()

	fmt.Fprintln(os.Stderr, "daqctl: interactive mode, press 'q' to quit")

	buf := make([]byte, 1)

	for {
		if _, err := tty.Read(buf); err != nil {
			return fmt.Errorf("reading keystroke: %w", err)
		}

		var cmdErr error

		switch buf[0] {
		case 'c':
			cmdErr = sendRetune(pipe, retuneHz)
		case 'g':
			cmdErr = sendRegain(pipe, numChannels, regainDB)
		case 'n':
			cmdErr = sendNoise(pipe, true)
		case 'f':
			cmdErr = sendNoise(pipe, false)
		case '2':
			cmdErr = sendHalt(pipe)
		case 'q':
			return nil
		default:
			continue
		}

		if cmdErr != nil {
			fmt.Fprintf(os.Stderr, "daqctl: %v\n", cmdErr)
		}
	}
}

func sendRetune(w *os.File, hz uint64) error {
	if _, err := w.Write([]byte{acq.OpRetune}); err != nil {
		return err
	}

	return binary.Write(w, binary.LittleEndian, uint32(hz))
}

func sendRegain(w *os.File, numChannels int, tenthDB int32) error {
	if _, err := w.Write([]byte{acq.OpRegain}); err != nil {
		return err
	}

	gains := make([]int32, numChannels)
	for i := range gains {
		gains[i] = tenthDB
	}

	return binary.Write(w, binary.LittleEndian, gains)
}

func sendNoise(w *os.File, on bool) error {
	op := acq.OpNoiseOff
	if on {
		op = acq.OpNoiseOn
	}

	_, err := w.Write([]byte{op})

	return err
}

func sendHalt(w *os.File) error {
	_, err := w.Write([]byte{acq.OpHalt})

	return err
}
