// Command daq-soundcard-demo exercises the PortAudio-backed Tuner against a
// real sound card without the rest of the acquisition engine, so the
// async-read-with-callback contract can be checked on hardware that isn't
// an SDR.
package main

/*------------------------------------------------------------------
 *
 * Purpose:	Stand-alone smoke test for drivers/portaudio.Tuner.
 *
 *---------------------------------------------------------------*/

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/tve-daq/heimdall-coredaq/acq"
	"github.com/tve-daq/heimdall-coredaq/drivers/portaudio"
)

func main() {
	var device = pflag.StringP("device", "d", "default", "Input device name to open")
	var transferSize = pflag.IntP("transfer-size", "t", 4096, "Bytes per transfer")
	var duration = pflag.DurationP("duration", "T", 5*time.Second, "How long to capture before stopping")
	var help = pflag.BoolP("help", "h", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - PortAudio Tuner smoke test\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if err := run(*device, *transferSize, *duration); err != nil {
		fmt.Fprintf(os.Stderr, "daq-soundcard-demo: %v\n", err)
		os.Exit(1)
	}
}

func run(device string, transferSize int, duration time.Duration) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	tuner := portaudio.New()

	if err := tuner.Open(ctx, device); err != nil {
		return fmt.Errorf("opening device %q: %w", device, err)
	}
	defer tuner.Close()

	var transfers, bytes int

	err := tuner.StartAsyncRead(ctx, 12, transferSize, func(t acq.Transfer) {
		transfers++
		bytes += len(t.Data)
	})
	if err != nil {
		return fmt.Errorf("capturing: %w", err)
	}

	fmt.Printf("captured %d transfers, %d bytes\n", transfers, bytes)

	return nil
}
