// Command daqd is the coherent multi-channel acquisition daemon: it loads
// configuration, discovers tuner devices, starts one Device Producer per
// channel, and runs the Aligner/Emitter until asked to stop.
package main

/*------------------------------------------------------------------
 *
 * Purpose:	Daemon entry point wiring acq.Engine to real devices: parse
 *		flags with pflag, load configuration, start the workers,
 *		wait.
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
	"github.com/tve-daq/heimdall-coredaq/discovery"
	portaudiotuner "github.com/tve-daq/heimdall-coredaq/drivers/portaudio"
	"github.com/tve-daq/heimdall-coredaq/gpio"
	"github.com/tve-daq/heimdall-coredaq/netadvert"
)

func main() {
	var configPath = pflag.StringP("config", "c", "", "Path to the daemon configuration file")
	var hwYamlPath = pflag.String("hw-yaml", "hw.yaml", "Path to an optional chassis descriptor file")
	var advertiseName = pflag.String("advertise", "", "If set, advertise the control pipe over mDNS under this name")
	var advertisePort = pflag.Int("advertise-port", 8765, "Port number to advertise alongside --advertise")
	var help = pflag.BoolP("help", "h", false, "Display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - coherent multi-channel acquisition daemon\n\n", os.Args[0])
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "daqd: --config is required")
		os.Exit(1)
	}

	if err := run(*configPath, *hwYamlPath, *advertiseName, *advertisePort); err != nil {
		fmt.Fprintf(os.Stderr, "daqd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, hwYamlPath, advertiseName string, advertisePort int) error {
	cfg, err := acq.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := acq.NewLogger(cfg.LogLevel)

	descriptor, err := acq.LoadChassisDescriptor(hwYamlPath)
	if err != nil {
		return fmt.Errorf("loading chassis descriptor: %w", err)
	}

	resolved, err := discovery.ResolveWithOverrides(discovery.NewUdevLister(), cfg.NumChannels, cfg.CtrChannelSerialNo, cfg.SecondaryCtrChannelSerialNo, descriptor.SerialOverrides)
	if err != nil {
		return fmt.Errorf("resolving devices: %w", err)
	}

	if resolved.ControlFellBack {
		log.Errorf("control channel serial %d not found, falling back to device 0", cfg.CtrChannelSerialNo)
	}

	if resolved.SecondaryCtrMissing {
		log.Errorf("secondary control channel serial %d not found, N>4 noise-source GPIO quirk disabled", cfg.SecondaryCtrChannelSerialNo)
	}

	cfg.CtrChannelSerialNo = resolved.ControlChannel
	cfg.SecondaryCtrChannelSerialNo = resolved.SecondaryCtrChannel

	tuners := make([]acq.Tuner, cfg.NumChannels)
	for i := range tuners {
		tuners[i] = portaudiotuner.New()
	}

	var noise acq.NoiseSourceController

	if cfg.NoiseGPIOChip != "" {
		ns, err := gpio.Open(cfg.NoiseGPIOChip, cfg.NoiseGPIOOffset)
		if err != nil {
			return fmt.Errorf("opening noise-source GPIO: %w", err)
		}
		defer ns.Close()

		noise = ns
	}

	engine := acq.NewEngine(cfg, tuners, log, noise, os.Stdout)

	pipe, err := acq.OpenControlPipe(cfg.ControlPipePath)
	if err != nil {
		return fmt.Errorf("opening control pipe: %w", err)
	}
	defer pipe.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if advertiseName != "" {
		if _, err := netadvert.Announce(ctx, advertiseName, advertisePort, log); err != nil {
			log.Errorf("mDNS advertisement failed to start: %v", err)
		}
	}

	acq.LogStartupBanner(log, cfg, time.Now())

	controlReader := acq.NewControlReader(pipe, engine, log)
	go controlReader.Run()

	producerErrs := make(chan error, len(engine.Channels()))

	for i, c := range engine.Channels() {
		deviceNode := resolved.DeviceNode[i]

		go func(c *acq.ChannelRecord, deviceNode string) {
			producerErrs <- engine.RunProducer(ctx, c, deviceNode)
		}(c, deviceNode)
	}

	runErr := engine.Run(ctx)

	for range engine.Channels() {
		if err := <-producerErrs; err != nil && runErr == nil {
			runErr = err
		}
	}

	acq.LogShutdownBanner(log, time.Now())

	return runErr
}
