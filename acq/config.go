package acq

/*------------------------------------------------------------------
 *
 * Purpose:   	Read configuration information from a key-value file.
 *
 * Description:	This is the thin sectioned key=value reader the core needs
 *		to get from a file on disk to a Config value. Unknown keys
 *		are a hard error. The reader accumulates every problem it
 *		finds rather than stopping at the first one, so an operator
 *		fixes a config file in one pass.
 *
 *---------------------------------------------------------------*/

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Config is the subset of configuration the acquisition core consumes.
// Everything else belongs to the config-file parser's other consumers,
// out of scope here.
type Config struct {
	NumChannels int
	HWName      string
	UnitID      int
	IOOType     int

	DAQBufferSize        int
	SampleRateHz         uint64
	CenterFreqHz         uint64
	GainTenthDB          int32
	EnableNoiseSourceCtr bool
	CtrChannelSerialNo   int
	LogLevel             int

	// SecondaryCtrChannelSerialNo names the device that also needs its
	// GPIO 0 driven when NumChannels > 4, a hardware quirk of some
	// multi-board chassis, surfaced as a named configuration option
	// rather than a hard-coded index. It holds a raw device serial
	// number as read from the config file; the caller (cmd/daqd) must
	// resolve it to a logical channel index via discovery.ResolveWithOverrides
	// the same way it resolves CtrChannelSerialNo, before constructing
	// the Engine. Zero means "no secondary device" (the legacy
	// single-board case).
	SecondaryCtrChannelSerialNo int

	ControlPipePath string

	// NoiseGPIOChip/NoiseGPIOOffset name the host GPIO line driving the
	// noise source on chassis variants that wire it to the host's own
	// GPIO controller rather than through a tuner. Both empty/zero means
	// no host GPIO line is used; the tuner's own SetNoiseSourceGPIO is
	// the only path.
	NoiseGPIOChip   string
	NoiseGPIOOffset int
}

var recognizedKeys = map[string]bool{
	"hw.num_ch":                  true,
	"hw.name":                    true,
	"hw.unit_id":                 true,
	"hw.ioo_type":                true,
	"daq.daq_buffer_size":        true,
	"daq.sample_rate":            true,
	"daq.center_freq":            true,
	"daq.gain":                   true,
	"daq.en_noise_source_ctr":    true,
	"daq.ctr_channel_serial_no":  true,
	"daq.sec_ctr_channel_serial": true,
	"daq.log_level":              true,
	"daq.control_pipe":           true,
	"daq.noise_gpio_chip":        true,
	"daq.noise_gpio_offset":      true,
}

// ConfigError collects every problem found while parsing, so a caller can
// report them all instead of stopping at the first.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration: %d problem(s):\n  %s", len(e.Problems), strings.Join(e.Problems, "\n  "))
}

// LoadConfig reads a sectioned key=value file from path.
func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("opening config %q: %w", path, err)
	}
	defer f.Close()

	return parseConfig(f)
}

func parseConfig(r io.Reader) (Config, error) {
	cfg := Config{
		ControlPipePath: "/tmp/daq_control",
	}

	var problems []string
	seen := map[string]bool{}

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			problems = append(problems, fmt.Sprintf("line %d: expected key=value, got %q", lineNo, line))
			continue
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if !recognizedKeys[key] {
			problems = append(problems, fmt.Sprintf("line %d: unknown key %q", lineNo, key))
			continue
		}

		seen[key] = true

		if err := applyKey(&cfg, key, value); err != nil {
			problems = append(problems, fmt.Sprintf("line %d: %s=%s: %v", lineNo, key, value, err))
		}
	}

	if err := scanner.Err(); err != nil {
		problems = append(problems, fmt.Sprintf("reading config: %v", err))
	}

	if !seen["hw.num_ch"] {
		problems = append(problems, "missing required key hw.num_ch")
	}

	if len(problems) > 0 {
		return Config{}, &ConfigError{Problems: problems}
	}

	return cfg, nil
}

func applyKey(cfg *Config, key, value string) error {
	switch key {
	case "hw.num_ch":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.NumChannels = n
	case "hw.name":
		cfg.HWName = value
	case "hw.unit_id":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.UnitID = n
	case "hw.ioo_type":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.IOOType = n
	case "daq.daq_buffer_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.DAQBufferSize = n
	case "daq.sample_rate":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}

		cfg.SampleRateHz = n
	case "daq.center_freq":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}

		cfg.CenterFreqHz = n
	case "daq.gain":
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return err
		}

		cfg.GainTenthDB = int32(n)
	case "daq.en_noise_source_ctr":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.EnableNoiseSourceCtr = n != 0
	case "daq.ctr_channel_serial_no":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.CtrChannelSerialNo = n
	case "daq.sec_ctr_channel_serial":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.SecondaryCtrChannelSerialNo = n
	case "daq.log_level":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.LogLevel = n
	case "daq.control_pipe":
		cfg.ControlPipePath = value
	case "daq.noise_gpio_chip":
		cfg.NoiseGPIOChip = value
	case "daq.noise_gpio_offset":
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}

		cfg.NoiseGPIOOffset = n
	}

	return nil
}
