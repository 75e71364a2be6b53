package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Optional chassis descriptor file, loaded if present. A
 *		missing file is not an error, only a parse failure is.
 *
 * Description:	Carries the per-board GPIO quirk table and device-serial
 *		overrides -- auxiliary, non-normative data that the
 *		sectioned key=value config format has no good way to
 *		express as a table.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ChassisDescriptor carries board-specific overrides that don't fit the
// flat key=value configuration format.
type ChassisDescriptor struct {
	// SerialOverrides maps a logical channel index to a device serial
	// number that doesn't follow the default "1000+index" convention.
	SerialOverrides map[int]string `yaml:"serial_overrides"`

	// NoiseGPIOQuirks lists additional device serials (beyond the
	// control channel and, for N>4, the secondary control channel) that
	// also need their GPIO 0 driven when the noise source is toggled,
	// for chassis variants with more than one board sharing a noise
	// source.
	NoiseGPIOQuirks []string `yaml:"noise_gpio_quirks"`
}

// LoadChassisDescriptor reads an optional hw.yaml file. A missing file
// returns a zero-value ChassisDescriptor and a nil error; any other
// failure to read or parse it is returned.
func LoadChassisDescriptor(path string) (ChassisDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ChassisDescriptor{}, nil
		}

		return ChassisDescriptor{}, fmt.Errorf("reading chassis descriptor %q: %w", path, err)
	}

	var desc ChassisDescriptor

	if err := yaml.Unmarshal(data, &desc); err != nil {
		return ChassisDescriptor{}, fmt.Errorf("parsing chassis descriptor %q: %w", path, err)
	}

	return desc, nil
}
