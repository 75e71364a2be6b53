package acq

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadChassisDescriptorMissingFileIsNotAnError(t *testing.T) {
	desc, err := LoadChassisDescriptor(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Empty(t, desc.SerialOverrides)
	require.Empty(t, desc.NoiseGPIOQuirks)
}

func TestLoadChassisDescriptorParsesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hw.yaml")
	contents := "serial_overrides:\n  3: \"2001\"\nnoise_gpio_quirks:\n  - \"2001\"\n  - \"2002\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	desc, err := LoadChassisDescriptor(path)
	require.NoError(t, err)
	require.Equal(t, map[int]string{3: "2001"}, desc.SerialOverrides)
	require.Equal(t, []string{"2001", "2002"}, desc.NoiseGPIOQuirks)
}
