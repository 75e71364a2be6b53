// Package discovery maps logical channel indices to physical tuner devices
// by device serial number ("1000", "1001", ..., "1000+N-1"), using udev to
// enumerate attached USB devices.
package discovery

/*------------------------------------------------------------------
 *
 * Purpose:	Device discovery: a missing serial for a data channel is
 *		fatal at startup; a missing control-channel serial falls
 *		back to device 0 with a warning.
 *
 *---------------------------------------------------------------*/

import (
	"fmt"

	"github.com/jochenvg/go-udev"
)

// SerialLister returns the USB device nodes currently visible to the
// system along with their ID_SERIAL_SHORT udev property. It is the
// interface discovery depends on, so tests and non-Linux builds can supply
// a fake instead of talking to the real udev context.
type SerialLister interface {
	ListSerials() (map[string]string, error) // serial -> device node
}

// udevLister is the production SerialLister, backed by github.com/jochenvg/go-udev.
type udevLister struct{}

// NewUdevLister returns the real, udev-backed SerialLister.
func NewUdevLister() SerialLister {
	return udevLister{}
}

func (udevLister) ListSerials() (map[string]string, error) {
	u := udev.Udev{}
	e := u.NewEnumerate()

	if err := e.AddMatchSubsystem("usb"); err != nil {
		return nil, fmt.Errorf("discovery: matching usb subsystem: %w", err)
	}

	devices, err := e.Devices()
	if err != nil {
		return nil, fmt.Errorf("discovery: enumerating usb devices: %w", err)
	}

	out := make(map[string]string, len(devices))

	for _, d := range devices {
		serial := d.PropertyValue("ID_SERIAL_SHORT")
		if serial == "" {
			continue
		}

		out[serial] = d.Devnode()
	}

	return out, nil
}

// BaseSerial is the first data-channel serial number.
const BaseSerial = 1000

// ChannelSerial returns the expected serial number string for logical
// channel index i.
func ChannelSerial(i int) string {
	return fmt.Sprintf("%d", BaseSerial+i)
}

// Resolved maps each logical channel index to the device node that serial
// was found on.
type Resolved struct {
	DeviceNode      []string // indexed by logical channel
	ControlChannel  int
	ControlFellBack bool

	// SecondaryCtrChannel is the logical channel index resolved from the
	// secondary control-channel serial number (see
	// acq.Config.SecondaryCtrChannelSerialNo), or 0 if none was
	// configured or its serial wasn't found among attached devices.
	// SecondaryCtrMissing distinguishes the latter case (configured but
	// not found) from "not configured" so the caller can warn.
	SecondaryCtrChannel int
	SecondaryCtrMissing bool
}

// Resolve maps numChannels logical channels to device nodes by serial,
// and locates the control channel by ctrChannelSerialNo, falling back to
// device 0 with ControlFellBack=true if that serial isn't present.
func Resolve(lister SerialLister, numChannels, ctrChannelSerialNo, secondaryCtrChannelSerialNo int) (Resolved, error) {
	return ResolveWithOverrides(lister, numChannels, ctrChannelSerialNo, secondaryCtrChannelSerialNo, nil)
}

// ResolveWithOverrides is Resolve, but a channel index present in
// serialOverrides is looked up by that serial instead of the default
// "1000+index" convention (used by the optional hw.yaml chassis
// descriptor).
func ResolveWithOverrides(lister SerialLister, numChannels, ctrChannelSerialNo, secondaryCtrChannelSerialNo int, serialOverrides map[int]string) (Resolved, error) {
	serials, err := lister.ListSerials()
	if err != nil {
		return Resolved{}, err
	}

	res := Resolved{DeviceNode: make([]string, numChannels)}
	channelSerials := make([]string, numChannels)

	for i := 0; i < numChannels; i++ {
		serial := ChannelSerial(i)
		if override, ok := serialOverrides[i]; ok {
			serial = override
		}

		node, ok := serials[serial]
		if !ok {
			return Resolved{}, fmt.Errorf("discovery: missing device with serial %q for channel %d", serial, i)
		}

		res.DeviceNode[i] = node
		channelSerials[i] = serial
	}

	ctrSerial := fmt.Sprintf("%d", ctrChannelSerialNo)
	if _, ok := serials[ctrSerial]; ok {
		for i := 0; i < numChannels; i++ {
			if channelSerials[i] == ctrSerial {
				res.ControlChannel = i
				break
			}
		}
	} else {
		res.ControlChannel = 0
		res.ControlFellBack = true
	}

	if secondaryCtrChannelSerialNo != 0 {
		secSerial := fmt.Sprintf("%d", secondaryCtrChannelSerialNo)
		found := false

		for i := 0; i < numChannels; i++ {
			if channelSerials[i] == secSerial {
				res.SecondaryCtrChannel = i
				found = true

				break
			}
		}

		if !found {
			res.SecondaryCtrMissing = true
		}
	}

	return res, nil
}
