package acq

/*------------------------------------------------------------------
 *
 * Purpose:	Fixed-layout binary header stamped onto every emitted frame.
 *
 * Description:	One IQHeader record is reused for the whole run and
 *		re-stamped before each frame goes out. Static fields
 *		(sync word, version, hardware identity) are filled once at
 *		startup; dynamic fields are overwritten per frame. Fields
 *		not named by the acquisition core are left zero for
 *		downstream stages (decimator/synchronizer) to fill in.
 *
 *---------------------------------------------------------------*/

import (
	"encoding/binary"
	"io"
)

// HeaderVersion is the only version this core ever emits.
const HeaderVersion uint32 = 7

// SyncWord opens every header so a downstream reader can resync the stream.
const SyncWord uint32 = 0x2bf7c6ae

// MaxChannels bounds the per-channel arrays carried in the fixed header.
const MaxChannels = 8

// Frame type codes.
const (
	FrameTypeData  uint32 = 0
	FrameTypeCal   uint32 = 1
	FrameTypeDummy uint32 = 2
)

// SampleBitDepth is fixed by the hardware: 8-bit unsigned IQ.
const SampleBitDepth uint32 = 8

// IQHeader is the fixed-layout record written ahead of every frame's
// payload slices. Field order is the wire order; the struct carries no
// padding the encoder doesn't already account for, and is written/read one
// field at a time in NativeEndian order, since the host running this
// engine and the downstream consumer reading the stream are co-located.
type IQHeader struct {
	SyncWord       uint32
	HeaderVersion  uint32
	HardwareID     [16]byte
	UnitID         uint32
	IOOType        uint32
	ActiveChannels uint32
	SampleBitDepth uint32

	// Dynamic, re-stamped every frame.
	FrameType        uint32
	DataType         uint32
	CenterFreqHz     uint64
	ADCSampleRateHz  uint64
	CPILength        uint32
	UnixTimeSeconds  uint64
	DAQBlockIndex    uint64
	IFGainsTenthDB   [MaxChannels]int32
	OverdriveFlags   uint32
	NoiseSourceState uint32

	// Reserved for downstream stages; always zero from this core.
	Reserved [64]byte
}

// headerWireOrder is the byte order the header is written in: host
// endianness, since producer and consumer are co-located.
var headerWireOrder = binary.NativeEndian

// WriteTo serializes the header in wire order. It implements io.WriterTo so
// callers can chain it with the payload writes in a single buffered pass.
func (h *IQHeader) WriteTo(w io.Writer) (int64, error) {
	if err := binary.Write(w, headerWireOrder, h); err != nil {
		return 0, err
	}

	return int64(binary.Size(h)), nil
}

// ReadFrom deserializes a header in wire order, for round-trip tests and
// for any downstream tooling written in this repo.
func (h *IQHeader) ReadFrom(r io.Reader) (int64, error) {
	if err := binary.Read(r, headerWireOrder, h); err != nil {
		return 0, err
	}

	return int64(binary.Size(h)), nil
}

// HeaderSize is the wire size in bytes of one IQHeader record.
func HeaderSize() int {
	return binary.Size(IQHeader{})
}

func stringToFixed16(s string) [16]byte {
	var out [16]byte
	copy(out[:], s)

	return out
}
