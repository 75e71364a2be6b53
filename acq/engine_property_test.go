package acq_test

/*------------------------------------------------------------------
 *
 * Purpose:	Property-based coverage of block-index and overdrive
 *		invariants across randomized channel counts, buffer sizes,
 *		and overdrive placements.
 *
 *---------------------------------------------------------------*/

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tve-daq/heimdall-coredaq/acq"
)

func TestPropertyBlockIndexAndOverdrive(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 6).Draw(rt, "n")
		daqBufferSize := rapid.IntRange(1, 32).Draw(rt, "daqBufferSize")
		frameCount := rapid.IntRange(1, 5).Draw(rt, "frameCount")

		h := newHarness(t, n, daqBufferSize)
		defer h.stop()

		headerSize := acq.HeaderSize()
		payload := n * 2 * daqBufferSize

		var overdriveWant []uint32

		for f := 0; f < frameCount; f++ {
			data := constData(n, daqBufferSize, 0x01)

			want := uint32(0)

			for ch := 0; ch < n; ch++ {
				if rapid.Bool().Draw(rt, "overdrive") {
					data[ch][0] = 0xff
					want |= 1 << uint(ch)
				}
			}

			overdriveWant = append(overdriveWant, want)

			h.produceFrame(data)
			h.waitBytes(framesBytes(headerSize, 0, f+1, payload))
		}

		raw := h.waitBytes(framesBytes(headerSize, 0, frameCount, payload))
		r := bytes.NewReader(raw)

		for f := 0; f < frameCount; f++ {
			hdr, _, _ := readFrame(t, r)
			require.Equal(t, uint64(f), hdr.DAQBlockIndex)
			require.Equal(t, overdriveWant[f], hdr.OverdriveFlags)
			require.Equal(t, acq.FrameTypeData, hdr.FrameType)
		}
	})
}
