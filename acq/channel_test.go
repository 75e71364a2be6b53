package acq

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRingWriteReadSlotWraps(t *testing.T) {
	r := NewRing(4)

	for i := uint64(0); i < 20; i++ {
		slot := r.WriteSlot(i)
		require.Len(t, slot, 4)
		copy(slot, []byte{byte(i), byte(i), byte(i), byte(i)})
	}

	// The aligner reading emitIndex 12 should see what blocksProduced=12
	// wrote, since 12 is still within the last 8 blocks produced (19).
	got := r.ReadSlot(12)
	require.Equal(t, []byte{12, 12, 12, 12}, got)
}

func TestChannelRecordBlocksProducedIsProducerOwned(t *testing.T) {
	c := NewChannelRecord(0, 8)
	require.Equal(t, uint64(0), c.BlocksProduced())

	got := c.advance()
	require.Equal(t, uint64(1), got)
	require.Equal(t, uint64(1), c.BlocksProduced())
}
