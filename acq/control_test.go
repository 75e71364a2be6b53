package acq

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeCommandRetune(t *testing.T) {
	var buf bytes.Buffer

	buf.WriteByte(OpRetune)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(433_000_000)))

	cmd, err := decodeCommand(&buf, 4)
	require.NoError(t, err)
	require.Equal(t, OpRetune, cmd.Op)
	require.Equal(t, uint64(433_000_000), cmd.CenterFreqHz)
}

func TestDecodeCommandRegain(t *testing.T) {
	var buf bytes.Buffer

	buf.WriteByte(OpRegain)
	gains := []int32{10, -5, 30, 0}
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, gains))

	cmd, err := decodeCommand(&buf, 4)
	require.NoError(t, err)
	require.Equal(t, gains, cmd.Gains)
}

func TestDecodeCommandReconfigureTuner(t *testing.T) {
	var buf bytes.Buffer

	buf.WriteByte(OpReconfigureTuner)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(100_000_000)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(2_000_000)))
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, int32(-20)))

	cmd, err := decodeCommand(&buf, 4)
	require.NoError(t, err)
	require.Equal(t, uint64(100_000_000), cmd.CenterFreqHz)
	require.Equal(t, uint64(2_000_000), cmd.SampleRateHz)
	require.Equal(t, int32(-20), cmd.GainTenthDB)
}

func TestDecodeCommandNoArgOpcodes(t *testing.T) {
	for _, op := range []byte{OpNoiseOn, OpNoiseOff, OpHalt} {
		cmd, err := decodeCommand(bytes.NewReader([]byte{op}), 4)
		require.NoError(t, err)
		require.Equal(t, op, cmd.Op)
	}
}

func TestDecodeCommandUnknownOpcode(t *testing.T) {
	_, err := decodeCommand(bytes.NewReader([]byte{'z'}), 4)
	require.Error(t, err)
	require.True(t, errors.Is(err, errUnknownOpcode))
}

func TestDecodeCommandShortRead(t *testing.T) {
	_, err := decodeCommand(bytes.NewReader(nil), 4)
	require.True(t, errors.Is(err, io.EOF))
}
