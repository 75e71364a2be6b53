package gpio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLine struct {
	value  int
	closed bool
}

func (f *fakeLine) SetValue(v int) error {
	f.value = v
	return nil
}

func (f *fakeLine) Close() error {
	f.closed = true
	return nil
}

func TestNoiseSourceSetState(t *testing.T) {
	line := &fakeLine{}
	ns := newWithLine(line)

	require.NoError(t, ns.SetState(context.Background(), true))
	require.Equal(t, 1, line.value)

	require.NoError(t, ns.SetState(context.Background(), false))
	require.Equal(t, 0, line.value)

	require.NoError(t, ns.Close())
	require.True(t, line.closed)
}
