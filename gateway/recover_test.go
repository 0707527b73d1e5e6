package gateway_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easywave/rx22gw/gateway"
	"github.com/easywave/rx22gw/resetctl"
	"github.com/easywave/rx22gw/transport"
)

type fakeResetLine struct {
	asserted bool
	released bool
	pulse    resetctl.Duration
}

func (f *fakeResetLine) AssertReset(_ context.Context, pulse resetctl.Duration) error {
	f.asserted = true
	f.pulse = pulse
	return nil
}

func (f *fakeResetLine) Release(context.Context) error {
	f.released = true
	return nil
}

func TestRecoverWithoutResetLineFails(t *testing.T) {
	tr, _ := transport.NewSimulated(context.Background())
	g := gateway.NewWithTransport(context.Background(), tr)
	defer g.Close()

	err := g.Recover(context.Background(), 50)
	assert.ErrorIs(t, err, gateway.ErrNoResetLine)
}

func TestRecoverPulsesConfiguredResetLine(t *testing.T) {
	tr, _ := transport.NewSimulated(context.Background())
	line := &fakeResetLine{}
	g := gateway.NewWithTransport(context.Background(), tr, gateway.WithResetLine(line))
	defer g.Close()

	require.NoError(t, g.Recover(context.Background(), 50))
	assert.True(t, line.asserted)
	assert.True(t, line.released)
	assert.Equal(t, resetctl.Duration(50), line.pulse)
}
