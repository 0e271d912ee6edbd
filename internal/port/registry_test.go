package port

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git2.jad.ru/MeterRS485/rfc2217-client/internal/rfc2217"
)

func newTestRegistry() *Registry {
	r := NewRegistry()
	r.Register(DefaultScheme, RemoteFactory)
	return r
}

func TestRegistryNew(t *testing.T) {
	r := newTestRegistry()

	p, err := r.New("rfc2217://10.0.0.5:4001", Options{})
	require.NoError(t, err)
	remote, ok := p.(*RemotePort)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.5:4001", remote.Addr())
	assert.Nil(t, remote.opts.Settings)
}

func TestRegistryBareAddressUsesDefaultScheme(t *testing.T) {
	r := newTestRegistry()

	p, err := r.New("meter-gw:2217", Options{})
	require.NoError(t, err)
	assert.Equal(t, "meter-gw:2217", p.(*RemotePort).Addr())
}

func TestRegistryQueryOverridesSettings(t *testing.T) {
	r := newTestRegistry()
	base := DefaultSettings()

	p, err := r.New("RFC2217://host:4001?baud=115200&mode=7E2&flow=rtscts", Options{Settings: &base})
	require.NoError(t, err)

	got := p.(*RemotePort).opts.Settings
	require.NotNil(t, got)
	assert.Equal(t, Settings{
		BaudRate:    115200,
		DataBits:    rfc2217.DataBits7,
		Parity:      rfc2217.ParityEven,
		StopBits:    rfc2217.StopBits2,
		FlowControl: rfc2217.FlowRtsCtsInOut,
	}, *got)
	// caller's settings are not modified
	assert.Equal(t, DefaultSettings(), base)
}

func TestRegistryIgnoresUnrelatedQuery(t *testing.T) {
	r := newTestRegistry()

	p, err := r.New("rfc2217://host:4001?logging=debug", Options{})
	require.NoError(t, err)
	assert.Nil(t, p.(*RemotePort).opts.Settings)
}

func TestRegistryErrors(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name string
		url  string
	}{
		{"unknown scheme", "socket://host:4001"},
		{"bad baud", "rfc2217://host:4001?baud=fast"},
		{"bad mode", "rfc2217://host:4001?mode=8Q1"},
		{"bad flow", "rfc2217://host:4001?flow=dtr"},
		{"empty host", "rfc2217://"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.New(tt.url, Options{})
			assert.ErrorIs(t, err, rfc2217.ErrInvalidArgument)
		})
	}
}

func TestRegistrySchemes(t *testing.T) {
	r := newTestRegistry()
	r.Register("TCP", RemoteFactory)
	assert.Equal(t, []string{"rfc2217", "tcp"}, r.Schemes())

	r.Unregister("tcp")
	assert.Equal(t, []string{"rfc2217"}, r.Schemes())
}

func TestRegistryOpen(t *testing.T) {
	srv := newAccessServer(t)
	r := newTestRegistry()

	p, err := r.Open(context.Background(), "rfc2217://"+srv.addr()+"?baud=19200", testOptions())
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 19200, p.(*RemotePort).Settings().BaudRate)
	assert.Equal(t, "8N1", p.(*RemotePort).Settings().ModeString())
}
