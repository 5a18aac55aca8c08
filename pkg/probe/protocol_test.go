package probe

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProtocolString(t *testing.T) {
	tests := []struct {
		proto Protocol
		want  string
	}{
		{TLS10, "TLS 1.0"},
		{TLS11, "TLS 1.1"},
		{TLS12, "TLS 1.2"},
		{TLS13, "TLS 1.3"},
		{Protocol(0x0300), "TLS(0x0300)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.proto.String())
	}
}

func TestProtocolMatchesCryptoTLS(t *testing.T) {
	assert.EqualValues(t, tls.VersionTLS10, TLS10)
	assert.EqualValues(t, tls.VersionTLS11, TLS11)
	assert.EqualValues(t, tls.VersionTLS12, TLS12)
	assert.EqualValues(t, tls.VersionTLS13, TLS13)
}

func TestDefaultProtocols(t *testing.T) {
	got := DefaultProtocols()
	assert.Equal(t, []Protocol{TLS10, TLS11, TLS12}, got)
	assert.NotContains(t, got, TLS13, "1.3 is opt-in only")
}

func TestProtocolsFromFlags(t *testing.T) {
	tests := []struct {
		name                       string
		tls10, tls11, tls12, tls13 bool
		want                       []Protocol
	}{
		{name: "none selected means default", want: DefaultProtocols()},
		{name: "single version", tls11: true, want: []Protocol{TLS11}},
		{name: "sparse selection stays ascending", tls10: true, tls12: true, want: []Protocol{TLS10, TLS12}},
		{name: "1.3 only when asked", tls11: true, tls13: true, want: []Protocol{TLS11, TLS13}},
		{name: "all four ascending", tls10: true, tls11: true, tls12: true, tls13: true, want: []Protocol{TLS10, TLS11, TLS12, TLS13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProtocolsFromFlags(tt.tls10, tt.tls11, tt.tls12, tt.tls13)
			assert.Equal(t, tt.want, got)
		})
	}
}
