package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalHostIP(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "ipv4", input: "192.168.1.10", want: "192.168.1.10"},
		{name: "ipv4_spaces", input: "  10.0.0.5 ", want: "10.0.0.5"},
		{name: "ipv6_compressed", input: "2001:0db8:0000:0000:0000:0000:0000:0001", want: "2001:db8::1"},
		{name: "ipv4_mapped", input: "::ffff:192.0.2.1", want: "192.0.2.1"},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "999.1.1.1", wantErr: true},
		{name: "with_port", input: "10.0.0.1:80", wantErr: true},
		{name: "with_zone", input: "fe80::1%eth0", wantErr: true},
		{name: "cidr", input: "10.0.0.0/24", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalHostIP(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInferSubnet24(t *testing.T) {
	assert.Equal(t, "192.168.1.0/24", InferSubnet24("192.168.1.77"))
	assert.Equal(t, "10.0.0.0/24", InferSubnet24("::ffff:10.0.0.9"))
	assert.Equal(t, "", InferSubnet24("2001:db8::1"))
	assert.Equal(t, "", InferSubnet24("not-an-ip"))
}

func TestNormalizeIP(t *testing.T) {
	assert.Equal(t, "203.0.113.7", NormalizeIP("203.0.113.7, 10.0.0.1"))
	assert.Equal(t, "203.0.113.7", NormalizeIP("203.0.113.7:5555"))
	assert.Equal(t, "2001:db8::1", NormalizeIP("[2001:db8::1]:443"))
	assert.Equal(t, "", NormalizeIP(""))
}

func TestNormalizeMAC(t *testing.T) {
	got, err := NormalizeMAC("00-1a-2b-3c-4d-5e")
	assert.NoError(t, err)
	assert.Equal(t, "00:1A:2B:3C:4D:5E", got)

	got, err = NormalizeMAC("aa:bb:cc:dd:ee:ff")
	assert.NoError(t, err)
	assert.Equal(t, "AA:BB:CC:DD:EE:FF", got)

	for _, bad := range []string{"", "001A2B3C4D5E", "00:1A:2B:3C:4D", "00:1A:2B:3C:4D:ZZ", "00.1A.2B.3C.4D.5E"} {
		_, err := NormalizeMAC(bad)
		assert.Error(t, err, bad)
	}
}

func TestPlaceholderAndOUI(t *testing.T) {
	assert.True(t, IsPlaceholderMAC("00:00:00:00:00:00"))
	assert.True(t, IsPlaceholderMAC("FF:FF:FF:FF:FF:FF"))
	assert.False(t, IsPlaceholderMAC("00:1A:2B:3C:4D:5E"))

	assert.Equal(t, "001A2B", OUIFromMAC("00:1A:2B:3C:4D:5E"))
	assert.Equal(t, "", OUIFromMAC("00:1A"))
}
