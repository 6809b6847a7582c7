package chains

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	eip55Lower    = "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	eip55Checksum = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	zeroAddress   = "0x0000000000000000000000000000000000000000"
)

func TestParseCaip10(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())

	tests := []struct {
		name  string
		value string
		want  Caip10
		ok    bool
	}{
		{
			name:  "known chain",
			value: "eip155:8453:" + eip55Checksum,
			want:  Caip10{ChainID: "eip155:8453", Address: eip55Checksum, IsKnownChain: true},
			ok:    true,
		},
		{
			name:  "known chain with surrounding whitespace",
			value: "  eip155:1:0x1234  ",
			want:  Caip10{ChainID: "eip155:1", Address: "0x1234", IsKnownChain: true},
			ok:    true,
		},
		{
			name:  "unknown namespace keeps raw prefix",
			value: "bogus:1:0x1234",
			want:  Caip10{ChainID: "bogus:1", Address: "0x1234", IsKnownChain: false},
			ok:    true,
		},
		{
			name:  "unknown eip155 reference keeps raw prefix",
			value: "eip155:999999:0xabc",
			want:  Caip10{ChainID: "eip155:999999", Address: "0xabc", IsKnownChain: false},
			ok:    true,
		},
		{
			name:  "address containing colons is not truncated",
			value: "eip155:10:0xabc:extra:part",
			want:  Caip10{ChainID: "eip155:10", Address: "0xabc:extra:part", IsKnownChain: true},
			ok:    true,
		},
		{name: "no colons", value: "no-colons-here", ok: false},
		{name: "two segments", value: "eip155:1", ok: false},
		{name: "empty address", value: "a:b:", ok: false},
		{name: "blank address", value: "eip155:1:   ", ok: false},
		{name: "empty", value: "", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := resolver.ParseCaip10(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildCaip10(t *testing.T) {
	resolver := NewResolver(DefaultRegistry())

	tests := []struct {
		name    string
		chainID string
		address string
		want    string
	}{
		{
			name:    "zero address is its own checksum",
			chainID: "eip155:1",
			address: zeroAddress,
			want:    "eip155:1:" + zeroAddress,
		},
		{
			name:    "lower case address is checksummed",
			chainID: "eip155:1",
			address: eip55Lower,
			want:    "eip155:1:" + eip55Checksum,
		},
		{
			name:    "chain token is normalized",
			chainID: "base",
			address: eip55Lower,
			want:    "eip155:8453:" + eip55Checksum,
		},
		{
			name:    "unknown chain used verbatim",
			chainID: "cosmos:cosmoshub-4",
			address: "cosmos1abc",
			want:    "cosmos:cosmoshub-4:cosmos1abc",
		},
		{
			name:    "address is trimmed",
			chainID: "10",
			address: "  " + eip55Lower + " ",
			want:    "eip155:10:" + eip55Checksum,
		},
		{
			name:    "bad mixed-case checksum falls back to input",
			chainID: "eip155:1",
			address: "0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
			want:    "eip155:1:0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		},
		{
			name:    "non-hex characters fall back to input",
			chainID: "eip155:1",
			address: "0xzz00000000000000000000000000000000000000",
			want:    "eip155:1:0xzz00000000000000000000000000000000000000",
		},
		{
			name:    "short address is left alone",
			chainID: "eip155:1",
			address: "0xabc",
			want:    "eip155:1:0xabc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.BuildCaip10(tt.chainID, tt.address))
		})
	}
}

func TestBuildCaip10_ChecksumFailureDegrades(t *testing.T) {
	failing := NewResolver(DefaultRegistry(), WithChecksummer(func(string) (string, error) {
		return "", errors.New("checksum service down")
	}))
	assert.Equal(t, "eip155:1:"+eip55Lower, failing.BuildCaip10("1", eip55Lower))

	panicking := NewResolver(DefaultRegistry(), WithChecksummer(func(string) (string, error) {
		panic("unexpected")
	}))
	assert.Equal(t, "eip155:1:"+eip55Lower, panicking.BuildCaip10("1", eip55Lower))
}

func TestChecksumAddress(t *testing.T) {
	got, err := ChecksumAddress(eip55Lower)
	require.NoError(t, err)
	assert.Equal(t, eip55Checksum, got)

	got, err = ChecksumAddress(eip55Checksum)
	require.NoError(t, err)
	assert.Equal(t, eip55Checksum, got)

	_, err = ChecksumAddress("0x5AAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	assert.ErrorIs(t, err, ErrBadChecksum)

	_, err = ChecksumAddress("0x1234")
	assert.Error(t, err)
}

func TestCaip10_String(t *testing.T) {
	c := Caip10{ChainID: "eip155:1", Address: zeroAddress, IsKnownChain: true}
	assert.Equal(t, "eip155:1:"+zeroAddress, c.String())
}
