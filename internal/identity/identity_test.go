package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress_RoundTrip(t *testing.T) {
	in := "0x1e593f1fe7b61c53874b54ec0c59fd0d5eb8621e"
	a, err := ParseAddress(in)
	require.NoError(t, err)
	assert.Equal(t, in, a.String())
}

func TestParseAddress_NoPrefix(t *testing.T) {
	a, err := ParseAddress("1e593f1fe7b61c53874b54ec0c59fd0d5eb8621e")
	require.NoError(t, err)
	assert.Equal(t, "0x1e593f1fe7b61c53874b54ec0c59fd0d5eb8621e", a.String())
}

func TestParseAddress_Invalid(t *testing.T) {
	cases := []string{"", "0x", "0x1234", "0xzz593f1fe7b61c53874b54ec0c59fd0d5eb8621e"}
	for _, c := range cases {
		_, err := ParseAddress(c)
		assert.Error(t, err, "input %q", c)
	}
}

func TestAddress_IsZero(t *testing.T) {
	assert.True(t, ZeroAddress.IsZero())
	a := MustParseAddress("0x0000000000000000000000000000000000000001")
	assert.False(t, a.IsZero())
}

func TestAddress_TextMarshaling(t *testing.T) {
	a := MustParseAddress("0xE3D8bd6Aed4F159bc8000a9cD47CffDb95F96121")
	text, err := a.MarshalText()
	require.NoError(t, err)

	var back Address
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, a, back)
}

func TestAddressFromPubkey_RejectsCompressed(t *testing.T) {
	compressed := make([]byte, 33)
	compressed[0] = 0x02
	_, err := AddressFromPubkey(compressed)
	assert.Error(t, err)
}

func TestNormalizeAsset(t *testing.T) {
	a, err := NormalizeAsset("  cUSD ")
	require.NoError(t, err)
	assert.Equal(t, Asset("cUSD"), a)

	// NFC: decomposed e + combining acute composes to the same asset as
	// the precomposed form.
	decomposed, err := NormalizeAsset("e\u0301TOK")
	require.NoError(t, err)
	precomposed, err := NormalizeAsset("\u00e9TOK")
	require.NoError(t, err)
	assert.Equal(t, precomposed, decomposed)
}

func TestNormalizeAsset_Empty(t *testing.T) {
	_, err := NormalizeAsset("   ")
	assert.Error(t, err)
}

func TestNormalizeAsset_CaseSensitive(t *testing.T) {
	a, _ := NormalizeAsset("cUSD")
	b, _ := NormalizeAsset("CUSD")
	assert.NotEqual(t, a, b)
}
