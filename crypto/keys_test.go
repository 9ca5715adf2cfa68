package crypto

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte{0x42}, 20)
	addr := MustNewAddress(AccountPrefix, raw)
	encoded := addr.String()
	require.True(t, strings.HasPrefix(encoded, "ap1"))

	decoded, err := DecodeAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, AccountPrefix, decoded.Prefix())
	require.Equal(t, raw, decoded.Bytes())
}

func TestParseAddressAcceptsHexAndBech32(t *testing.T) {
	var want [20]byte
	want[19] = 0x07

	fromBech32, err := ParseAddress(FormatAddress(want))
	require.NoError(t, err)
	require.Equal(t, want, fromBech32)

	fromHex, err := ParseAddress("0x0000000000000000000000000000000000000007")
	require.NoError(t, err)
	require.Equal(t, want, fromHex)

	_, err = ParseAddress("0x1234")
	require.Error(t, err)
	_, err = ParseAddress("  ")
	require.Error(t, err)
}

func TestModuleAddressIsDeterministic(t *testing.T) {
	require.Equal(t, ModuleAddress("access"), ModuleAddress(" Access "))
	require.NotEqual(t, ModuleAddress("access"), ModuleAddress("custody"))
}

func TestGeneratedKeyDerivesAccountAddress(t *testing.T) {
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	restored, err := PrivateKeyFromBytes(key.Bytes())
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().String(), restored.PubKey().Address().String())
}

func TestKeyFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "admin.key")
	key, err := GeneratePrivateKey()
	require.NoError(t, err)
	require.NoError(t, SaveKeyFile(path, key))

	loaded, err := LoadKeyFile(path)
	require.NoError(t, err)
	require.Equal(t, key.PubKey().Address().Array(), loaded.PubKey().Address().Array())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}
