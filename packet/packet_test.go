package packet

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nullprogram.com/x/pgpkit/bignat"
)

// buildOldFormatHeader encodes an old-format packet header with a 2-byte
// length field (length-type 1), the simplest width that covers our test
// bodies.
func buildOldFormatHeader(tag int, bodyLen int) []byte {
	first := byte(0x80 | (tag << 2) | 1)
	return []byte{first, byte(bodyLen >> 8), byte(bodyLen)}
}

func TestParseStreamPublicKeyPacket(t *testing.T) {
	n := big.NewInt(123456789)
	e := big.NewInt(65537)
	body := []byte{4, 0, 0, 0, 0, 1} // version, created(4), algo=RSA(1)
	body = append(body, bignat.WriteMPI(n)...)
	body = append(body, bignat.WriteMPI(e)...)

	data := append(buildOldFormatHeader(int(TagPublicKey), len(body)), body...)

	packets, err := ParseStream(data)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	require.NotNil(t, packets[0].PublicKey)
	assert.Equal(t, 0, packets[0].PublicKey.N.Cmp(n))
	assert.Equal(t, 0, packets[0].PublicKey.E.Cmp(e))
}

func TestParseStreamSignaturePacket(t *testing.T) {
	hashed := []byte{0x02, 0x02, 0x00, 0x00, 0x00} // fake creation-time subpacket
	unhashed := []byte{}
	sigMPI := big.NewInt(987654321)

	body := []byte{4, 0x00, 1, 8} // version, sigtype=binary, algo=RSA, hash=SHA256
	body = append(body, bignat.WriteLengthTagged(hashed)...)
	body = append(body, bignat.WriteLengthTagged(unhashed)...)
	body = append(body, 0xAB, 0xCD) // signed_hash_value_head
	body = append(body, bignat.WriteMPI(sigMPI)...)

	data := append(buildOldFormatHeader(int(TagSignature), len(body)), body...)

	packets, err := ParseStream(data)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	sig := packets[0].Signature
	require.NotNil(t, sig)
	assert.Equal(t, uint8(4), sig.Version)
	assert.Equal(t, uint8(0x00), sig.SignatureType)
	assert.Equal(t, uint8(1), sig.PublicKeyAlgorithm)
	assert.Equal(t, uint8(8), sig.HashAlgorithm)
	assert.Equal(t, hashed, sig.HashedSubpacketData)
	assert.Equal(t, uint16(0xABCD), sig.SignedHashValueHead)
	require.Len(t, sig.Signature, 1)
	assert.Equal(t, 0, sig.Signature[0].Cmp(sigMPI))
}

func TestParseStreamRejectsIndeterminateLength(t *testing.T) {
	first := byte(0x80 | (int(TagUserID) << 2) | 3)
	_, err := ParseStream([]byte{first, 1, 2, 3})
	require.Error(t, err)
}

func TestParseStreamRejectsTruncatedBody(t *testing.T) {
	header := buildOldFormatHeader(int(TagUserID), 10)
	_, err := ParseStream(append(header, []byte{1, 2, 3}...))
	require.Error(t, err)
}

func TestParseStreamUnknownTagIsOpaque(t *testing.T) {
	body := []byte{0xde, 0xad, 0xbe, 0xef}
	data := append(buildOldFormatHeader(3, len(body)), body...)
	packets, err := ParseStream(data)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, body, packets[0].Body)
	assert.Nil(t, packets[0].Signature)
	assert.Nil(t, packets[0].PublicKey)
}

func TestParseStreamMultiplePackets(t *testing.T) {
	uidBody := []byte("Alice <alice@example.com>")
	uid := append(buildOldFormatHeader(int(TagUserID), len(uidBody)), uidBody...)

	subBody := []byte{4, 0, 0, 0, 0, 1}
	subBody = append(subBody, bignat.WriteMPI(big.NewInt(42))...)
	subBody = append(subBody, bignat.WriteMPI(big.NewInt(65537))...)
	sub := append(buildOldFormatHeader(int(TagPublicSubkey), len(subBody)), subBody...)

	packets, err := ParseStream(append(uid, sub...))
	require.NoError(t, err)
	require.Len(t, packets, 2)
	assert.Equal(t, int(TagUserID), packets[0].Tag)
	assert.Equal(t, uidBody, packets[0].Body)
	assert.Equal(t, int(TagPublicSubkey), packets[1].Tag)
}
