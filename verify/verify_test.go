package verify

import (
	"context"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nullprogram.com/x/pgpkit/bignat"
	"nullprogram.com/x/pgpkit/packet"
	"nullprogram.com/x/pgpkit/rsakey"
)

// testSign builds a signature packet over cleartext using priv. This is
// test-only plumbing: signature *creation* is out of the public façade's
// scope (spec.md §1 Non-goals), but the verify engine still needs a
// known-good signature to exercise against.
func testSign(t *testing.T, cleartext string, pub rsakey.PublicKey, priv rsakey.PrivateKey) *packet.SignaturePacket {
	t.Helper()
	sig := &packet.SignaturePacket{
		Version:               4,
		SignatureType:         0x01,
		PublicKeyAlgorithm:    1,
		HashAlgorithm:         8,
		HashedSubpacketData:   []byte{0x02, 0x05, 0x02, 0x00, 0x00, 0x00, 0x00},
		UnhashedSubpacketData: []byte{},
	}
	hashInput := BuildHashInput(cleartext, sig)
	digest := sha256.Sum256(hashInput)
	sig.SignedHashValueHead = uint16(digest[0])<<8 | uint16(digest[1])

	modBytes := (pub.N.BitLen() + 7) / 8
	em, err := bignat.WrapEMSAPKCS1v15SHA256(digest[:], modBytes)
	require.NoError(t, err)

	c := new(big.Int).Exp(new(big.Int).SetBytes(em), priv.D, priv.N)
	sig.Signature = []*big.Int{c}
	return sig
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	pub, priv, err := rsakey.GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	cleartext := "hello\nworld"
	sig := testSign(t, cleartext, pub, priv)

	ok, err := Verify(cleartext, sig, PublicKey{N: pub.N, E: pub.E})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsTamperedCleartext(t *testing.T) {
	pub, priv, err := rsakey.GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	cleartext := "hello\nworld"
	sig := testSign(t, cleartext, pub, priv)

	ok, err := Verify("Hello\nworld", sig, PublicKey{N: pub.N, E: pub.E})
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "invalid signature")
}

func TestVerifyRejectsUnsupportedAlgorithm(t *testing.T) {
	pub, priv, err := rsakey.GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	cleartext := "hello"
	sig := testSign(t, cleartext, pub, priv)
	sig.HashAlgorithm = 2 // SHA-1, unsupported

	_, err = Verify(cleartext, sig, PublicKey{N: pub.N, E: pub.E})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported")
}

func TestCanonicalizeToCRLFDoesNotDoubleConvert(t *testing.T) {
	assert.Equal(t, "a\r\nb\r\n", CanonicalizeToCRLF("a\nb\n"))
	assert.Equal(t, "a\r\nb\r\n", CanonicalizeToCRLF("a\r\nb\r\n"))
	assert.Equal(t, "a\r\nb\r\n", CanonicalizeToCRLF("a\r\nb\n"))
}
