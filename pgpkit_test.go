package pgpkit

import (
	"context"
	"crypto/sha256"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nullprogram.com/x/pgpkit/armor"
	"nullprogram.com/x/pgpkit/bignat"
	"nullprogram.com/x/pgpkit/packet"
	"nullprogram.com/x/pgpkit/verify"
)

func TestMessageEncryptDecryptRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	m := NewPlaintext([]byte("hello, world!!!\n"))
	require.True(t, m.IsPlaintext())

	enc := m.Encrypt(pub)
	require.True(t, enc.IsCiphertext())

	dec := enc.Decrypt(priv)
	require.True(t, dec.IsPlaintext())
	assert.Equal(t, m.Bytes(), dec.Bytes())
}

func TestMessageEncryptOnCiphertextIsNoOp(t *testing.T) {
	pub, _, err := GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	c := NewCiphertext([]byte("already ciphertext"))
	again := c.Encrypt(pub)
	assert.Equal(t, c, again)
}

func TestMessageDecryptOnPlaintextIsNoOp(t *testing.T) {
	_, priv, err := GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	p := NewPlaintext([]byte("already plaintext"))
	again := p.Decrypt(priv)
	assert.Equal(t, p, again)
}

func TestPublicKeyArmorRoundTripsThroughPacketParser(t *testing.T) {
	pub, _, err := GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	armored := PublicKeyArmor(pub)
	assert.Contains(t, armored, "-----BEGIN PGP PUBLIC KEY BLOCK-----")

	body, err := armor.ParsePublicKeyBlock(armored)
	require.NoError(t, err)

	packets, err := packet.ParseStream(body)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	require.NotNil(t, packets[0].PublicKey)
	assert.Equal(t, 0, packets[0].PublicKey.N.Cmp(pub.N))
	assert.Equal(t, 0, packets[0].PublicKey.E.Cmp(pub.E))
}

// buildCleartextArmor assembles a full cleartext-signature armor string
// signed with priv, for exercising VerifyCleartext end-to-end.
func buildCleartextArmor(t *testing.T, cleartext string, pub PublicKey, priv PrivateKey) string {
	t.Helper()
	sig := &packet.SignaturePacket{
		Version:               4,
		SignatureType:         0x01,
		PublicKeyAlgorithm:    1,
		HashAlgorithm:         8,
		HashedSubpacketData:   []byte{0x02, 0x05, 0x02, 0x00, 0x00, 0x00, 0x00},
		UnhashedSubpacketData: []byte{},
	}
	hashInput := verify.BuildHashInput(cleartext, sig)
	digest := sha256.Sum256(hashInput)
	sig.SignedHashValueHead = uint16(digest[0])<<8 | uint16(digest[1])

	modBytes := (pub.N.BitLen() + 7) / 8
	em, err := bignat.WrapEMSAPKCS1v15SHA256(digest[:], modBytes)
	require.NoError(t, err)
	c := new(big.Int).Exp(new(big.Int).SetBytes(em), priv.D, priv.N)
	sig.Signature = []*big.Int{c}

	sigBody := []byte{sig.Version, sig.SignatureType, sig.PublicKeyAlgorithm, sig.HashAlgorithm}
	sigBody = append(sigBody, bignat.WriteLengthTagged(sig.HashedSubpacketData)...)
	sigBody = append(sigBody, bignat.WriteLengthTagged(sig.UnhashedSubpacketData)...)
	sigBody = append(sigBody, byte(sig.SignedHashValueHead>>8), byte(sig.SignedHashValueHead))
	sigBody = append(sigBody, bignat.WriteMPI(sig.Signature[0])...)
	sigPacket := append(oldFormatPacketHeader(int(packet.TagSignature), len(sigBody)), sigBody...)

	var b strings.Builder
	b.WriteString("-----BEGIN PGP SIGNED MESSAGE-----\n")
	b.WriteString("Hash: SHA256\n")
	b.WriteString("\n")
	for _, line := range strings.Split(cleartext, "\n") {
		if strings.HasPrefix(line, "-") {
			b.WriteString("- ")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(armor.EncodeSignature(sigPacket))
	return b.String()
}

func TestVerifyCleartextEndToEnd(t *testing.T) {
	pub, priv, err := GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	cleartext := "the quick brown fox"
	armored := buildCleartextArmor(t, cleartext, pub, priv)
	pubArmor := PublicKeyArmor(pub)

	ok, err := VerifyCleartext(armored, pubArmor)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyCleartextDetectsTamperedFirstWord(t *testing.T) {
	pub, priv, err := GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	cleartext := "apple pie"
	armored := buildCleartextArmor(t, cleartext, pub, priv)
	pubArmor := PublicKeyArmor(pub)

	tampered := strings.Replace(armored, "apple pie", "Apple pie", 1)

	ok, err := VerifyCleartext(tampered, pubArmor)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyCleartextCorruptedBase64SignatureIsChecksumError(t *testing.T) {
	pub, priv, err := GenerateKeypair(context.Background(), 1024)
	require.NoError(t, err)

	cleartext := "line one"
	armored := buildCleartextArmor(t, cleartext, pub, priv)
	pubArmor := PublicKeyArmor(pub)

	lines := strings.Split(armored, "\n")
	for i, l := range lines {
		if len(l) == 64 { // a full base64 body line
			b := []byte(l)
			if b[0] == 'A' {
				b[0] = 'B'
			} else {
				b[0] = 'A'
			}
			lines[i] = string(b)
			break
		}
	}
	corrupted := strings.Join(lines, "\n")

	_, err = VerifyCleartext(corrupted, pubArmor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum mismatch")
}
