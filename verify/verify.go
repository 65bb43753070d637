// Package verify implements the verification engine of spec.md §4.6:
// canonicalisation of the signed text, construction of the RFC 4880
// §5.2.4 hash input, SHA-256, the RSA public operation, PKCS#1 v1.5
// EMSA unwrap, and the final digest-equality decision. The engine is
// stateless; concurrent verifications share no data.
package verify

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"
	"strings"

	"nullprogram.com/x/pgpkit/bignat"
	"nullprogram.com/x/pgpkit/packet"
	"nullprogram.com/x/pgpkit/pgperror"
)

// CanonicalizeToCRLF converts a cleartext to CRLF line endings per
// spec.md §4.6 step 1 / §9: every LF not already preceded by CR becomes
// CRLF. A file already using CRLF is left unchanged (CRLF is first
// normalised down to LF, then LF is converted back up to CRLF), per the
// corrected behaviour spec.md §9 calls for.
func CanonicalizeToCRLF(text string) string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(normalized, "\n", "\r\n")
}

// BuildHashInput assembles the exact byte stream SHA-256 is computed
// over, per RFC 4880 §5.2.4 / spec.md §4.6 steps 1-4.
func BuildHashInput(cleartext string, sig *packet.SignaturePacket) []byte {
	canonical := CanonicalizeToCRLF(cleartext)

	var buf []byte
	buf = append(buf, canonical...)

	// Signature preamble: version, signature_type, public_key_algorithm,
	// hash_algorithm.
	buf = append(buf, sig.Version, sig.SignatureType, sig.PublicKeyAlgorithm, sig.HashAlgorithm)

	// Hashed sub-packet length plus data.
	buf = append(buf, bignat.WriteLengthTagged(sig.HashedSubpacketData)...)

	// V4 trailer: 0x04 0xFF followed by the byte count of the preamble
	// (4 bytes) plus the hashed sub-packet length field (2 bytes) plus
	// the hashed sub-packet data itself.
	trailerLen := uint32(6 + len(sig.HashedSubpacketData))
	buf = append(buf, 0x04, 0xFF)
	var lenBytes [4]byte
	binary.BigEndian.PutUint32(lenBytes[:], trailerLen)
	buf = append(buf, lenBytes[:]...)

	return buf
}

// QuickRejectHashHead compares the first two bytes of a computed digest
// against a signature's signed_hash_value_head. This is the
// SPEC_FULL.md-supplemented cheap pre-check from the original
// implementation (see SPEC_FULL.md §1): it is an optimisation only, and
// a true result here never substitutes for the full RSA+PKCS#1 check.
// Verify does not call it.
func QuickRejectHashHead(digest []byte, sig *packet.SignaturePacket) bool {
	if len(digest) < 2 {
		return false
	}
	head := uint16(digest[0])<<8 | uint16(digest[1])
	return head == sig.SignedHashValueHead
}

// PublicKey is the minimal { n, e } shape the verify engine needs; it is
// satisfied by rsakey.PublicKey and packet.PublicKeyPacket alike.
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// Verify checks a signature packet against a cleartext and public key,
// per spec.md §4.6. A clean digest mismatch is returned as false with an
// error of kind pgperror.SignatureInvalid; every other failure is an
// error of a different kind (malformed input, unsupported algorithm).
// It never returns (false, nil).
func Verify(cleartext string, sig *packet.SignaturePacket, pub PublicKey) (bool, error) {
	if sig.Version != 4 {
		return false, pgperror.New(pgperror.UnsupportedAlgorithm, "signature version %d, want 4", sig.Version)
	}
	if sig.PublicKeyAlgorithm != 1 {
		return false, pgperror.New(pgperror.UnsupportedAlgorithm, "public-key algorithm %d, want RSA(1)", sig.PublicKeyAlgorithm)
	}
	if sig.HashAlgorithm != 8 {
		return false, pgperror.New(pgperror.UnsupportedAlgorithm, "hash algorithm %d, want SHA-256(8)", sig.HashAlgorithm)
	}
	if len(sig.Signature) != 1 {
		return false, pgperror.New(pgperror.MalformedPacket, "RSA signature must carry exactly one MPI, got %d", len(sig.Signature))
	}

	hashInput := BuildHashInput(cleartext, sig)
	digest := sha256.Sum256(hashInput)

	s := sig.Signature[0]
	m := new(big.Int).Exp(s, pub.E, pub.N)

	// The canonical EM is "00 01 FF...FF 00 <DigestInfo>" at full modulus
	// width; its leading 0x00 carries no numeric weight, so m.Bytes()
	// already yields exactly that string minus the leading zero byte,
	// starting at the 0x01 UnwrapEMSAPKCS1v15SHA256 expects.
	em := m.Bytes()

	got, err := bignat.UnwrapEMSAPKCS1v15SHA256(em)
	if err != nil {
		return false, err
	}

	if !bytesEqual(got, digest[:]) {
		return false, pgperror.New(pgperror.SignatureInvalid, "digest mismatch")
	}
	return true, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
