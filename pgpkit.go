// Package pgpkit is the public façade of spec.md §4.7: four operations —
// GenerateKeypair, Encrypt, Decrypt, and VerifyCleartext — composing the
// armor, packet, verify, and rsakey packages. It also defines the
// Message tagged variant from spec.md §3.
package pgpkit

import (
	"context"

	"nullprogram.com/x/pgpkit/armor"
	"nullprogram.com/x/pgpkit/bignat"
	"nullprogram.com/x/pgpkit/packet"
	"nullprogram.com/x/pgpkit/pgperror"
	"nullprogram.com/x/pgpkit/rsakey"
	"nullprogram.com/x/pgpkit/verify"
)

// PublicKey and PrivateKey re-export rsakey's types at the façade level
// so callers never need to import the rsakey package directly.
type PublicKey = rsakey.PublicKey
type PrivateKey = rsakey.PrivateKey

// state discriminates the two Message variants.
type state int

const (
	plaintext state = iota
	ciphertext
)

// Message is the tagged Plaintext/Ciphertext variant from spec.md §3.
// Transitions are pure: Encrypt and Decrypt return a new Message rather
// than mutating the receiver in place (see SPEC_FULL.md §9 for why this
// departs from the teacher's own in-place-mutation style for SignKey).
type Message struct {
	state state
	bytes []byte
}

// NewPlaintext wraps raw bytes as a Plaintext message.
func NewPlaintext(b []byte) Message {
	return Message{state: plaintext, bytes: b}
}

// NewCiphertext wraps raw bytes as a Ciphertext message.
func NewCiphertext(b []byte) Message {
	return Message{state: ciphertext, bytes: b}
}

// IsPlaintext reports whether m currently holds the Plaintext variant.
func (m Message) IsPlaintext() bool { return m.state == plaintext }

// IsCiphertext reports whether m currently holds the Ciphertext variant.
func (m Message) IsCiphertext() bool { return m.state == ciphertext }

// Bytes returns the raw payload, regardless of variant.
func (m Message) Bytes() []byte { return m.bytes }

// Encrypt transitions Plaintext -> Ciphertext under pub. Any other
// transition (encrypting an already-Ciphertext message) is a no-op,
// per spec.md §3/§4.2.
func (m Message) Encrypt(pub PublicKey) Message {
	if m.state != plaintext {
		return m
	}
	return NewCiphertext(rsakey.Encrypt(m.bytes, pub))
}

// Decrypt transitions Ciphertext -> Plaintext under priv. Any other
// transition (decrypting an already-Plaintext message) is a no-op.
func (m Message) Decrypt(priv PrivateKey) Message {
	if m.state != ciphertext {
		return m
	}
	return NewPlaintext(rsakey.Decrypt(m.bytes, priv))
}

// GenerateKeypair samples an RSA key pair per spec.md §4.2, using primes
// of at least bitsPerPrime bits each (1024 if bitsPerPrime is smaller).
func GenerateKeypair(ctx context.Context, bitsPerPrime int) (PublicKey, PrivateKey, error) {
	return rsakey.GenerateKeypair(ctx, bitsPerPrime)
}

// Encrypt is the façade form of spec.md §4.2's textbook RSA encrypt: it
// performs the raw transformation without a tagged Message wrapper, for
// callers that already track ciphertext/plaintext state themselves.
func Encrypt(plaintext []byte, pub PublicKey) []byte {
	return rsakey.Encrypt(plaintext, pub)
}

// Decrypt is the façade form of spec.md §4.2's textbook RSA decrypt.
func Decrypt(ciphertext []byte, priv PrivateKey) []byte {
	return rsakey.Decrypt(ciphertext, priv)
}

// PublicKeyArmor renders pub as a "PGP PUBLIC KEY BLOCK" armor wrapping
// a single old-format Public-Key packet. See SPEC_FULL.md §1 for why
// this write-side operation supplements the distilled spec's read-only
// description of public-key armor.
func PublicKeyArmor(pub PublicKey) string {
	body := encodePublicKeyPacket(pub)
	return armor.EncodeBlock(body)
}

// encodePublicKeyPacket renders pub as a complete old-format Public-Key
// packet, header plus body. The body (RFC 4880 §5.5.2) holds version 4,
// a zero creation time (the façade
// has no notion of key creation time; callers needing one should encode
// their own packet), algorithm id 1 (RSA), then the n and e MPIs.
func encodePublicKeyPacket(pub PublicKey) []byte {
	body := []byte{4, 0, 0, 0, 0, 1}
	body = append(body, bignat.WriteMPI(pub.N)...)
	body = append(body, bignat.WriteMPI(pub.E)...)

	header := oldFormatPacketHeader(int(packet.TagPublicKey), len(body))
	return append(header, body...)
}

// oldFormatPacketHeader encodes an old-format packet header (spec.md
// §4.5) using the smallest length-type (0, 1, or 2) that fits bodyLen.
func oldFormatPacketHeader(tag int, bodyLen int) []byte {
	switch {
	case bodyLen < 1<<8:
		return []byte{byte(0x80 | tag<<2 | 0), byte(bodyLen)}
	case bodyLen < 1<<16:
		return []byte{byte(0x80 | tag<<2 | 1), byte(bodyLen >> 8), byte(bodyLen)}
	default:
		return []byte{
			byte(0x80 | tag<<2 | 2),
			byte(bodyLen >> 24), byte(bodyLen >> 16), byte(bodyLen >> 8), byte(bodyLen),
		}
	}
}

// VerifyCleartext parses both armors, extracts the first Public-Key
// packet from the key armor, and invokes the verify engine, per
// spec.md §4.7. Only pgperror.SignatureInvalid collapses to (false,
// nil); every other error kind is returned as a non-nil error.
func VerifyCleartext(armoredText string, armoredPublicKey string) (bool, error) {
	cts, err := armor.ParseCleartextSignature(armoredText)
	if err != nil {
		return false, err
	}

	sigPackets, err := packet.ParseStream(cts.SignaturePGP)
	if err != nil {
		return false, err
	}
	sig := findSignaturePacket(sigPackets)
	if sig == nil {
		return false, pgperror.New(pgperror.MalformedPacket, "signature armor contains no Signature packet")
	}

	keyBody, err := armor.ParsePublicKeyBlock(armoredPublicKey)
	if err != nil {
		return false, err
	}
	keyPackets, err := packet.ParseStream(keyBody)
	if err != nil {
		return false, err
	}
	pub := findPublicKeyPacket(keyPackets)
	if pub == nil {
		return false, pgperror.New(pgperror.KeyNotFound, "key armor contains no usable Public-Key packet")
	}

	ok, err := verify.Verify(cts.Cleartext, sig, verify.PublicKey{N: pub.N, E: pub.E})
	if err != nil {
		if pgperror.Is(err, pgperror.SignatureInvalid) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func findSignaturePacket(packets []packet.Packet) *packet.SignaturePacket {
	for _, p := range packets {
		if p.Signature != nil {
			return p.Signature
		}
	}
	return nil
}

func findPublicKeyPacket(packets []packet.Packet) *packet.PublicKeyPacket {
	for _, p := range packets {
		if p.PublicKey != nil {
			return p.PublicKey
		}
	}
	return nil
}
