// Package packet implements the packet codec component of spec.md §4.5:
// old-format packet headers, tag dispatch, and the signature (§4.5.1) and
// public-key (§4.5.2) packet body parsers.
//
// Grounded on the teacher's packet-header byte layout (signkey.go writes
// `packet[0] = 0xc0 | tag` for new-format headers) generalized to the
// *old*-format *read* side, and on a8a4ecf1_perkeep-perkeep's
// readHeader/ReadPacket dispatch-by-tag structure.
package packet

import (
	"math/big"

	"nullprogram.com/x/pgpkit/bignat"
	"nullprogram.com/x/pgpkit/pgperror"
)

// Tag identifies the packet types spec.md §4.5 requires.
type Tag int

const (
	TagSignature    Tag = 2
	TagPublicKey    Tag = 6
	TagUserID       Tag = 13
	TagPublicSubkey Tag = 14
)

// Packet is the tagged PgpPacket variant from spec.md §3. Exactly one of
// Signature or PublicKey is set when Tag is TagSignature/TagPublicKey;
// otherwise Body carries the opaque (possibly unknown) packet body.
type Packet struct {
	Tag       int
	Body      []byte
	Signature *SignaturePacket
	PublicKey *PublicKeyPacket
}

// SignaturePacket is RFC 4880 §5.2.3, restricted per spec.md to v4/RSA/
// SHA-256.
type SignaturePacket struct {
	Version               uint8
	SignatureType         uint8
	PublicKeyAlgorithm    uint8
	HashAlgorithm         uint8
	HashedSubpacketData   []byte
	UnhashedSubpacketData []byte
	SignedHashValueHead   uint16
	Signature             []*big.Int // one or more MPIs; RSA uses exactly one
}

// PublicKeyPacket is RFC 4880 §5.5.2, restricted to RSA.
type PublicKeyPacket struct {
	N *big.Int
	E *big.Int
}

// ParseStream parses a contiguous sequence of old-format packets until
// end of input, per spec.md §4.5.
func ParseStream(data []byte) ([]Packet, error) {
	var packets []Packet
	for len(data) > 0 {
		p, rest, err := parseOne(data)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p)
		data = rest
	}
	return packets, nil
}

func parseOne(data []byte) (Packet, []byte, error) {
	if len(data) < 1 {
		return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "truncated packet header")
	}
	first := data[0]
	if first&0x80 == 0 {
		return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "tag byte missing MSB")
	}
	if first&0x40 != 0 {
		return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "new-format packet headers are not supported")
	}
	tag := int((first >> 2) & 0x0f)
	lengthType := first & 0x03
	data = data[1:]

	var length int
	switch lengthType {
	case 0:
		if len(data) < 1 {
			return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "truncated 1-byte length")
		}
		length = int(data[0])
		data = data[1:]
	case 1:
		v, rest, err := bignat.ReadUint16(data)
		if err != nil {
			return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "truncated 2-byte length")
		}
		length = int(v)
		data = rest
	case 2:
		v, rest, err := bignat.ReadUint32(data)
		if err != nil {
			return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "truncated 4-byte length")
		}
		length = int(v)
		data = rest
	default: // 3: indeterminate length, rejected per spec.md §9
		return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "indeterminate-length packets are not supported")
	}

	if len(data) < length {
		return Packet{}, nil, pgperror.New(pgperror.MalformedPacket, "packet body truncated (want %d, have %d)", length, len(data))
	}
	body := data[:length]
	rest := data[length:]

	p := Packet{Tag: tag, Body: body}
	switch Tag(tag) {
	case TagSignature:
		sig, err := parseSignatureBody(body)
		if err != nil {
			return Packet{}, nil, err
		}
		p.Signature = sig
	case TagPublicKey:
		pk, err := parsePublicKeyBody(body)
		if err != nil {
			return Packet{}, nil, err
		}
		p.PublicKey = pk
	case TagUserID, TagPublicSubkey:
		// opaque bodies, nothing further to parse
	default:
		// unknown tag, ignored during verification
	}
	return p, rest, nil
}

func parseSignatureBody(body []byte) (*SignaturePacket, error) {
	if len(body) < 4 {
		return nil, pgperror.New(pgperror.MalformedPacket, "signature packet body too short")
	}
	sig := &SignaturePacket{
		Version:            body[0],
		SignatureType:      body[1],
		PublicKeyAlgorithm: body[2],
		HashAlgorithm:      body[3],
	}
	if sig.Version != 4 {
		return nil, pgperror.New(pgperror.MalformedPacket, "unsupported signature packet version %d", sig.Version)
	}
	rest := body[4:]

	hashed, rest, err := bignat.ReadLengthTagged(rest)
	if err != nil {
		return nil, err
	}
	sig.HashedSubpacketData = hashed

	unhashed, rest, err := bignat.ReadLengthTagged(rest)
	if err != nil {
		return nil, err
	}
	sig.UnhashedSubpacketData = unhashed

	head, rest, err := bignat.ReadUint16(rest)
	if err != nil {
		return nil, err
	}
	sig.SignedHashValueHead = head

	if len(rest) == 0 {
		return nil, pgperror.New(pgperror.MalformedPacket, "signature packet has no MPIs")
	}
	for len(rest) > 0 {
		var mpi *big.Int
		mpi, rest, err = bignat.ReadMPI(rest)
		if err != nil {
			return nil, err
		}
		sig.Signature = append(sig.Signature, mpi)
	}
	return sig, nil
}

func parsePublicKeyBody(body []byte) (*PublicKeyPacket, error) {
	const preambleLen = 6 // version, 4-byte creation time, algorithm
	if len(body) < preambleLen {
		return nil, pgperror.New(pgperror.MalformedPacket, "public-key packet body too short")
	}
	if body[0] != 4 {
		return nil, pgperror.New(pgperror.MalformedPacket, "unsupported public-key packet version %d", body[0])
	}
	rest := body[preambleLen:]

	n, rest, err := bignat.ReadMPI(rest)
	if err != nil {
		return nil, err
	}
	e, _, err := bignat.ReadMPI(rest)
	if err != nil {
		return nil, err
	}
	return &PublicKeyPacket{N: n, E: e}, nil
}
