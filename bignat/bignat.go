// Package bignat implements the MPI & byte codec component: fixed-width
// big-endian integer codecs, the OpenPGP multi-precision-integer (MPI)
// format, length-tagged byte blobs, and the PKCS#1 v1.5 EMSA unwrap used
// to recover a SHA-256 digest from an RSA signature's padded message.
package bignat

import (
	"encoding/binary"
	"math/big"

	"nullprogram.com/x/pgpkit/pgperror"
)

// ReadMPI consumes a 2-byte big-endian bit-length followed by ceil(L/8)
// bytes, per RFC 4880 §3.2, and returns the decoded natural plus whatever
// bytes remain after it.
func ReadMPI(data []byte) (x *big.Int, rest []byte, err error) {
	if len(data) < 2 {
		return nil, nil, pgperror.New(pgperror.MalformedPacket, "mpi: truncated bit-length header")
	}
	bits := binary.BigEndian.Uint16(data[:2])
	nbytes := int(bits+7) / 8
	data = data[2:]
	if len(data) < nbytes {
		return nil, nil, pgperror.New(pgperror.MalformedPacket, "mpi: truncated body (want %d bytes, have %d)", nbytes, len(data))
	}
	x = new(big.Int).SetBytes(data[:nbytes])
	return x, data[nbytes:], nil
}

// WriteMPI renders x as an MPI: a 2-byte bit-length followed by the
// minimum number of big-endian bytes needed to hold it. The zero value
// is encoded as a zero bit-length with no trailing bytes.
func WriteMPI(x *big.Int) []byte {
	if x.Sign() == 0 {
		return []byte{0, 0}
	}
	b := x.Bytes()
	bits := uint16(len(b)*8 - leadingZeroBits(b[0]))
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out, bits)
	copy(out[2:], b)
	return out
}

func leadingZeroBits(b byte) int {
	n := 0
	for i := 7; i >= 0; i-- {
		if b&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

// ReadLengthTagged consumes a u16 big-endian length followed by that many
// bytes, returning the blob and the remainder.
func ReadLengthTagged(data []byte) (blob []byte, rest []byte, err error) {
	if len(data) < 2 {
		return nil, nil, pgperror.New(pgperror.MalformedPacket, "length-tagged blob: truncated length header")
	}
	n := int(binary.BigEndian.Uint16(data[:2]))
	data = data[2:]
	if len(data) < n {
		return nil, nil, pgperror.New(pgperror.MalformedPacket, "length-tagged blob: truncated body (want %d, have %d)", n, len(data))
	}
	return data[:n], data[n:], nil
}

// WriteLengthTagged renders blob as a u16-length-prefixed byte string.
func WriteLengthTagged(blob []byte) []byte {
	out := make([]byte, 2+len(blob))
	binary.BigEndian.PutUint16(out, uint16(len(blob)))
	copy(out[2:], blob)
	return out
}

// ReadUint16 and ReadUint32 read fixed-width big-endian integers,
// returning the value and the remaining bytes.
func ReadUint16(data []byte) (uint16, []byte, error) {
	if len(data) < 2 {
		return 0, nil, pgperror.New(pgperror.MalformedPacket, "truncated u16")
	}
	return binary.BigEndian.Uint16(data), data[2:], nil
}

func ReadUint32(data []byte) (uint32, []byte, error) {
	if len(data) < 4 {
		return 0, nil, pgperror.New(pgperror.MalformedPacket, "truncated u32")
	}
	return binary.BigEndian.Uint32(data), data[4:], nil
}

// sha256DERPrefix is the 19-byte ASN.1 DigestInfo prefix for SHA-256,
// per RFC 3447 §9.2 / RFC 4880 common practice.
var sha256DERPrefix = []byte{
	0x30, 0x31, 0x30, 0x0d, 0x06, 0x09, 0x60, 0x86, 0x48, 0x01,
	0x65, 0x03, 0x04, 0x02, 0x01, 0x05, 0x00, 0x04, 0x20,
}

// UnwrapEMSAPKCS1v15SHA256 peels off the PKCS#1 v1.5 EMSA padding for
// SHA-256 (leading 0x01, a run of 0xFF bytes, a single 0x00 separator,
// and the fixed DER prefix) and returns the bare 32-byte digest.
func UnwrapEMSAPKCS1v15SHA256(em []byte) ([]byte, error) {
	if len(em) == 0 || em[0] != 0x01 {
		return nil, pgperror.New(pgperror.MalformedPkcs1, "missing leading 0x01 byte")
	}
	i := 1
	for i < len(em) && em[i] == 0xff {
		i++
	}
	if i == 1 {
		return nil, pgperror.New(pgperror.MalformedPkcs1, "no 0xFF padding run")
	}
	if i >= len(em) || em[i] != 0x00 {
		return nil, pgperror.New(pgperror.MalformedPkcs1, "missing 0x00 separator")
	}
	i++
	if len(em)-i < len(sha256DERPrefix) {
		return nil, pgperror.New(pgperror.MalformedPkcs1, "truncated DER prefix")
	}
	for j, want := range sha256DERPrefix {
		if em[i+j] != want {
			return nil, pgperror.New(pgperror.MalformedPkcs1, "DER prefix mismatch at byte %d", j)
		}
	}
	i += len(sha256DERPrefix)
	digest := em[i:]
	if len(digest) != 32 {
		return nil, pgperror.New(pgperror.MalformedPkcs1, "digest is %d bytes, want 32", len(digest))
	}
	return digest, nil
}

// WrapEMSAPKCS1v15SHA256 is the inverse of UnwrapEMSAPKCS1v15SHA256: it
// pads a 32-byte SHA-256 digest out to modBytes bytes in the canonical
// PKCS#1 v1.5 EMSA form "00 01 FF...FF 00 T" (RFC 3447 §9.2), with at
// least 8 bytes of 0xFF padding. Provided for symmetry and for tests
// that exercise the round trip; the verify engine only ever needs the
// unwrap direction.
func WrapEMSAPKCS1v15SHA256(digest []byte, modBytes int) ([]byte, error) {
	if len(digest) != 32 {
		return nil, pgperror.New(pgperror.MalformedPkcs1, "digest is %d bytes, want 32", len(digest))
	}
	tLen := len(sha256DERPrefix) + len(digest)
	if modBytes < tLen+11 {
		return nil, pgperror.New(pgperror.MalformedPkcs1, "modulus too small for EMSA encoding")
	}
	em := make([]byte, modBytes)
	em[1] = 0x01
	padLen := modBytes - tLen - 3
	for i := 0; i < padLen; i++ {
		em[2+i] = 0xff
	}
	em[2+padLen] = 0x00
	copy(em[3+padLen:], sha256DERPrefix)
	copy(em[3+padLen+len(sha256DERPrefix):], digest)
	return em, nil
}
