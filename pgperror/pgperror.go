// Package pgperror defines the error taxonomy shared by every layer of
// pgpkit (armor, packet, bignat, verify, rsakey). Every component returns
// one of these kinds rather than swallowing a failure or inventing its own
// ad-hoc error string, so that the public façade can decide, per spec.md
// §7, which kinds collapse to a clean false and which propagate as Err.
package pgperror

import "fmt"

// Kind names one of the error categories from spec.md §7.
type Kind int

const (
	// MalformedArmor: banner missing, base64 illegal, CRC trailer absent.
	MalformedArmor Kind = iota
	// ArmorChecksumMismatch: the CRC-24 trailer disagrees with the body.
	ArmorChecksumMismatch
	// MalformedPacket: truncated body, bad length-type, subpacket overrun.
	MalformedPacket
	// UnsupportedAlgorithm: public-key or hash algorithm isn't RSA+SHA-256.
	UnsupportedAlgorithm
	// MalformedPkcs1: EMSA prefix bytes don't match.
	MalformedPkcs1
	// SignatureInvalid: digest comparison failed. The only clean negative.
	SignatureInvalid
	// KeyNotFound: the key armor has no usable public-key packet.
	KeyNotFound
	// IoError: surfaced from collaborators only, never raised by the core.
	IoError
)

func (k Kind) String() string {
	switch k {
	case MalformedArmor:
		return "malformed armor"
	case ArmorChecksumMismatch:
		return "armor checksum mismatch"
	case MalformedPacket:
		return "malformed packet"
	case UnsupportedAlgorithm:
		return "unsupported algorithm"
	case MalformedPkcs1:
		return "malformed pkcs#1 padding"
	case SignatureInvalid:
		return "invalid signature"
	case KeyNotFound:
		return "key not found"
	case IoError:
		return "i/o error"
	default:
		return "unknown error"
	}
}

// Error is the concrete error type returned by every pgpkit component.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Is reports whether err is a pgperror.Error of the given kind.
func Is(err error, kind Kind) bool {
	pe, ok := err.(*Error)
	return ok && pe.Kind == kind
}
