// Package rsakey implements the RSA primitives component: key-pair
// generation from two probable primes (spec.md §4.2) and textbook RSA
// encrypt/decrypt over the entire message treated as a big-endian
// big-natural. No padding is applied, matching spec.md's explicit
// non-goal of confidentiality for arbitrary messages.
package rsakey

import (
	"context"
	"math/big"
	"runtime"

	"nullprogram.com/x/pgpkit/pgperror"
	"nullprogram.com/x/pgpkit/primeengine"
)

// PublicKey is the { n, e } pair from spec.md §3.
type PublicKey struct {
	N *big.Int
	E *big.Int
}

// PrivateKey is the { n, e, d } triple from spec.md §3.
type PrivateKey struct {
	N *big.Int
	E *big.Int
	D *big.Int
}

// publicExponent is the fixed e used by GenerateKeypair, per spec.md §4.2
// step 3.
var publicExponent = big.NewInt(65537)

// GenerateKeypair samples two independent primes of at least bitsPerPrime
// bits each via the prime engine, derives n, lambda(n), and d, and
// returns the resulting public/private key pair. bitsPerPrime < 1024 is
// raised to 1024, spec.md §8 scenario 6's practical minimum.
func GenerateKeypair(ctx context.Context, bitsPerPrime int) (PublicKey, PrivateKey, error) {
	if bitsPerPrime < 1024 {
		bitsPerPrime = 1024
	}
	workers := runtime.NumCPU()

	p, err := primeengine.Search(ctx, bitsPerPrime, workers)
	if err != nil {
		return PublicKey{}, PrivateKey{}, err
	}
	q, err := primeengine.Search(ctx, bitsPerPrime, workers)
	if err != nil {
		return PublicKey{}, PrivateKey{}, err
	}
	// Guard the astronomically unlikely case of a duplicate draw; a
	// shared prime would let an observer factor n by inspection.
	for q.Cmp(p) == 0 {
		q, err = primeengine.Search(ctx, bitsPerPrime, workers)
		if err != nil {
			return PublicKey{}, PrivateKey{}, err
		}
	}

	n := new(big.Int).Mul(p, q)

	pMinus1 := new(big.Int).Sub(p, big.NewInt(1))
	qMinus1 := new(big.Int).Sub(q, big.NewInt(1))
	gcd := new(big.Int).GCD(nil, nil, pMinus1, qMinus1)
	lambda := new(big.Int).Div(new(big.Int).Mul(pMinus1, qMinus1), gcd)

	d, err := modInverse(publicExponent, lambda)
	if err != nil {
		return PublicKey{}, PrivateKey{}, err
	}

	pub := PublicKey{N: n, E: new(big.Int).Set(publicExponent)}
	priv := PrivateKey{N: n, E: new(big.Int).Set(publicExponent), D: d}
	return pub, priv, nil
}

// modInverse computes e^-1 (mod lambda) via the extended Euclidean
// algorithm, per spec.md §4.2 step 3, normalizing a negative result into
// [0, lambda).
func modInverse(e, lambda *big.Int) (*big.Int, error) {
	d := new(big.Int).ModInverse(e, lambda)
	if d == nil {
		return nil, pgperror.New(pgperror.MalformedPacket, "public exponent has no inverse mod lambda(n)")
	}
	if d.Sign() < 0 {
		d.Add(d, lambda)
	}
	return d, nil
}

// Encrypt performs textbook RSA encryption c = m^e mod n over the bytes
// of plaintext interpreted as a big-endian natural. It is not safe for
// confidentiality of arbitrary messages (spec.md §4.2): there is no
// padding, so this must only be used on short, already-unique payloads.
func Encrypt(plaintext []byte, pub PublicKey) []byte {
	m := new(big.Int).SetBytes(plaintext)
	c := new(big.Int).Exp(m, pub.E, pub.N)
	return c.Bytes()
}

// Decrypt performs textbook RSA decryption m = c^d mod n.
func Decrypt(ciphertext []byte, priv PrivateKey) []byte {
	c := new(big.Int).SetBytes(ciphertext)
	m := new(big.Int).Exp(c, priv.D, priv.N)
	return m.Bytes()
}
