// Package primeengine implements the probabilistic large-prime search
// described in spec.md §4.1: candidates are drawn uniformly from the
// requested bit range and filtered through small-prime trial division,
// one Fermat trial, and ten Miller-Rabin trials. The search fans out over
// any number of worker goroutines; the first candidate to survive all
// three tests wins, and the rest are abandoned on a best-effort basis.
package primeengine

import (
	"context"
	"crypto/rand"
	"math/big"
)

// smallPrimes are the first twenty primes, 2..71, used for the initial
// trial-division filter.
var smallPrimes = []int64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47, 53, 59, 61, 67, 71}

// Search runs a parallel probable-prime search for a bits-bit candidate
// using workers goroutines and returns the first one found. workers <= 0
// is treated as 1. If ctx is cancelled before any worker succeeds, Search
// returns ctx.Err().
func Search(ctx context.Context, bits int, workers int) (*big.Int, error) {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		n   *big.Int
		err error
	}
	found := make(chan result, workers)

	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				n, err := candidate(bits)
				if err != nil {
					select {
					case found <- result{nil, err}:
					case <-ctx.Done():
					}
					return
				}
				if n == nil {
					continue // rejected candidate, draw another
				}
				select {
				case found <- result{n, nil}:
				case <-ctx.Done():
				}
				return
			}
		}()
	}

	var r result
	select {
	case r = <-found:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	cancel() // best-effort: stop the remaining workers
	return r.n, r.err
}

// candidate draws one bits-bit odd number and runs it through the full
// filter chain. It returns (nil, nil) if the candidate is rejected by any
// stage, signalling the caller to draw another one.
func candidate(bits int) (*big.Int, error) {
	n, err := randBits(bits)
	if err != nil {
		return nil, err
	}
	if !passesTrialDivision(n) {
		return nil, nil
	}
	if !passesFermat(n) {
		return nil, nil
	}
	if !passesMillerRabin(n, 10) {
		return nil, nil
	}
	return n, nil
}

// randBits draws a uniformly random bits-bit number with the top and
// bottom bits set (top bit fixes the bit length, bottom bit makes it odd).
func randBits(bits int) (*big.Int, error) {
	if bits < 2 {
		bits = 2
	}
	nbytes := (bits + 7) / 8
	buf := make([]byte, nbytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	n := new(big.Int).SetBytes(buf)

	// Mask down to exactly `bits` bits and fix the top bit so the result
	// has the requested bit length.
	excess := nbytes*8 - bits
	if excess > 0 {
		n.Rsh(n, uint(excess))
	}
	n.SetBit(n, bits-1, 1)
	n.SetBit(n, 0, 1) // ensure odd

	return n, nil
}

// passesTrialDivision rejects n if it's divisible by any of the first
// twenty primes, unless n equals one of those primes itself, in which
// case it passes (spec.md §4.1 step 1).
func passesTrialDivision(n *big.Int) bool {
	for _, p := range smallPrimes {
		bp := big.NewInt(p)
		if n.Cmp(bp) == 0 {
			return true
		}
		m := new(big.Int).Mod(n, bp)
		if m.Sign() == 0 {
			return false
		}
	}
	return true
}

// passesFermat runs a single Fermat primality trial: pick 1 <= a < n-1
// uniformly and require a^(n-1) == 1 (mod n).
func passesFermat(n *big.Int) bool {
	if n.Cmp(big.NewInt(3)) < 0 {
		return true
	}
	nMinus1 := new(big.Int).Sub(n, big.NewInt(1))
	a, err := randRange(big.NewInt(1), new(big.Int).Sub(nMinus1, big.NewInt(1)))
	if err != nil {
		return false
	}
	result := new(big.Int).Exp(a, nMinus1, n)
	return result.Cmp(big.NewInt(1)) == 0
}

// passesMillerRabin runs `rounds` independent Miller-Rabin trials per
// spec.md §4.1 step 3. An even n other than 2 is rejected outright.
func passesMillerRabin(n *big.Int, rounds int) bool {
	one := big.NewInt(1)
	two := big.NewInt(2)

	if n.Bit(0) == 0 {
		return n.Cmp(two) == 0
	}
	if n.Cmp(big.NewInt(3)) < 0 {
		return true
	}

	nMinus1 := new(big.Int).Sub(n, one)
	d := new(big.Int).Set(nMinus1)
	s := 0
	for d.Bit(0) == 0 {
		d.Rsh(d, 1)
		s++
	}

	for i := 0; i < rounds; i++ {
		a, err := randRange(one, new(big.Int).Sub(n, one))
		if err != nil {
			return false
		}
		x := new(big.Int).Exp(a, d, n)
		if x.Cmp(one) == 0 || x.Cmp(nMinus1) == 0 {
			continue
		}
		witness := true
		for r := 0; r < s-1; r++ {
			x.Exp(x, two, n)
			if x.Cmp(nMinus1) == 0 {
				witness = false
				break
			}
		}
		if witness {
			return false
		}
	}
	return true
}

// randRange draws a uniform random integer in [lo, hi].
func randRange(lo, hi *big.Int) (*big.Int, error) {
	span := new(big.Int).Sub(hi, lo)
	span.Add(span, big.NewInt(1))
	if span.Sign() <= 0 {
		return new(big.Int).Set(lo), nil
	}
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return nil, err
	}
	return n.Add(n, lo), nil
}
