package main

import (
	"bufio"
	"fmt"
	"math/big"
	"os"
	"strings"

	"nullprogram.com/x/pgpkit"
	"nullprogram.com/x/pgpkit/armor"
	"nullprogram.com/x/pgpkit/packet"
)

// parsePublicKeyArmorFile reads a "PGP PUBLIC KEY BLOCK" armor file and
// extracts the first Public-Key packet, per spec.md §4.7's "by
// convention the first Public-Key packet" rule.
func parsePublicKeyArmorFile(path string) (pgpkit.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pgpkit.PublicKey{}, err
	}
	body, err := armor.ParsePublicKeyBlock(string(data))
	if err != nil {
		return pgpkit.PublicKey{}, err
	}
	packets, err := packet.ParseStream(body)
	if err != nil {
		return pgpkit.PublicKey{}, err
	}
	for _, p := range packets {
		if p.PublicKey != nil {
			return pgpkit.PublicKey{N: p.PublicKey.N, E: p.PublicKey.E}, nil
		}
	}
	return pgpkit.PublicKey{}, fmt.Errorf("key armor contains no Public-Key packet")
}

// parsePrivateKeyFile reads the minimal "n=hex\ne=hex\nd=hex\n" format
// runGenKey writes. Per spec.md §6, on-disk key serialisation is a
// collaborator choice, not a core concern; this is deliberately not an
// OpenPGP Secret-Key packet (see SPEC_FULL.md §6).
func parsePrivateKeyFile(path string) (pgpkit.PrivateKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return pgpkit.PrivateKey{}, err
	}
	defer f.Close()

	fields := map[string]*big.Int{}
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := s.Text()
		name, hex, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		n := new(big.Int)
		if _, ok := n.SetString(hex, 16); !ok {
			return pgpkit.PrivateKey{}, fmt.Errorf("private key file: invalid hex for %q", name)
		}
		fields[name] = n
	}
	if err := s.Err(); err != nil {
		return pgpkit.PrivateKey{}, err
	}

	n, ok := fields["n"]
	if !ok {
		return pgpkit.PrivateKey{}, fmt.Errorf("private key file: missing n")
	}
	e, ok := fields["e"]
	if !ok {
		return pgpkit.PrivateKey{}, fmt.Errorf("private key file: missing e")
	}
	d, ok := fields["d"]
	if !ok {
		return pgpkit.PrivateKey{}, fmt.Errorf("private key file: missing d")
	}
	return pgpkit.PrivateKey{N: n, E: e, D: d}, nil
}
