// This is free and unencumbered software released into the public domain.

// Command pgpkit is the CLI collaborator described in spec.md §6: it
// drives the core's four façade operations (gen-key, encrypt, decrypt,
// verify) and owns everything the core explicitly leaves out — flag
// parsing, file I/O, progress/verbose diagnostics, and the on-disk
// format for freshly generated keys.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/skeeto/optparse-go"

	"nullprogram.com/x/pgpkit"
)

const (
	cmdGenKey = iota
	cmdEncrypt
	cmdDecrypt
	cmdVerify
)

var log = logrus.New()

// fatal prints the message like fmt.Printf() and then os.Exit(1), in the
// teacher's own style (see passphrase2pgp.go's fatal()).
func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "pgpkit: "+format+"\n", args...)
	os.Exit(1)
}

type config struct {
	cmd    int
	args   []string
	bits   int
	outKey string
	pubKey string
	verbose bool
}

func usage(w *os.File) {
	bw := bufio.NewWriter(w)
	i := "  "
	p := "pgpkit"
	f := func(s ...interface{}) { fmt.Fprintln(bw, s...) }
	f("Usage:")
	f(i, p, "gen-key [-b bits] -o keyfile")
	f(i, p, "encrypt -k pubkeyfile src dst")
	f(i, p, "decrypt -k privkeyfile src")
	f(i, p, "verify -k pubkeyfile src")
	f("Options:")
	f(i, "-b, --bits N       bits per RSA prime (default 1024)")
	f(i, "-o, --out FILE     output path for gen-key")
	f(i, "-k, --key FILE     public or private key path")
	f(i, "-v, --verbose      print additional diagnostics")
	bw.Flush()
}

func parse() *config {
	conf := config{bits: 1024}

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(1)
	}
	switch os.Args[1] {
	case "gen-key":
		conf.cmd = cmdGenKey
	case "encrypt":
		conf.cmd = cmdEncrypt
	case "decrypt":
		conf.cmd = cmdDecrypt
	case "verify":
		conf.cmd = cmdVerify
	default:
		usage(os.Stderr)
		fatal("unknown sub-command: %s", os.Args[1])
	}

	options := []optparse.Option{
		{"bits", 'b', optparse.KindRequired},
		{"out", 'o', optparse.KindRequired},
		{"key", 'k', optparse.KindRequired},
		{"verbose", 'v', optparse.KindNone},
	}
	results, rest, err := optparse.Parse(options, os.Args[1:])
	if err != nil {
		usage(os.Stderr)
		fatal("%s", err)
	}
	for _, r := range results {
		switch r.Long {
		case "bits":
			n, err := strconv.Atoi(r.Optarg)
			if err != nil {
				fatal("--bits (-b): %s", err)
			}
			conf.bits = n
		case "out":
			conf.outKey = r.Optarg
		case "key":
			conf.pubKey = r.Optarg
		case "verbose":
			conf.verbose = true
		}
	}
	conf.args = rest
	return &conf
}

func main() {
	conf := parse()
	if conf.verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	switch conf.cmd {
	case cmdGenKey:
		runGenKey(conf)
	case cmdEncrypt:
		runEncrypt(conf)
	case cmdDecrypt:
		runDecrypt(conf)
	case cmdVerify:
		runVerify(conf)
	}
}

func runGenKey(conf *config) {
	if conf.outKey == "" {
		fatal("gen-key requires -o/--out")
	}
	log.WithField("bitsPerPrime", conf.bits).Debug("generating RSA key pair")

	pub, priv, err := pgpkit.GenerateKeypair(context.Background(), conf.bits)
	if err != nil {
		fatal("%s", errors.Wrap(err, "generating key pair"))
	}

	pubPath := conf.outKey + ".pub.asc"
	if err := os.WriteFile(pubPath, []byte(pgpkit.PublicKeyArmor(pub)), 0644); err != nil {
		fatal("%s", errors.Wrapf(err, "writing %s", pubPath))
	}

	privPath := conf.outKey + ".priv"
	privContents := fmt.Sprintf("n=%s\ne=%s\nd=%s\n", priv.N.Text(16), priv.E.Text(16), priv.D.Text(16))
	if err := os.WriteFile(privPath, []byte(privContents), 0600); err != nil {
		fatal("%s", errors.Wrapf(err, "writing %s", privPath))
	}

	log.WithFields(logrus.Fields{"public": pubPath, "private": privPath}).Info("key pair written")
}

func runEncrypt(conf *config) {
	if len(conf.args) != 2 {
		fatal("encrypt requires <src> <dst>")
	}
	if conf.pubKey == "" {
		fatal("encrypt requires -k/--key pointing at a public key armor")
	}
	pub, err := parsePublicKeyArmorFile(conf.pubKey)
	if err != nil {
		fatal("%s", errors.Wrap(err, "loading public key"))
	}

	plaintext, err := os.ReadFile(conf.args[0])
	if err != nil {
		fatal("%s", errors.Wrap(err, "reading source"))
	}

	ciphertext := pgpkit.Encrypt(plaintext, pub)
	if err := os.WriteFile(conf.args[1], ciphertext, 0644); err != nil {
		fatal("%s", errors.Wrap(err, "writing destination"))
	}
}

func runDecrypt(conf *config) {
	if len(conf.args) != 1 {
		fatal("decrypt requires <src>")
	}
	if conf.pubKey == "" {
		fatal("decrypt requires -k/--key pointing at a private key file")
	}
	priv, err := parsePrivateKeyFile(conf.pubKey)
	if err != nil {
		fatal("%s", errors.Wrap(err, "loading private key"))
	}

	ciphertext, err := os.ReadFile(conf.args[0])
	if err != nil {
		fatal("%s", errors.Wrap(err, "reading source"))
	}

	plaintext := pgpkit.Decrypt(ciphertext, priv)
	os.Stdout.Write(plaintext)
}

func runVerify(conf *config) {
	if len(conf.args) != 1 {
		fatal("verify requires <src>")
	}
	if conf.pubKey == "" {
		fatal("verify requires -k/--key pointing at a public key armor")
	}

	pubArmor, err := os.ReadFile(conf.pubKey)
	if err != nil {
		fatal("%s", errors.Wrap(err, "reading public key armor"))
	}
	src, err := os.ReadFile(conf.args[0])
	if err != nil {
		fatal("%s", errors.Wrap(err, "reading source"))
	}
	normalized := strings.ReplaceAll(string(src), "\r\n", "\n")

	ok, err := pgpkit.VerifyCleartext(normalized, string(pubArmor))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if !ok {
		fmt.Fprintln(os.Stderr, "Signature is invalid.")
		os.Exit(1)
	}
	fmt.Println("File read. Checksum is valid.")
	fmt.Println("Signature is valid.")
}
