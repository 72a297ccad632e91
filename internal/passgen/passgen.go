// Package passgen generates random passwords for the `polctl generate`
// subcommand, mirroring original_source/src/main.py's
// `pol.passgen.generate_password()` call (the Python module itself
// isn't part of the retrieved source, only its call site) — a short
// charset-based generator is the natural Go-idiomatic stand-in.
package passgen

import (
	"crypto/rand"
	"math/big"
)

// DefaultLength is the password length generated when callers don't
// ask for a specific one.
const DefaultLength = 20

// DefaultCharset excludes characters that are easy to transpose when
// read aloud or copied by hand (0/O, 1/l/I).
const DefaultCharset = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789!@#$%^&*-_=+"

// Generate returns a length-byte random password drawn uniformly from
// charset using a cryptographically secure RNG.
func Generate(length int, charset string) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	if charset == "" {
		charset = DefaultCharset
	}
	n := big.NewInt(int64(len(charset)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			return "", err
		}
		out[i] = charset[idx.Int64()]
	}
	return string(out), nil
}

// GeneratePassword returns a DefaultLength password from
// DefaultCharset, the direct equivalent of the original's
// generate_password() with no arguments.
func GeneratePassword() (string, error) {
	return Generate(DefaultLength, DefaultCharset)
}
