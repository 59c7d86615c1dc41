// Package uniquecode generates the short random codes printed in guest QR
// codes and used as a secondary lookup key.
package uniquecode

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Alphabet is the 62-symbol set codes are drawn from
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// DefaultLength is the length of codes stored in guests.unique_code
const DefaultLength = 8

// Bytes at or above this value are rejected so every symbol has equal weight.
// 248 = 4 * 62
const rejectionLimit = 256 - (256 % len(Alphabet))

// Generator draws codes from a random source
type Generator struct {
	rand io.Reader
}

// New returns a Generator over src. A nil src uses crypto/rand.
func New(src io.Reader) *Generator {
	if src == nil {
		src = rand.Reader
	}
	return &Generator{rand: src}
}

// Generate returns a code of the given length. Length <= 0 uses DefaultLength.
// Codes made only of digits are redrawn so they never read as a surrogate id.
func (g *Generator) Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}
	for {
		code, err := g.draw(length)
		if err != nil {
			return "", err
		}
		if !allDigits(code) {
			return code, nil
		}
	}
}

func (g *Generator) draw(length int) (string, error) {
	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		n, err := io.ReadFull(g.rand, buf)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf[:n] {
			if int(b) >= rejectionLimit {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == length {
				break
			}
		}
	}
	return string(out), nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

var defaultGenerator = New(nil)

// Generate returns a code from crypto/rand
func Generate(length int) (string, error) {
	return defaultGenerator.Generate(length)
}

// Valid reports whether s has the given length, only alphabet symbols
// and at least one letter
func Valid(s string, length int) bool {
	if length <= 0 {
		length = DefaultLength
	}
	if len(s) != length || allDigits(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
