package internal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Upper-case letters and digits without 0/O, 1/I/L so codes survive being read
// aloud or retyped.
const linkCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	MinLinkCodeLength = 6
	MaxLinkCodeLength = 32
)

func NewLinkCode(length int) (string, error) {
	if length < MinLinkCodeLength || length > MaxLinkCodeLength {
		return "", errors.New("invalid link code length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(linkCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(linkCodeAlphabet[n.Int64()])
	}

	code := b.String()
	if len(code) != length {
		return "", fmt.Errorf("invalid link code generation length")
	}
	return code, nil
}

// NormalizeLinkCode trims surrounding whitespace. Codes are otherwise matched
// exactly as stored.
func NormalizeLinkCode(code string) string {
	return strings.TrimSpace(code)
}
