package pairing

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Pairing codes are short, human-transcribed one-time tokens. They are
// a usability-grade secret with a short validity window, not a security
// boundary, but they are drawn from crypto/rand so they cannot be
// guessed in bulk.
const (
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// CodeGenerator produces pairing codes. It makes no uniqueness
// guarantee; collision handling belongs to the protocol.
type CodeGenerator struct{}

// NewCodeGenerator creates a code generator.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{}
}

// Generate returns a fresh 6-character code over A-Z0-9.
func (g *CodeGenerator) Generate() (string, error) {
	code := make([]byte, CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}

// NormalizeCode maps human input onto the canonical code form:
// trimmed and upper-cased.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
