package reservation

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	defaultCodeLength = 10
	codeChars         = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// CodeGenerator returns a fresh attendance code.
type CodeGenerator func() (string, error)

// NewCodeGenerator draws length characters from [a-z0-9] with crypto/rand.
func NewCodeGenerator(length int) CodeGenerator {
	if length <= 0 {
		length = defaultCodeLength
	}
	charsLength := big.NewInt(int64(len(codeChars)))

	return func() (string, error) {
		code := make([]byte, length)
		for i := range code {
			idx, err := rand.Int(rand.Reader, charsLength)
			if err != nil {
				return "", fmt.Errorf("failed to generate attendance code: %w", err)
			}
			code[i] = codeChars[idx.Int64()]
		}
		return string(code), nil
	}
}
