package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// CodeDigits is the length of verification codes.
const CodeDigits = 6

// GenerateCode returns a fixed-length numeric verification code drawn
// uniformly from crypto/rand (e.g. "042619"). Suitable for one-time secrets;
// the short TTL and single-use consumption are the real guessing defenses.
func GenerateCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < CodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", CodeDigits, n), nil
}

// HashCode returns a SHA-256 hash of the code, hex-encoded. Codes are stored
// and matched by hash, never in plaintext.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}
