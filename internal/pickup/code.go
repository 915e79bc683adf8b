package pickup

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// CodeTTL is how long a pickup code stays valid after order creation.
const CodeTTL = 24 * time.Hour

// GenerateCode returns a 4-digit numeric pickup code from crypto/rand.
// Four digits against a 24h window is thin either way; verification attempts
// should be throttled upstream.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("generate pickup code: %w", err)
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
