package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenerateUUID generates a UUID v4 string, used as the attempt
// correlation token on payment requests.
func GenerateUUID() string {
	return uuid.New().String()
}

// GenerateBookingReference generates a unique human-readable booking
// reference, e.g. "QR-1717171717-A3F9".
func GenerateBookingReference() string {
	return fmt.Sprintf("QR-%d-%s", time.Now().Unix(), strings.ToUpper(RandomHex(2)))
}

// RandomHex generates a random hex string of n bytes.
func RandomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
