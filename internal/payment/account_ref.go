package payment

import (
	"fmt"
	"strconv"
	"strings"
)

// accountRefPrefix is the canonical prefix used end-to-end: it is sent to
// the provider as the AccountReference and parsed back out of callbacks.
const accountRefPrefix = "QuickRide"

// FormatAccountReference builds the composite reference for a booking,
// e.g. "QuickRide-42".
func FormatAccountReference(bookingID uint) string {
	return fmt.Sprintf("%s-%d", accountRefPrefix, bookingID)
}

// ParseBookingID extracts the booking ID from a composite reference string.
// It accepts both "QuickRide-42" and a bare numeric "42"; anything else
// reports false.
func ParseBookingID(s string) (uint, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if idx := strings.LastIndex(s, "-"); idx >= 0 {
		s = s[idx+1:]
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
