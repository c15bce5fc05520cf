package mpesa

import "strings"

// Kenyan numbering constants for Daraja.
const (
	countryCode    = "254"
	trunkPrefix    = "0"
	maxPhoneDigits = 15
)

// NormalizePhone converts common local phone formats into the digits-only
// international form Daraja requires, e.g. "0712 345-678" -> "254712345678".
// Pure and deterministic; no I/O.
func NormalizePhone(raw string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '+':
			return -1
		}
		return r
	}, raw)

	if cleaned == "" {
		return "", &ValidationError{Field: "phoneNumber", Reason: "phone number is empty"}
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return "", &ValidationError{Field: "phoneNumber", Reason: "phone number contains non-digit characters"}
		}
	}

	switch {
	case strings.HasPrefix(cleaned, trunkPrefix):
		cleaned = countryCode + cleaned[len(trunkPrefix):]
	case strings.HasPrefix(cleaned, countryCode):
		// already international
	case strings.HasPrefix(cleaned, "7"), strings.HasPrefix(cleaned, "1"):
		cleaned = countryCode + cleaned
	default:
		cleaned = countryCode + cleaned
	}

	if len(cleaned) > maxPhoneDigits {
		return "", &ValidationError{Field: "phoneNumber", Reason: "phone number exceeds maximum length"}
	}

	return cleaned, nil
}
