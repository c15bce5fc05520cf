package mpesa

import (
	"fmt"
	"strconv"
)

// Metadata item names Daraja includes on successful callbacks.
const (
	MetaAmount           = "Amount"
	MetaMpesaReceipt     = "MpesaReceiptNumber"
	MetaPhoneNumber      = "PhoneNumber"
	MetaAccountReference = "AccountReference"
)

// CallbackEnvelope is the provider's nested webhook payload.
type CallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

// StkCallback carries the asynchronous outcome of one push request.
type StkCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is the loose name/value item list Daraja attaches to
// successful payments.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is a single name/value pair. Value may be a string or a
// number depending on the item.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// Metadata is a typed lookup over the callback's item list, built once per
// callback. Lookups default to absent rather than failing on missing keys.
type Metadata map[string]interface{}

// Metadata flattens the item list into a lookup table.
func (s *StkCallback) Metadata() Metadata {
	m := make(Metadata)
	if s.CallbackMetadata == nil {
		return m
	}
	for _, item := range s.CallbackMetadata.Item {
		if item.Name != "" && item.Value != nil {
			m[item.Name] = item.Value
		}
	}
	return m
}

// String returns the named item as a string, or "" when absent.
func (m Metadata) String(name string) string {
	v, ok := m[name]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Receipt-style values never carry fractions.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Float returns the named item as a float64 with a presence flag.
func (m Metadata) Float(name string) (float64, bool) {
	v, ok := m[name]
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
