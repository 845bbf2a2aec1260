// Package payment verifies NOWPayments IPN callbacks and records them.
package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aitarf0921/AI-Secretary/pkg/models"
)

// SignatureHeader carries the hex HMAC-SHA512 of the sorted body.
const SignatureHeader = "x-nowpayments-sig"

var (
	ErrMissingSignature = errors.New("missing signature")
	ErrBadSignature     = errors.New("signature mismatch")
)

// SortedJSON re-serializes body with object keys sorted at every depth,
// numbers kept as written, no HTML escaping and U+2028/U+2029 written raw,
// matching JSON.stringify.
func SortedJSON(body []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode ipn body: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode ipn body: %w", err)
	}
	return rawLineSeparators(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// rawLineSeparators undoes the \u2028 and \u2029 escapes encoding/json always
// emits. Escaped backslashes are copied through so a literal "\\u2028" stays.
func rawLineSeparators(b []byte) []byte {
	if !bytes.Contains(b, []byte(`\u202`)) {
		return b
	}
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] != '\\' || i+1 == len(b) {
			out = append(out, b[i])
			continue
		}
		if b[i+1] == 'u' && i+6 <= len(b) {
			switch string(b[i+2 : i+6]) {
			case "2028":
				out = append(out, "\u2028"...)
				i += 5
				continue
			case "2029":
				out = append(out, "\u2029"...)
				i += 5
				continue
			}
		}
		out = append(out, b[i], b[i+1])
		i++
	}
	return out
}

// Sign returns the hex HMAC-SHA512 of the sorted body under secret.
func Sign(body []byte, secret string) (string, error) {
	sorted, err := SortedJSON(body)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(sorted)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks signature against body. Comparison is constant time.
func Verify(body []byte, signature, secret string) error {
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return ErrMissingSignature
	}
	want, err := Sign(body, secret)
	if err != nil {
		return err
	}
	got, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return ErrBadSignature
	}
	wantRaw, _ := hex.DecodeString(want)
	if !hmac.Equal(got, wantRaw) {
		return ErrBadSignature
	}
	return nil
}

// ParseEvent extracts the fields worth indexing from a verified body.
func ParseEvent(body []byte) models.PaymentEvent {
	var fields struct {
		PaymentID     json.Number `json:"payment_id"`
		PaymentStatus string      `json:"payment_status"`
		OrderID       string      `json:"order_id"`
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	_ = dec.Decode(&fields)
	return models.PaymentEvent{
		PaymentID:     fields.PaymentID.String(),
		PaymentStatus: fields.PaymentStatus,
		OrderID:       fields.OrderID,
		Payload:       string(body),
		ReceivedAt:    time.Now().UTC(),
	}
}
