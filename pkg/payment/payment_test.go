package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

const secret = "ipn-secret"

func sign(t *testing.T, canonical string) string {
	t.Helper()
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSortedJSON(t *testing.T) {
	body := `{"payment_status":"finished","payment_id":5077125051,"fee":{"currency":"btc","depositFee":0},"order_id":"a<b>&c","price_amount":1.50}`
	got, err := SortedJSON([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	want := `{"fee":{"currency":"btc","depositFee":0},"order_id":"a<b>&c","payment_id":5077125051,"payment_status":"finished","price_amount":1.50}`
	if string(got) != want {
		t.Errorf("got  %s\nwant %s", got, want)
	}
}

func TestSortedJSONLineSeparators(t *testing.T) {
	// JSON.stringify writes U+2028 and U+2029 unescaped; a literal
	// backslash-u sequence in the text must survive untouched.
	body := `{"path":"c:\\u2028","note":"a\u2028b\u2029c"}`
	want := `{"note":"a` + "\u2028" + `b` + "\u2029" + `c","path":"c:\\u2028"}`

	got, err := SortedJSON([]byte(body))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		t.Errorf("got  %q\nwant %q", got, want)
	}
	if err := Verify([]byte(body), sign(t, want), secret); err != nil {
		t.Errorf("signature over raw separators rejected: %v", err)
	}
}

func TestVerify(t *testing.T) {
	body := []byte(`{"payment_status":"finished","payment_id":1}`)
	good := sign(t, `{"payment_id":1,"payment_status":"finished"}`)

	tests := []struct {
		name string
		sig  string
		want error
	}{
		{name: "valid", sig: good},
		{name: "valid uppercase", sig: strings.ToUpper(good)},
		{name: "missing", sig: "", want: ErrMissingSignature},
		{name: "mismatch", sig: sign(t, `{"payment_id":2}`), want: ErrBadSignature},
		{name: "not hex", sig: "zz", want: ErrBadSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Verify(body, tt.sig, secret)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyRejectsInvalidJSON(t *testing.T) {
	if err := Verify([]byte(`{`), "abcd", secret); err == nil {
		t.Error("expected error for invalid body")
	}
}

func TestEventLog(t *testing.T) {
	l, err := NewEventLog(filepath.Join(t.TempDir(), "payments.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()

	for _, status := range []string{"waiting", "finished"} {
		ev := ParseEvent([]byte(`{"payment_id":42,"payment_status":"` + status + `","order_id":"ord-1"}`))
		if err := l.Record(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}

	events, err := l.ByPayment(ctx, "42")
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].PaymentStatus != "finished" || events[1].OrderID != "ord-1" {
		t.Errorf("unexpected event: %+v", events[1])
	}
}
