package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func scenarioFields() map[string]string {
	return map[string]string{
		"auth_date": "1700000000",
		"query_id":  "Q1",
		"user":      `{"id":42}`,
	}
}

func TestVerifyScenario(t *testing.T) {
	raw := Encode(scenarioFields(), "BOT123")

	claim, err := Verify(raw, "BOT123")
	if err != nil {
		t.Fatalf("expected payload to verify: %v", err)
	}
	if claim.ID != 42 {
		t.Fatalf("expected id 42, got %d", claim.ID)
	}

	tampered := strings.Replace(raw, "42", "43", 1)
	if tampered == raw {
		t.Fatal("tamper did not change payload")
	}
	if _, err := Verify(tampered, "BOT123"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}
}

func TestSignMatchesIndependentComputation(t *testing.T) {
	secret := sha256.Sum256([]byte("BOT123"))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte("auth_date=1700000000\nquery_id=Q1\nuser={\"id\":42}"))
	want := hex.EncodeToString(mac.Sum(nil))

	if got := Sign(scenarioFields(), "BOT123"); got != want {
		t.Fatalf("tag mismatch: got %s want %s", got, want)
	}
}

func TestCanonicalFormSortsAndSkipsHash(t *testing.T) {
	got := CanonicalForm(map[string]string{
		"user":      "u",
		"hash":      "ignored",
		"auth_date": "1",
		"Zeta":      "z",
	})
	want := "Zeta=z\nauth_date=1\nuser=u"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestCanonicalFormIndependentOfArrivalOrder(t *testing.T) {
	pairs := []string{
		"auth_date=1700000000",
		"query_id=Q1",
		"user=%7B%22id%22%3A42%7D",
		"chat_type=private",
		"start_param=abc",
		"signature=xyz",
	}
	base, err := Parse(strings.Join(pairs, "&"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := CanonicalForm(base)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		shuffled := make([]string, len(pairs))
		for j, k := range rng.Perm(len(pairs)) {
			shuffled[j] = pairs[k]
		}
		fields, err := Parse(strings.Join(shuffled, "&"))
		if err != nil {
			t.Fatalf("parse shuffled: %v", err)
		}
		if got := CanonicalForm(fields); got != want {
			t.Fatalf("canonical form changed with order: %q vs %q", got, want)
		}
	}
}

func TestVerifyAcceptsAnyPairOrder(t *testing.T) {
	raw := Encode(scenarioFields(), "BOT123")
	parts := strings.Split(raw, "&")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	if _, err := Verify(strings.Join(parts, "&"), "BOT123"); err != nil {
		t.Fatalf("expected reordered payload to verify: %v", err)
	}
}

func TestVerifyDeterministic(t *testing.T) {
	good := Encode(scenarioFields(), "BOT123")
	bad := good + "0"

	for i := 0; i < 3; i++ {
		if _, err := Verify(good, "BOT123"); err != nil {
			t.Fatalf("run %d: expected accept: %v", i, err)
		}
		if _, err := Verify(bad, "BOT123"); err == nil {
			t.Fatalf("run %d: expected reject", i)
		}
	}
}

func TestVerifyRejectsEverySingleHashMutation(t *testing.T) {
	fields := scenarioFields()
	tag := Sign(fields, "BOT123")
	prefix := strings.TrimSuffix(Encode(fields, "BOT123"), tag)

	for i := 0; i < len(tag); i++ {
		replacement := byte('0')
		if tag[i] == '0' {
			replacement = '1'
		}
		mutated := tag[:i] + string(replacement) + tag[i+1:]
		if _, err := Verify(prefix+mutated, "BOT123"); !errors.Is(err, ErrSignatureMismatch) {
			t.Fatalf("mutation at %d accepted or wrong error: %v", i, err)
		}
	}

	if _, err := Verify(prefix+tag[:len(tag)-1], "BOT123"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("truncated tag: %v", err)
	}
	if _, err := Verify(prefix+strings.ToUpper(tag), "BOT123"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("upper-case tag: %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	raw := Encode(scenarioFields(), "BOT123")
	if _, err := Verify(raw, "BOT124"); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestVerifyRejections(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]string
		raw    string
		want   error
	}{
		{name: "empty", raw: "", want: ErrEmptyPayload},
		{name: "no hash", raw: "auth_date=1&user=%7B%22id%22%3A1%7D", want: ErrMissingHash},
		{name: "empty hash", raw: "auth_date=1&hash=", want: ErrMissingHash},
		{name: "bad escape", raw: "auth_date=%zz&hash=00", want: ErrMalformedPayload},
		{name: "duplicate key", raw: "a=1&a=2&hash=00", want: ErrDuplicateKey},
		{name: "missing user", fields: map[string]string{"auth_date": "1"}, want: ErrMissingUser},
		{name: "user not json", fields: map[string]string{"user": "nope"}, want: ErrInvalidUser},
		{name: "user null", fields: map[string]string{"user": "null"}, want: ErrInvalidUser},
		{name: "user zero id", fields: map[string]string{"user": `{"id":0}`}, want: ErrInvalidUser},
		{name: "user no id", fields: map[string]string{"user": `{"first_name":"a"}`}, want: ErrInvalidUser},
		{name: "user string id", fields: map[string]string{"user": `{"id":"42"}`}, want: ErrInvalidUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := tt.raw
			if tt.fields != nil {
				raw = Encode(tt.fields, "BOT123")
			}
			_, err := Verify(raw, "BOT123")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if !errors.Is(err, ErrNotAuthenticated) {
				t.Fatalf("expected error to wrap ErrNotAuthenticated: %v", err)
			}
		})
	}
}

func TestVerifyDecodesFullClaim(t *testing.T) {
	v, err := NewVerifier("BOT123")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	raw := Encode(map[string]string{
		"auth_date": "1700000000",
		"user":      `{"id":7,"first_name":"Ada","last_name":"L","username":"ada","photo_url":"https://t.me/i/ada.jpg","language_code":"en","is_premium":true}`,
	}, "BOT123")

	claim, err := v.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claim.ID != 7 || claim.Username != "ada" || claim.PhotoURL == "" || !claim.IsPremium {
		t.Fatalf("unexpected claim: %+v", claim)
	}
}

func TestParseFormSemantics(t *testing.T) {
	fields, err := Parse("a=hello+world&&b&c=x%3Dy")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if fields["a"] != "hello world" {
		t.Fatalf("plus not decoded: %q", fields["a"])
	}
	if v, ok := fields["b"]; !ok || v != "" {
		t.Fatalf("bare key should map to empty value, got %q ok=%v", v, ok)
	}
	if fields["c"] != "x=y" {
		t.Fatalf("escaped equals not decoded: %q", fields["c"])
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
}

func TestNewVerifierRequiresToken(t *testing.T) {
	if _, err := NewVerifier(""); err == nil {
		t.Fatal("expected empty token to be rejected")
	}
}
