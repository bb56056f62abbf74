package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		TTL:        30 * 24 * time.Hour,
		PrivateKey: []byte(testSecret),
		Audience:   "authenticated",
		Role:       "authenticated",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestCreateSessionClaims(t *testing.T) {
	m := newHSManager(t)
	now := time.Now().Truncate(time.Second)

	token, expiresAt, err := m.CreateSession("user-1", now)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if want := now.Add(30 * 24 * time.Hour); !expiresAt.Equal(want) {
		t.Fatalf("expiry: got %v want %v", expiresAt, want)
	}

	claims, err := m.ParseSession(token)
	if err != nil {
		t.Fatalf("parse session: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Fatalf("subject: %q", claims.Subject)
	}
	if claims.Role != "authenticated" {
		t.Fatalf("role: %q", claims.Role)
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != "authenticated" {
		t.Fatalf("audience: %v", claims.Audience)
	}
	if !claims.ExpiresAt.Time.Equal(expiresAt) {
		t.Fatalf("exp claim %v != %v", claims.ExpiresAt.Time, expiresAt)
	}
}

func TestCreateSessionVerifiesWithPlainSecret(t *testing.T) {
	m := newHSManager(t)
	token, _, err := m.CreateSession("user-2", time.Now())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	parsed, err := gjwt.Parse(token, func(*gjwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, gjwt.WithValidMethods([]string{"HS256"}), gjwt.WithAudience("authenticated"))
	if err != nil || !parsed.Valid {
		t.Fatalf("backend-side verification failed: %v", err)
	}
}

func TestCreateSessionRequiresSubject(t *testing.T) {
	m := newHSManager(t)
	if _, _, err := m.CreateSession("", time.Now()); err == nil {
		t.Fatal("expected empty subject to fail")
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{PrivateKey: []byte(testSecret), Role: "authenticated"}},
		{"missing secret", Config{TTL: time.Hour, Role: "authenticated"}},
		{"missing role", Config{TTL: time.Hour, PrivateKey: []byte(testSecret)}},
		{"bad leeway", Config{TTL: time.Hour, PrivateKey: []byte(testSecret), Role: "r", Leeway: 3 * time.Minute}},
		{"bad method", Config{TTL: time.Hour, PrivateKey: []byte(testSecret), Role: "r", SigningMethod: "rs256"}},
		{"ed25519 without public key", Config{TTL: time.Hour, Role: "r", SigningMethod: MethodEd25519}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseSessionRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub, Role: "authenticated"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := SessionClaims{Role: "authenticated", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseSession(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseSessionAudienceRoleAndExpiry(t *testing.T) {
	m := newHSManager(t)
	sign := func(c SessionClaims) string {
		tok, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	wrongAudience := sign(SessionClaims{Role: "authenticated", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		Audience:  gjwt.ClaimStrings{"anon"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	if _, err := m.ParseSession(wrongAudience); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	wrongRole := sign(SessionClaims{Role: "service_role", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		Audience:  gjwt.ClaimStrings{"authenticated"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	if _, err := m.ParseSession(wrongRole); err == nil {
		t.Fatal("expected wrong role to fail")
	}

	expired := sign(SessionClaims{Role: "authenticated", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "u",
		Audience:  gjwt.ClaimStrings{"authenticated"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	if _, err := m.ParseSession(expired); err == nil {
		t.Fatal("expected expired token to fail")
	}

	noExpiry := sign(SessionClaims{Role: "authenticated", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:  "u",
		Audience: gjwt.ClaimStrings{"authenticated"},
	}})
	if _, err := m.ParseSession(noExpiry); err == nil {
		t.Fatal("expected token without exp to fail")
	}
}

func TestEd25519SessionWithKeyID(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Role:          "authenticated",
		Audience:      "authenticated",
		KeyID:         "k1",
		VerifyKeys:    map[string][]byte{"k1": pub},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, _, err := m.CreateSession("u", time.Now())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := m.ParseSession(token); err != nil {
		t.Fatalf("parse: %v", err)
	}

	other, _ := newEdKeys(t)
	m2, err := NewManager(Config{
		TTL:           time.Hour,
		SigningMethod: MethodEd25519,
		PublicKey:     other,
		Role:          "authenticated",
		VerifyKeys:    map[string][]byte{"k2": other},
	})
	if err != nil {
		t.Fatalf("new manager 2: %v", err)
	}
	if _, err := m2.ParseSession(token); err == nil {
		t.Fatal("expected unknown kid failure")
	}
	if _, _, err := m2.CreateSession("u", time.Now()); err == nil {
		t.Fatal("expected verify-only manager to refuse signing")
	}
}
