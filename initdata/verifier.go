package initdata

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

const (
	// HashKey is the field carrying the authentication tag.
	HashKey = "hash"
	// UserKey is the field carrying the JSON identity record.
	UserKey = "user"
)

var (
	// ErrNotAuthenticated is the parent of every verification failure.
	ErrNotAuthenticated = errors.New("init data not authenticated")

	ErrEmptyPayload      = fmt.Errorf("%w: empty payload", ErrNotAuthenticated)
	ErrMalformedPayload  = fmt.Errorf("%w: malformed payload", ErrNotAuthenticated)
	ErrDuplicateKey      = fmt.Errorf("%w: duplicate key", ErrNotAuthenticated)
	ErrMissingHash       = fmt.Errorf("%w: missing hash", ErrNotAuthenticated)
	ErrSignatureMismatch = fmt.Errorf("%w: signature mismatch", ErrNotAuthenticated)
	ErrMissingUser       = fmt.Errorf("%w: missing user", ErrNotAuthenticated)
	ErrInvalidUser       = fmt.Errorf("%w: invalid user", ErrNotAuthenticated)
)

// Claim is the identity record embedded in the "user" field.
type Claim struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name,omitempty"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	PhotoURL     string `json:"photo_url,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	IsPremium    bool   `json:"is_premium,omitempty"`
}

// Verifier authenticates payloads for one bot. The derived key is computed once
// at construction; a Verifier is safe for concurrent use.
type Verifier struct {
	key [sha256.Size]byte
}

// NewVerifier derives the signing key for botToken.
func NewVerifier(botToken string) (*Verifier, error) {
	if botToken == "" {
		return nil, errors.New("initdata: bot token is required")
	}
	return &Verifier{key: DeriveKey(botToken)}, nil
}

// Verify is a convenience wrapper for one-off verification.
func Verify(raw, botToken string) (*Claim, error) {
	v := &Verifier{key: DeriveKey(botToken)}
	return v.Verify(raw)
}

// Verify authenticates raw and returns the embedded identity. Every error
// returned wraps ErrNotAuthenticated.
func (v *Verifier) Verify(raw string) (*Claim, error) {
	if raw == "" {
		return nil, ErrEmptyPayload
	}

	fields, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	tag, ok := fields[HashKey]
	if !ok || tag == "" {
		return nil, ErrMissingHash
	}
	delete(fields, HashKey)

	expected := v.sign(CanonicalForm(fields))
	if !hmac.Equal([]byte(expected), []byte(tag)) {
		return nil, ErrSignatureMismatch
	}

	userRaw, ok := fields[UserKey]
	if !ok || userRaw == "" {
		return nil, ErrMissingUser
	}

	var claim *Claim
	if err := json.Unmarshal([]byte(userRaw), &claim); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	if claim == nil || claim.ID == 0 {
		return nil, ErrInvalidUser
	}

	return claim, nil
}

func (v *Verifier) sign(canonical string) string {
	mac := hmac.New(sha256.New, v.key[:])
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Parse decodes a URL-encoded payload into its key/value pairs. Keys and values
// use form unescaping ("+" is a space); a pair without "=" has an empty value
// and empty segments are skipped. A key appearing twice is rejected.
func Parse(raw string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(segment, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}

		if _, exists := fields[key]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, key)
		}
		fields[key] = value
	}
	return fields, nil
}

// CanonicalForm renders the data-check string for fields. Any "hash" entry is
// ignored.
func CanonicalForm(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == HashKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
	}
	return b.String()
}

// DeriveKey returns the HMAC key used for botToken: SHA-256 of the token.
func DeriveKey(botToken string) [sha256.Size]byte {
	return sha256.Sum256([]byte(botToken))
}

// Sign returns the lowercase hex tag for fields under botToken.
func Sign(fields map[string]string, botToken string) string {
	v := &Verifier{key: DeriveKey(botToken)}
	return v.sign(CanonicalForm(fields))
}

// Encode builds a signed payload from fields, in sorted key order with the
// hash appended last. It is the inverse of Verify and is meant for tests and
// local tooling; real payloads come from the host platform.
func Encode(fields map[string]string, botToken string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == HashKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		values = append(values, url.QueryEscape(k)+"="+url.QueryEscape(fields[k]))
	}
	values = append(values, HashKey+"="+Sign(fields, botToken))
	return strings.Join(values, "&")
}
