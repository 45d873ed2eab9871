package consent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loancore/pkg/domain"
)

func TestCanonicalize(t *testing.T) {
	t.Run("key order does not matter", func(t *testing.T) {
		a := Canonicalize(map[string]any{"b": "2", "a": "1", "c": "3"})
		b := Canonicalize(map[string]any{"c": "3", "a": "1", "b": "2"})
		assert.Equal(t, "a=1&b=2&c=3", a)
		assert.Equal(t, a, b)
	})

	t.Run("nested maps and arrays are deterministic", func(t *testing.T) {
		got := Canonicalize(map[string]any{
			"terms":  map[string]any{"version": "2.1", "accepted": true},
			"scopes": []any{"credit", "identity"},
		})
		assert.Equal(t, "scopes=[credit,identity]&terms={accepted=true&version=2.1}", got)
	})

	t.Run("json numbers render without trailing point", func(t *testing.T) {
		// Decoded JSON hands us float64 for every number.
		assert.Equal(t, "amount=25000", Canonicalize(map[string]any{"amount": float64(25000)}))
		assert.Equal(t, "rate=3.75", Canonicalize(map[string]any{"rate": 3.75}))
	})

	t.Run("empty payload canonicalizes to empty string", func(t *testing.T) {
		assert.Equal(t, "", Canonicalize(nil))
		assert.Equal(t, "", Canonicalize(map[string]any{}))
	})
}

func TestFingerprint(t *testing.T) {
	capturedAt := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
	payload := map[string]any{"terms_version": "3.0", "accepted": true}

	t.Run("deterministic", func(t *testing.T) {
		a := Fingerprint(payload, capturedAt, "198.51.100.7", "Mozilla/5.0")
		b := Fingerprint(payload, capturedAt, "198.51.100.7", "Mozilla/5.0")
		assert.Equal(t, a, b)
		assert.Len(t, a, 64) // hex SHA-256
	})

	t.Run("every input participates in the digest", func(t *testing.T) {
		base := Fingerprint(payload, capturedAt, "198.51.100.7", "Mozilla/5.0")
		assert.NotEqual(t, base, Fingerprint(map[string]any{"terms_version": "3.1", "accepted": true}, capturedAt, "198.51.100.7", "Mozilla/5.0"))
		assert.NotEqual(t, base, Fingerprint(payload, capturedAt.Add(time.Second), "198.51.100.7", "Mozilla/5.0"))
		assert.NotEqual(t, base, Fingerprint(payload, capturedAt, "198.51.100.8", "Mozilla/5.0"))
		assert.NotEqual(t, base, Fingerprint(payload, capturedAt, "198.51.100.7", "curl/8.0"))
	})

	t.Run("timezone does not change the digest", func(t *testing.T) {
		shifted := capturedAt.In(time.FixedZone("CET", 3600))
		assert.Equal(t,
			Fingerprint(payload, capturedAt, "ip", "ua"),
			Fingerprint(payload, shifted, "ip", "ua"),
		)
	})
}

func TestVerifyRecord(t *testing.T) {
	newRecord := func() *Record {
		capturedAt := time.Date(2026, 2, 14, 10, 30, 0, 0, time.UTC)
		payload := map[string]any{"terms_version": "3.0"}
		return &Record{
			ID:          domain.NewConsentID(),
			ActorID:     domain.NewActorID(),
			ConsentType: TypeTermsAndConditions,
			Payload:     payload,
			Fingerprint: Fingerprint(payload, capturedAt, "198.51.100.7", "Mozilla/5.0"),
			CapturedAt:  capturedAt,
			IPAddress:   "198.51.100.7",
			UserAgent:   "Mozilla/5.0",
		}
	}

	t.Run("intact record verifies", func(t *testing.T) {
		require.True(t, VerifyRecord(newRecord()))
	})

	t.Run("any tampered field fails verification", func(t *testing.T) {
		tampered := newRecord()
		tampered.Payload["terms_version"] = "9.9"
		assert.False(t, VerifyRecord(tampered))

		tampered = newRecord()
		tampered.CapturedAt = tampered.CapturedAt.Add(time.Minute)
		assert.False(t, VerifyRecord(tampered))

		tampered = newRecord()
		tampered.IPAddress = "203.0.113.1"
		assert.False(t, VerifyRecord(tampered))

		tampered = newRecord()
		flip := "0"
		if tampered.Fingerprint[63] == '0' {
			flip = "1"
		}
		tampered.Fingerprint = tampered.Fingerprint[:63] + flip
		assert.False(t, VerifyRecord(tampered))
	})

	t.Run("nil record fails", func(t *testing.T) {
		assert.False(t, VerifyRecord(nil))
	})
}
