package consent

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Canonicalize renders a consent payload as a stable string: keys sorted,
// deterministic separators, nested maps flattened recursively. Two payloads
// with the same content always canonicalize identically regardless of map
// iteration order.
func Canonicalize(data map[string]any) string {
	if len(data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("&")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(canonicalValue(data[k]))
	}
	return b.String()
}

func canonicalValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case map[string]any:
		return "{" + Canonicalize(val) + "}"
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = canonicalValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case float64:
		// JSON numbers decode as float64; render integers without a point
		// so 1 and 1.0 canonicalize identically.
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Fingerprint computes the deterministic digest binding a consent payload to
// its capture context: SHA-256 over canonical|timestamp|ip|userAgent, hex
// encoded. Pure: same inputs, same digest, always.
func Fingerprint(data map[string]any, capturedAt time.Time, ip, userAgent string) string {
	material := strings.Join([]string{
		Canonicalize(data),
		capturedAt.UTC().Format(time.RFC3339),
		ip,
		userAgent,
	}, "|")
	sum := sha256.Sum256([]byte(material))
	return hex.EncodeToString(sum[:])
}

// VerifyRecord recomputes the digest from the record's stored fields and
// compares it with the stored fingerprint. Any mismatch means the record was
// altered after capture; callers must report it, never repair it.
func VerifyRecord(r *Record) bool {
	if r == nil {
		return false
	}
	return Fingerprint(r.Payload, r.CapturedAt, r.IPAddress, r.UserAgent) == r.Fingerprint
}
