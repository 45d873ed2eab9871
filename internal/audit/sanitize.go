package audit

// redacted replaces values whose keys are on the deny list.
const redacted = "[REDACTED]"

// denyList names detail fields that must never reach the ledger. Matching is
// exact on lower-cased keys.
var denyList = map[string]bool{
	"password":            true,
	"password_hash":       true,
	"hashed_password":     true,
	"secret":              true,
	"token":               true,
	"access_token":        true,
	"refresh_token":       true,
	"api_key":             true,
	"apikey":              true,
	"bank_account":        true,
	"bank_account_number": true,
	"account_number":      true,
	"iban":                true,
	"national_id":         true,
	"national_id_number":  true,
	"passport_number":     true,
	"ssn":                 true,
}

// Sanitize returns a deep copy of details with deny-listed keys redacted,
// including inside nested maps. The input is never mutated.
func Sanitize(details map[string]any) map[string]any {
	if details == nil {
		return nil
	}
	out := make(map[string]any, len(details))
	for k, v := range details {
		if denyList[lower(k)] {
			out[k] = redacted
			continue
		}
		switch nested := v.(type) {
		case map[string]any:
			out[k] = Sanitize(nested)
		default:
			out[k] = v
		}
	}
	return out
}

// lower avoids importing strings for a hot single-purpose loop.
func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
