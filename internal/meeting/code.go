package meeting

import (
	"math/rand/v2"
	"strings"
)

// DemoCode is always treated as joinable without a backing meeting record.
const DemoCode = "DEMO1234"

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 8
)

// NewCode returns a shareable meeting code: 8 characters drawn uniformly
// from [A-Z0-9]. Uniqueness is enforced by the store on insert, not here.
func NewCode() string {
	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}

	return string(buf)
}

// FormatJoinCode normalizes user input into code form: non-alphanumeric
// characters are removed, the rest uppercased and truncated to 8 characters.
func FormatJoinCode(input string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(input) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}

		if b.Len() == codeLength {
			break
		}
	}

	return b.String()
}

// ValidCode reports whether code is a well-formed meeting code.
func ValidCode(code string) bool {
	if len(code) != codeLength {
		return false
	}

	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}

	return true
}
