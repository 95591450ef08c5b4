package meeting

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCode(t *testing.T) {
	codePattern := regexp.MustCompile(`^[A-Z0-9]{8}$`)

	for i := 0; i < 100; i++ {
		code := NewCode()
		assert.Regexp(t, codePattern, code, "expected code to be 8 chars of [A-Z0-9]")
	}
}

func TestFormatJoinCode(t *testing.T) {
	tcases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercase input is uppercased",
			input:    "ab12cd34",
			expected: "AB12CD34",
		},
		{
			name:     "non-alphanumerics removed before truncation",
			input:    "ab-12#cd34",
			expected: "AB12CD34",
		},
		{
			name:     "long input truncated to eight characters",
			input:    "abcdefghij",
			expected: "ABCDEFGH",
		},
		{
			name:     "short input kept as-is",
			input:    "abc",
			expected: "ABC",
		},
		{
			name:     "whitespace stripped",
			input:    " demo 1234 ",
			expected: "DEMO1234",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatJoinCode(tc.input), "expected formatted code to match")
		})
	}
}

func TestValidCode(t *testing.T) {
	tcases := []struct {
		name  string
		code  string
		valid bool
	}{
		{name: "valid code", code: "AB12CD34", valid: true},
		{name: "demo code", code: DemoCode, valid: true},
		{name: "too short", code: "AB12", valid: false},
		{name: "too long", code: "AB12CD345", valid: false},
		{name: "lowercase", code: "ab12cd34", valid: false},
		{name: "punctuation", code: "AB12-D34", valid: false},
		{name: "empty", code: "", valid: false},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.valid, ValidCode(tc.code), "expected validity to match for %q", tc.code)
		})
	}
}
