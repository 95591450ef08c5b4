package meeting

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDuration(t *testing.T) {
	tcases := []struct {
		name     string
		seconds  int
		expected string
	}{
		{name: "zero", seconds: 0, expected: "00:00"},
		{name: "seconds only", seconds: 9, expected: "00:09"},
		{name: "minute and seconds", seconds: 65, expected: "01:05"},
		{name: "just under an hour", seconds: 3599, expected: "59:59"},
		{name: "exactly one hour", seconds: 3600, expected: "01:00:00"},
		{name: "hour minute second", seconds: 3661, expected: "01:01:01"},
		{name: "double digit hours", seconds: 36661, expected: "10:11:01"},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, FormatDuration(tc.seconds), "expected formatted duration to match")
		})
	}
}
