package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "student@example.com", expected: "s******@*******.com"},
		{input: "a@b.co", expected: "a@*.co"},
		{input: "not-an-email", expected: "[invalid-email]"},
		{input: "", expected: "[invalid-email]"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SanitizedEmail(tt.input), "input %q", tt.input)
	}
}

func TestSanitizeQueryString(t *testing.T) {
	assert.True(t, SanitizeQueryString("email=student@example.com"))
	assert.True(t, SanitizeQueryString("TOKEN=abc123"))
	assert.True(t, SanitizeQueryString("api_key=xyz"))
	assert.False(t, SanitizeQueryString("days=30"))
	assert.False(t, SanitizeQueryString(""))
}
