package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginAllowed(t *testing.T) {
	patterns := []string{"clipdigest.io", "*.clipdigest.io", "localhost:*"}

	assert.True(t, originAllowed(patterns, "https://clipdigest.io"))
	assert.True(t, originAllowed(patterns, "https://app.clipdigest.io"))
	assert.True(t, originAllowed(patterns, "http://localhost:5173"))
	assert.True(t, originAllowed(patterns, "http://localhost:3000"))

	assert.False(t, originAllowed(patterns, "https://clipdigest.io.evil.com"))
	assert.False(t, originAllowed(patterns, "https://example.com"))
	assert.False(t, originAllowed(nil, "https://clipdigest.io"))
}

func TestOriginAllowedBareHost(t *testing.T) {
	// some clients send the Origin header without a scheme
	assert.True(t, originAllowed([]string{"clipdigest.io"}, "clipdigest.io"))
}
