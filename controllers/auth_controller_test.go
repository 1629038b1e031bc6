package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidEmail(t *testing.T) {
	assert.True(t, validEmail("user@example.com"))
	assert.True(t, validEmail("a.b+c@sub.example.co"))

	assert.False(t, validEmail(""))
	assert.False(t, validEmail("userexample.com"))
	assert.False(t, validEmail("@example.com"))
	assert.False(t, validEmail("user@"))
	assert.False(t, validEmail("user@nodot"))
	assert.False(t, validEmail("user name@example.com"))
}

func TestValidUsername(t *testing.T) {
	assert.True(t, validUsername("max"))
	assert.True(t, validUsername("day-one"))
	assert.False(t, validUsername("x"))
	assert.False(t, validUsername("has space"))
	assert.False(t, validUsername("emoji🔥"))
}

func TestSanitizeUsername(t *testing.T) {
	assert.Equal(t, "octocat", sanitizeUsername("OctoCat"))
	assert.Equal(t, "jane_doe", sanitizeUsername("jane.doe"))
	assert.Equal(t, "", sanitizeUsername("___"))
	assert.Equal(t, "", sanitizeUsername("漢字"))
}

func TestFallback(t *testing.T) {
	assert.Equal(t, "first", fallback("first", "second"))
	assert.Equal(t, "second", fallback("  ", "second"))
	assert.Equal(t, "", fallback("", " "))
}
