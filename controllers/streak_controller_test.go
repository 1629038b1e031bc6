package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatTimeAmPm(t *testing.T) {
	assert.Equal(t, "12:00:00 AM", FormatTimeAmPm("00:00:00"))
	assert.Equal(t, "9:15:00 AM", FormatTimeAmPm("09:15:00"))
	assert.Equal(t, "12:30:00 PM", FormatTimeAmPm("12:30:00"))
	assert.Equal(t, "11:59:59 PM", FormatTimeAmPm("23:59:59"))
	assert.Equal(t, "9:15 PM", FormatTimeAmPm("21:15"))

	assert.Equal(t, "--", FormatTimeAmPm(""))
	assert.Equal(t, "--", FormatTimeAmPm("25:00:00"))
	assert.Equal(t, "--", FormatTimeAmPm("noon"))
}
