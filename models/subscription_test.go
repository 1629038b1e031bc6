package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEntitled(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)
	past := now.Add(-time.Minute)

	var nilSub *UserSubscription
	assert.False(t, nilSub.Entitled(now))

	assert.False(t, (&UserSubscription{IsActive: false}).Entitled(now))

	// active with no period end never expires
	assert.True(t, (&UserSubscription{IsActive: true}).Entitled(now))

	assert.True(t, (&UserSubscription{IsActive: true, CurrentPeriodEnd: &future}).Entitled(now))
	assert.False(t, (&UserSubscription{IsActive: true, CurrentPeriodEnd: &past}).Entitled(now))

	// inactive overrides an unexpired period
	assert.False(t, (&UserSubscription{IsActive: false, CurrentPeriodEnd: &future}).Entitled(now))
}
