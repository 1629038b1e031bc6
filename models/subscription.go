package models

import "time"

// UserSubscription stores the paid entitlement flag for a user. The
// entitlement gate treats a missing row, is_active=false, or a past
// current_period_end as "no access" (fail closed).
type UserSubscription struct {
	ID               uint       `gorm:"primaryKey" json:"id"`
	UserID           string     `gorm:"size:36;uniqueIndex;not null" json:"user_id"`
	IsActive         bool       `gorm:"default:false" json:"is_active"`
	Plan             string     `gorm:"size:32" json:"plan"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Entitled reports whether the subscription grants access at the given instant.
func (s *UserSubscription) Entitled(now time.Time) bool {
	if s == nil || !s.IsActive {
		return false
	}
	// A null period end means a non-expiring grant.
	if s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now) {
		return false
	}
	return true
}
