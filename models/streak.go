package models

import "time"

// StreakRecord is the single per-user row behind one habit track. All three
// tracks share this shape; track-specific behavior (starting day, allowed
// items) lives in the streak.Track configuration, not in the schema.
//
// LastCheckinDate is a bare calendar date ("2006-01-02") owned by the
// caller's clock; LastCheckinTime ("15:04:05") is informational only and is
// refreshed on repeat same-day check-ins without touching the streak.
type StreakRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            string    `gorm:"size:36;not null;uniqueIndex:idx_streak_user_track" json:"user_id"`
	Track             string    `gorm:"size:32;not null;uniqueIndex:idx_streak_user_track" json:"track"`
	CommitmentText    string    `gorm:"type:text" json:"commitment_text"`
	CurrentStreak     int       `gorm:"default:0" json:"current_streak"`
	StartingDayOffset int       `gorm:"default:0" json:"starting_day_offset"`
	LastCheckinDate   *string   `gorm:"size:10" json:"last_checkin_date"`
	LastCheckinTime   *string   `gorm:"size:8" json:"last_checkin_time"`
	AllowedItems      []string  `gorm:"serializer:json" json:"allowed_items"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// DisplayedDay is the day number shown to the user.
func (r *StreakRecord) DisplayedDay() int {
	if r == nil {
		return 0
	}
	return r.StartingDayOffset + r.CurrentStreak
}
