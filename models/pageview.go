package models

import "time"

// PageView aggregates successful GET hits per day and route, used by the
// public stats endpoint.
type PageView struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Date      time.Time `gorm:"type:date;uniqueIndex:idx_pv_date_path" json:"date"`
	Path      string    `gorm:"size:191;uniqueIndex:idx_pv_date_path" json:"path"`
	Count     int64     `gorm:"default:0" json:"count"`
	UpdatedAt time.Time `json:"updated_at"`
}
