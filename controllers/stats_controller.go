package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/disciplineos/disciplineos/models"
	"github.com/disciplineos/disciplineos/streak"
	"github.com/disciplineos/disciplineos/utils"
)

// StatsController serves public aggregate numbers for the landing page.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a StatsController.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

const statsCacheKey = "cache:stats:overview"

// Overview returns totals across all tracks: registered users, check-ins
// made today and streaks currently above zero. Cached for a minute since
// the landing page hits this unauthenticated.
func (s *StatsController) Overview(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(statsCacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	today := time.Now().Format("2006-01-02")

	var totalUsers int64
	if err := s.db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load stats")
		return
	}

	var checkinsToday int64
	if err := s.db.Model(&models.StreakRecord{}).
		Where("last_checkin_date = ?", today).
		Count(&checkinsToday).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load stats")
		return
	}

	perTrack := make(map[string]int64, len(streak.TrackNames()))
	for _, name := range streak.TrackNames() {
		var active int64
		if err := s.db.Model(&models.StreakRecord{}).
			Where("track = ? AND current_streak > 0", name).
			Count(&active).Error; err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load stats")
			return
		}
		perTrack[name] = active
	}

	payload := gin.H{
		"total_users":    totalUsers,
		"checkins_today": checkinsToday,
		"active_streaks": perTrack,
	}
	// Cache the full envelope so the hit path can serve raw bytes.
	utils.CacheSetJSON(statsCacheKey, utils.JSONResponse{Message: "success", Data: payload}, time.Minute)

	utils.Success(ctx, payload)
}

// PageViews returns per-route view counts for a given day. Admin only.
func (s *StatsController) PageViews(ctx *gin.Context) {
	if !requireAdminUsername(ctx) {
		return
	}

	date := ctx.DefaultQuery("date", time.Now().Format("2006-01-02"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40070, "invalid date")
		return
	}

	var views []models.PageView
	if err := s.db.Where("date = ?", date).Order("count DESC").Find(&views).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50061, "failed to load page views")
		return
	}
	utils.Success(ctx, gin.H{"date": date, "items": views})
}
