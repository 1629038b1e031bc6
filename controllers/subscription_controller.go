package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/disciplineos/disciplineos/middleware"
	"github.com/disciplineos/disciplineos/models"
	"github.com/disciplineos/disciplineos/utils"
)

// SubscriptionController exposes the caller's entitlement status and an
// admin surface for granting and revoking access. Billing itself happens
// elsewhere; this is the record the entitlement gate reads.
type SubscriptionController struct {
	db *gorm.DB
}

// NewSubscriptionController creates a SubscriptionController.
func NewSubscriptionController(db *gorm.DB) *SubscriptionController {
	return &SubscriptionController{db: db}
}

// GetStatus returns the caller's own subscription state.
func (s *SubscriptionController) GetStatus(ctx *gin.Context) {
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
		return
	}

	var sub models.UserSubscription
	err := s.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Success(ctx, gin.H{"entitled": false, "plan": "", "current_period_end": nil})
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to load subscription")
		return
	}

	utils.Success(ctx, gin.H{
		"entitled":           sub.Entitled(time.Now()),
		"plan":               sub.Plan,
		"current_period_end": sub.CurrentPeriodEnd,
	})
}

type grantRequest struct {
	UserID           string     `json:"user_id" binding:"required"`
	Plan             string     `json:"plan"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// Grant activates a subscription for a user. Admin only.
func (s *SubscriptionController) Grant(ctx *gin.Context) {
	if !requireAdminUsername(ctx) {
		return
	}

	var req grantRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}
	userID := strings.TrimSpace(req.UserID)

	var user models.User
	if err := s.db.Where("id = ?", userID).First(&user).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}

	plan := strings.TrimSpace(req.Plan)
	if plan == "" {
		plan = "manual"
	}
	sub := models.UserSubscription{
		UserID:           userID,
		IsActive:         true,
		Plan:             plan,
		CurrentPeriodEnd: req.CurrentPeriodEnd,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_active", "plan", "current_period_end"}),
	}).Create(&sub).Error
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to grant subscription")
		return
	}
	middleware.InvalidateEntitlement(userID)

	utils.Success(ctx, gin.H{"message": "subscription granted", "user_id": userID})
}

// Revoke deactivates a user's subscription. Admin only.
func (s *SubscriptionController) Revoke(ctx *gin.Context) {
	if !requireAdminUsername(ctx) {
		return
	}

	var req struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40060, "invalid request payload")
		return
	}
	userID := strings.TrimSpace(req.UserID)

	result := s.db.Model(&models.UserSubscription{}).
		Where("user_id = ?", userID).
		Update("is_active", false)
	if result.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to revoke subscription")
		return
	}
	if result.RowsAffected == 0 {
		utils.Error(ctx, http.StatusNotFound, 40423, "no subscription for that user")
		return
	}
	middleware.InvalidateEntitlement(userID)

	utils.Success(ctx, gin.H{"message": "subscription revoked", "user_id": userID})
}

// requireAdminUsername rejects the request with a 403 unless the
// authenticated username is in the configured admin list.
func requireAdminUsername(ctx *gin.Context) bool {
	uname, _ := ctx.Get(middleware.ContextUsernameKey)
	name, _ := uname.(string)
	if !isAdminUsername(name) {
		utils.Error(ctx, http.StatusForbidden, 40310, "admin access required")
		return false
	}
	return true
}
