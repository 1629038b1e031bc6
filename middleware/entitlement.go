package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/disciplineos/disciplineos/models"
	"github.com/disciplineos/disciplineos/utils"
)

const entitlementCacheTTL = time.Minute

// SubscriptionRequired gates track operations behind an active paid
// subscription. The gate fails closed: a missing row, inactive flag,
// expired period end, or an unreadable subscription all deny access.
// Runs after AuthRequired.
func SubscriptionRequired(db *gorm.DB) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		userID, ok := UserID(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
			ctx.Abort()
			return
		}

		entitled, err := checkEntitlement(db, userID)
		if err != nil {
			utils.Sugar.Warnf("subscription lookup failed user=%s err=%v", userID, err)
			utils.Error(ctx, http.StatusPaymentRequired, 40201, "subscription required")
			ctx.Abort()
			return
		}
		if !entitled {
			utils.Error(ctx, http.StatusPaymentRequired, 40201, "subscription required")
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func entitlementCacheKey(userID string) string {
	return "cache:entitled:" + userID
}

// InvalidateEntitlement drops the cached gate decision after a grant/revoke.
func InvalidateEntitlement(userID string) {
	utils.CacheDelete(entitlementCacheKey(userID))
}

func checkEntitlement(db *gorm.DB, userID string) (bool, error) {
	if b, ok := utils.CacheGetBytes(entitlementCacheKey(userID)); ok {
		var cached bool
		if json.Unmarshal(b, &cached) == nil {
			return cached, nil
		}
	}

	var sub models.UserSubscription
	err := db.Where("user_id = ?", userID).First(&sub).Error
	var entitled bool
	switch {
	case err == nil:
		entitled = sub.Entitled(time.Now())
	case errors.Is(err, gorm.ErrRecordNotFound):
		entitled = false
	default:
		return false, err
	}

	utils.CacheSetJSON(entitlementCacheKey(userID), entitled, entitlementCacheTTL)
	return entitled, nil
}
