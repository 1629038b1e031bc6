package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/disciplineos/disciplineos/config"
	"github.com/disciplineos/disciplineos/utils"
)

// SingleFlight serializes mutating streak operations per user: while one is
// outstanding, further requests from the same user get 429 "still
// processing" instead of queueing. A minimum inter-action interval damps
// accidental double-submits. The lock is released on every exit path.
func SingleFlight() gin.HandlerFunc {
	interval := time.Duration(config.Get().ActionIntervalMS) * time.Millisecond

	return func(ctx *gin.Context) {
		userID, ok := UserID(ctx)
		if !ok {
			utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
			ctx.Abort()
			return
		}

		if !utils.OpThrottleTry(userID, interval) {
			utils.Error(ctx, http.StatusTooManyRequests, 42902, "too fast, try again in a moment")
			ctx.Abort()
			return
		}

		if !utils.OpLockTryAcquire(userID) {
			utils.Error(ctx, http.StatusTooManyRequests, 42903, "still processing your previous action")
			ctx.Abort()
			return
		}
		defer utils.OpLockRelease(userID)

		ctx.Next()
	}
}
