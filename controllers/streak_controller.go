package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/disciplineos/disciplineos/middleware"
	"github.com/disciplineos/disciplineos/streak"
	"github.com/disciplineos/disciplineos/utils"
)

// StreakController exposes the per-track streak engine over HTTP. All
// decisions live in the streak package; this layer resolves the track,
// supplies the caller's clock and phrases outcomes for the UI.
type StreakController struct {
	store streak.Store
}

// NewStreakController creates a controller backed by the gorm record store.
func NewStreakController(db *gorm.DB) *StreakController {
	return &StreakController{store: streak.NewGormStore(db)}
}

// engineFor resolves the :track path segment. Unknown tracks are a 404, not
// an input error.
func (s *StreakController) engineFor(ctx *gin.Context) (*streak.Engine, bool) {
	name := strings.TrimSpace(ctx.Param("track"))
	track, ok := streak.LookupTrack(name)
	if !ok {
		utils.Error(ctx, http.StatusNotFound, 40420, "unknown track")
		return nil, false
	}
	return streak.NewEngine(s.store, track), true
}

// ListTracks returns the track catalog so the UI can render labels and
// limits without hardcoding them.
func (s *StreakController) ListTracks(ctx *gin.Context) {
	items := make([]gin.H, 0, len(streak.TrackNames()))
	for _, name := range streak.TrackNames() {
		t, _ := streak.LookupTrack(name)
		items = append(items, gin.H{
			"name":                   t.Name,
			"title":                  t.Title,
			"commitment_label":       t.CommitmentLabel,
			"max_commitment_len":     t.MaxCommitmentLen,
			"supports_starting_day":  t.SupportsStartingDay,
			"max_starting_day":       t.MaxStartingDay,
			"supports_allowed_items": t.SupportsAllowedItems,
			"max_allowed_items":      t.MaxAllowedItems,
		})
	}
	utils.Success(ctx, gin.H{"tracks": items})
}

// GetState returns the view model for one track page.
func (s *StreakController) GetState(ctx *gin.Context) {
	eng, ok := s.engineFor(ctx)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
		return
	}

	view, err := eng.LoadState(userID)
	if err != nil {
		utils.Sugar.Errorf("load streak state failed track=%s user=%s err=%v", eng.Track().Name, userID, err)
		utils.Error(ctx, http.StatusServiceUnavailable, 50310, "could not load your data")
		return
	}
	utils.Success(ctx, view)
}

type checkInRequest struct {
	Text string `json:"text"`
	// ClientDate/ClientTime carry the caller's local clock; the caller owns
	// timezone policy. Both default to server local time when omitted.
	ClientDate string `json:"client_date"`
	ClientTime string `json:"client_time"`
}

// CheckIn runs the once-per-day check-in. State-machine outcomes (accepted,
// already checked in, mismatch) are 200s with a status tag so the UI can
// phrase them as information rather than failures.
func (s *StreakController) CheckIn(ctx *gin.Context) {
	eng, ok := s.engineFor(ctx)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
		return
	}

	var req checkInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}
	today, timeOfDay := clientClock(req.ClientDate, req.ClientTime)

	result, err := eng.CheckIn(userID, req.Text, today, timeOfDay)
	if err != nil {
		s.rejectCheckIn(ctx, eng, userID, err)
		return
	}

	var message string
	switch result.Status {
	case streak.CheckInAccepted:
		message = fmt.Sprintf("Checked in — %s", FormatTimeAmPm(result.Time))
	case streak.CheckInDuplicate:
		message = fmt.Sprintf("Already checked in today — %s", FormatTimeAmPm(result.Time))
	case streak.CheckInMismatch:
		message = fmt.Sprintf("That doesn't match your saved %s. Retype it exactly to check in.", eng.Track().CommitmentLabel)
	}
	utils.Success(ctx, gin.H{
		"result":  result,
		"message": message,
	})
}

func (s *StreakController) rejectCheckIn(ctx *gin.Context, eng *streak.Engine, userID string, err error) {
	switch {
	case errors.Is(err, streak.ErrEmptyInput):
		utils.Error(ctx, http.StatusBadRequest, 40030, fmt.Sprintf("Type your %s first.", eng.Track().CommitmentLabel))
	case errors.Is(err, streak.ErrBadDate), errors.Is(err, streak.ErrBadTime):
		utils.Error(ctx, http.StatusBadRequest, 40031, "invalid client date or time")
	case errors.Is(err, streak.ErrStaleDate):
		utils.Error(ctx, http.StatusConflict, 40910, "check-in date is older than your last check-in")
	default:
		utils.Sugar.Errorf("check-in failed track=%s user=%s err=%v", eng.Track().Name, userID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "Check-in failed.")
	}
}

type saveCommitmentRequest struct {
	Text         string   `json:"text"`
	AllowedItems []string `json:"allowed_items"`
}

// SaveCommitment stores the commitment text (and, where the track has one,
// the allowlist) without touching the streak.
func (s *StreakController) SaveCommitment(ctx *gin.Context) {
	eng, ok := s.engineFor(ctx)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
		return
	}

	var req saveCommitmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}

	if err := eng.SaveCommitment(userID, req.Text, req.AllowedItems); err != nil {
		if errors.Is(err, streak.ErrEmptyInput) {
			utils.Error(ctx, http.StatusBadRequest, 40030, fmt.Sprintf("Type your %s first.", eng.Track().CommitmentLabel))
			return
		}
		utils.Sugar.Errorf("save commitment failed track=%s user=%s err=%v", eng.Track().Name, userID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "Save failed.")
		return
	}
	utils.Success(ctx, gin.H{"message": "Saved."})
}

// Reset zeroes the streak back to day 0. Confirmation happens in the UI;
// once this endpoint is hit the reset is unconditional.
func (s *StreakController) Reset(ctx *gin.Context) {
	eng, ok := s.engineFor(ctx)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
		return
	}

	if err := eng.ResetStreak(userID); err != nil {
		if errors.Is(err, streak.ErrNoRecord) {
			utils.Error(ctx, http.StatusNotFound, 40421, "nothing to reset yet")
			return
		}
		utils.Sugar.Errorf("reset failed track=%s user=%s err=%v", eng.Track().Name, userID, err)
		utils.Error(ctx, http.StatusInternalServerError, 50032, "Reset failed.")
		return
	}
	utils.Success(ctx, gin.H{"message": "Reset to Day 0."})
}

type startingDayRequest struct {
	Day *int `json:"day"`
}

// SetStartingDay back-dates the displayed day for tracks that support it.
func (s *StreakController) SetStartingDay(ctx *gin.Context) {
	eng, ok := s.engineFor(ctx)
	if !ok {
		return
	}
	userID, ok := middleware.UserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "authorization required")
		return
	}

	var req startingDayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Day == nil {
		utils.Error(ctx, http.StatusBadRequest, 40032, "Enter a valid starting day.")
		return
	}

	displayed, err := eng.SetStartingOffset(userID, *req.Day)
	if err != nil {
		switch {
		case errors.Is(err, streak.ErrUnsupported):
			utils.Error(ctx, http.StatusNotFound, 40422, "this track has no starting day")
		case errors.Is(err, streak.ErrOutOfRange):
			utils.Error(ctx, http.StatusBadRequest, 40032, "Enter a valid starting day.")
		default:
			utils.Sugar.Errorf("set starting day failed track=%s user=%s err=%v", eng.Track().Name, userID, err)
			utils.Error(ctx, http.StatusInternalServerError, 50033, "Could not set starting day.")
		}
		return
	}
	utils.Success(ctx, gin.H{
		"displayed_day": displayed,
		"message":       fmt.Sprintf("Starting day set to %d.", displayed),
	})
}

// clientClock fills missing client date/time with the server's local clock.
func clientClock(date, timeOfDay string) (string, string) {
	now := time.Now()
	if strings.TrimSpace(date) == "" {
		date = now.Format("2006-01-02")
	}
	if strings.TrimSpace(timeOfDay) == "" {
		timeOfDay = now.Format("15:04:05")
	}
	return strings.TrimSpace(date), strings.TrimSpace(timeOfDay)
}

// FormatTimeAmPm renders an HH:MM:SS wall-clock string as h:mm:ss AM/PM for
// user-facing messages. Returns a placeholder on bad input.
func FormatTimeAmPm(t string) string {
	parts := strings.Split(t, ":")
	if len(parts) < 2 {
		return "--"
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return "--"
	}
	ampm := "AM"
	if h >= 12 {
		ampm = "PM"
	}
	hh := (h+11)%12 + 1
	if len(parts) >= 3 {
		return fmt.Sprintf("%d:%s:%s %s", hh, parts[1], parts[2], ampm)
	}
	return fmt.Sprintf("%d:%s %s", hh, parts[1], ampm)
}
