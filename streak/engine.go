package streak

import (
	"errors"
	"strings"
	"time"

	"github.com/disciplineos/disciplineos/models"
)

// Input errors. These are reported before any store access and are
// recoverable by re-entry.
var (
	ErrEmptyInput  = errors.New("streak: input text is empty")
	ErrBadDate     = errors.New("streak: invalid check-in date")
	ErrBadTime     = errors.New("streak: invalid check-in time")
	ErrStaleDate   = errors.New("streak: check-in date precedes last recorded check-in")
	ErrOutOfRange  = errors.New("streak: starting day out of range")
	ErrUnsupported = errors.New("streak: operation not supported by this track")
	// ErrNoRecord reports a reset against a user who has no row yet. It is
	// a user-facing outcome, not a failure, and must stay distinguishable
	// from store errors.
	ErrNoRecord = errors.New("streak: no record to reset")
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// CheckInStatus tags the outcome of a check-in. All three are valid results
// of the state machine rather than errors.
type CheckInStatus string

const (
	CheckInAccepted  CheckInStatus = "accepted"
	CheckInDuplicate CheckInStatus = "already_checked_in"
	CheckInMismatch  CheckInStatus = "mismatch"
)

// CheckInResult carries the decision plus the derived view numbers.
type CheckInResult struct {
	Status       CheckInStatus `json:"status"`
	Streak       int           `json:"current_streak"`
	DisplayedDay int           `json:"displayed_day"`
	Date         string        `json:"checkin_date"`
	Time         string        `json:"checkin_time"`
}

// ViewState is the read model for one track page.
type ViewState struct {
	Track           string   `json:"track"`
	Title           string   `json:"title"`
	DisplayedDay    int      `json:"displayed_day"`
	CurrentStreak   int      `json:"current_streak"`
	StartingDay     int      `json:"starting_day_offset"`
	Commitment      string   `json:"commitment_text"`
	HasCommitment   bool     `json:"has_commitment"`
	AllowedItems    []string `json:"allowed_items,omitempty"`
	LastCheckinDate string   `json:"last_checkin_date,omitempty"`
	LastCheckinTime string   `json:"last_checkin_time,omitempty"`
}

// Engine runs the daily check-in state machine for a single track. It holds
// no mutable state of its own; every decision is evaluated against a freshly
// read record inside the store's locked mutation.
type Engine struct {
	store Store
	track Track
}

// NewEngine binds a store and a track configuration.
func NewEngine(store Store, track Track) *Engine {
	return &Engine{store: store, track: track}
}

// Track returns the engine's track configuration.
func (e *Engine) Track() Track {
	return e.track
}

// LoadState returns the derived view for a user. A missing record yields the
// "day 0, nothing saved" view; a store failure is returned as an error so
// the caller can present a degraded read instead of a fake empty state.
func (e *Engine) LoadState(userID string) (ViewState, error) {
	view := ViewState{
		Track:      e.track.Name,
		Title:      e.track.Title,
		Commitment: e.track.CommitmentPlaceholder,
	}

	rec, err := e.store.Get(userID, e.track.Name)
	if errors.Is(err, ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return view, err
	}

	view.CurrentStreak = rec.CurrentStreak
	view.StartingDay = rec.StartingDayOffset
	view.DisplayedDay = rec.DisplayedDay()
	if strings.TrimSpace(rec.CommitmentText) != "" {
		view.Commitment = rec.CommitmentText
		view.HasCommitment = true
	}
	if e.track.SupportsAllowedItems {
		view.AllowedItems = rec.AllowedItems
	}
	if rec.LastCheckinDate != nil {
		view.LastCheckinDate = *rec.LastCheckinDate
	}
	if rec.LastCheckinTime != nil {
		view.LastCheckinTime = *rec.LastCheckinTime
	}
	return view, nil
}

// newRecord is the single construction point for a user's row. First save
// and first check-in both go through it so the two paths converge to the
// same record shape.
func (e *Engine) newRecord(userID, text string) *models.StreakRecord {
	return &models.StreakRecord{
		UserID:         userID,
		Track:          e.track.Name,
		CommitmentText: text,
	}
}

// SaveCommitment sanitizes and stores the commitment text, creating the row
// on first save. Streak fields are never touched here: saving neither resets
// nor advances a streak. For tracks with an allowlist a non-nil items slice
// replaces the stored list.
func (e *Engine) SaveCommitment(userID, rawText string, items []string) error {
	text := Sanitize(rawText, e.track.MaxCommitmentLen)
	if strings.TrimSpace(text) == "" {
		return ErrEmptyInput
	}
	if items != nil && e.track.SupportsAllowedItems {
		items = SanitizeItems(items, e.track.MaxAllowedItems, e.track.MaxAllowedItemLen)
	}

	return e.store.Mutate(userID, e.track.Name, func(cur *models.StreakRecord) (*models.StreakRecord, error) {
		if cur == nil {
			rec := e.newRecord(userID, text)
			if items != nil && e.track.SupportsAllowedItems {
				rec.AllowedItems = items
			}
			return rec, nil
		}
		cur.CommitmentText = text
		if items != nil && e.track.SupportsAllowedItems {
			cur.AllowedItems = items
		}
		return cur, nil
	})
}

// CheckIn runs the once-per-day state machine. today ("2006-01-02") and
// timeOfDay ("15:04:05") come from the caller, which owns timezone policy;
// the engine validates their form and otherwise treats them as opaque.
func (e *Engine) CheckIn(userID, rawText, today, timeOfDay string) (CheckInResult, error) {
	text := Sanitize(rawText, e.track.MaxCommitmentLen)
	if strings.TrimSpace(text) == "" {
		return CheckInResult{}, ErrEmptyInput
	}
	if _, err := time.Parse(dateLayout, today); err != nil {
		return CheckInResult{}, ErrBadDate
	}
	if _, err := time.Parse(timeLayout, timeOfDay); err != nil {
		return CheckInResult{}, ErrBadTime
	}

	var result CheckInResult
	err := e.store.Mutate(userID, e.track.Name, func(cur *models.StreakRecord) (*models.StreakRecord, error) {
		if cur == nil {
			// First check-in: lock the commitment text and start at day 1.
			rec := e.newRecord(userID, text)
			rec.CurrentStreak = 1
			rec.LastCheckinDate = &today
			rec.LastCheckinTime = &timeOfDay
			result = CheckInResult{
				Status:       CheckInAccepted,
				Streak:       1,
				DisplayedDay: rec.DisplayedDay(),
				Date:         today,
				Time:         timeOfDay,
			}
			return rec, nil
		}

		if cur.LastCheckinDate != nil {
			switch {
			case *cur.LastCheckinDate == today:
				// Idempotent re-tap: refresh the informational time only.
				cur.LastCheckinTime = &timeOfDay
				result = CheckInResult{
					Status:       CheckInDuplicate,
					Streak:       cur.CurrentStreak,
					DisplayedDay: cur.DisplayedDay(),
					Date:         today,
					Time:         timeOfDay,
				}
				return cur, nil
			case *cur.LastCheckinDate > today:
				// ISO dates compare lexicographically; the date column
				// never moves backward.
				return nil, ErrStaleDate
			}
		}

		baseline := Sanitize(cur.CommitmentText, e.track.MaxCommitmentLen)
		if strings.TrimSpace(baseline) == "" {
			// Row exists (starting-day upsert) but no text is locked in
			// yet; this check-in establishes the baseline.
			cur.CommitmentText = text
		} else if baseline != text {
			result = CheckInResult{
				Status:       CheckInMismatch,
				Streak:       cur.CurrentStreak,
				DisplayedDay: cur.DisplayedDay(),
			}
			return nil, nil
		}

		cur.CurrentStreak++
		cur.LastCheckinDate = &today
		cur.LastCheckinTime = &timeOfDay
		result = CheckInResult{
			Status:       CheckInAccepted,
			Streak:       cur.CurrentStreak,
			DisplayedDay: cur.DisplayedDay(),
			Date:         today,
			Time:         timeOfDay,
		}
		return cur, nil
	})
	if err != nil {
		return CheckInResult{}, err
	}
	return result, nil
}

// ResetStreak zeroes the streak and clears the check-in history while
// preserving the commitment text and allowlist. ErrNoRecord is reported,
// not swallowed, so the caller can explain why nothing happened.
// Confirmation is the caller's concern; the engine resets unconditionally.
func (e *Engine) ResetStreak(userID string) error {
	return e.store.Mutate(userID, e.track.Name, func(cur *models.StreakRecord) (*models.StreakRecord, error) {
		if cur == nil {
			return nil, ErrNoRecord
		}
		cur.CurrentStreak = 0
		cur.StartingDayOffset = 0
		cur.LastCheckinDate = nil
		cur.LastCheckinTime = nil
		return cur, nil
	})
}

// SetStartingOffset back-dates the displayed day to desiredDay by adjusting
// the offset, never the streak itself. Returns the resulting displayed day.
// Lowering the displayed day is allowed here; confirming it is up to the
// caller.
func (e *Engine) SetStartingOffset(userID string, desiredDay int) (int, error) {
	if !e.track.SupportsStartingDay {
		return 0, ErrUnsupported
	}
	if desiredDay < 0 || desiredDay > e.track.MaxStartingDay {
		return 0, ErrOutOfRange
	}

	var displayed int
	err := e.store.Mutate(userID, e.track.Name, func(cur *models.StreakRecord) (*models.StreakRecord, error) {
		if cur == nil {
			rec := e.newRecord(userID, "")
			rec.StartingDayOffset = desiredDay
			displayed = rec.DisplayedDay()
			return rec, nil
		}
		offset := desiredDay - cur.CurrentStreak
		if offset < 0 {
			offset = 0
		}
		cur.StartingDayOffset = offset
		displayed = cur.DisplayedDay()
		return cur, nil
	})
	if err != nil {
		return 0, err
	}
	return displayed, nil
}
