package streak

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/disciplineos/disciplineos/models"
)

// memStore is an in-memory Store with the same locked-mutation contract as
// the database-backed one.
type memStore struct {
	mu      sync.Mutex
	records map[string]*models.StreakRecord
}

func newMemStore() *memStore {
	return &memStore{records: make(map[string]*models.StreakRecord)}
}

func (m *memStore) key(userID, track string) string { return userID + "/" + track }

func (m *memStore) Get(userID, track string) (*models.StreakRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[m.key(userID, track)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memStore) Mutate(userID, track string, fn func(cur *models.StreakRecord) (*models.StreakRecord, error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cur *models.StreakRecord
	if rec, ok := m.records[m.key(userID, track)]; ok {
		cp := *rec
		cur = &cp
	}
	out, err := fn(cur)
	if err != nil {
		return err
	}
	if out != nil {
		m.records[m.key(userID, track)] = out
	}
	return nil
}

func engineFor(t *testing.T, name string) (*Engine, *memStore) {
	t.Helper()
	track, ok := LookupTrack(name)
	require.True(t, ok)
	store := newMemStore()
	return NewEngine(store, track), store
}

func TestLoadStateNoRecord(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.DisplayedDay)
	assert.False(t, view.HasCommitment)
	assert.Equal(t, "No script saved yet. Your first check-in will lock it in.", view.Commitment)
}

func TestLoadStateStoreErrorSurfaces(t *testing.T) {
	track, _ := LookupTrack("monkmode")
	eng := NewEngine(failingStore{}, track)

	_, err := eng.LoadState("u1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

type failingStore struct{}

func (failingStore) Get(string, string) (*models.StreakRecord, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Mutate(string, string, func(*models.StreakRecord) (*models.StreakRecord, error)) error {
	return errors.New("connection refused")
}

func TestFirstCheckInLocksTextAndStartsAtOne(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	res, err := eng.CheckIn("u1", "deep work until noon", "2026-08-30", "09:15:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInAccepted, res.Status)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 1, res.DisplayedDay)

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.True(t, view.HasCommitment)
	assert.Equal(t, "deep work until noon", view.Commitment)
	assert.Equal(t, "2026-08-30", view.LastCheckinDate)
	assert.Equal(t, "09:15:00", view.LastCheckinTime)
}

func TestSameDayCheckInIsDuplicate(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "deep work", "2026-08-30", "09:15:00")
	require.NoError(t, err)

	res, err := eng.CheckIn("u1", "deep work", "2026-08-30", "21:40:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInDuplicate, res.Status)
	assert.Equal(t, 1, res.Streak)

	// even a different text is a duplicate once today is already counted
	res, err = eng.CheckIn("u1", "something else", "2026-08-30", "22:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInDuplicate, res.Status)

	// the informational time refreshes, the streak does not
	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentStreak)
	assert.Equal(t, "22:00:00", view.LastCheckinTime)
}

func TestNextDayCheckInIncrements(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "deep work", "2026-08-30", "09:00:00")
	require.NoError(t, err)

	res, err := eng.CheckIn("u1", "deep work", "2026-08-31", "08:30:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInAccepted, res.Status)
	assert.Equal(t, 2, res.Streak)
}

func TestMismatchLeavesRecordUntouched(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "deep work", "2026-08-30", "09:00:00")
	require.NoError(t, err)

	res, err := eng.CheckIn("u1", "DEEP WORK", "2026-08-31", "08:30:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInMismatch, res.Status)
	assert.Equal(t, 1, res.Streak)

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.CurrentStreak)
	assert.Equal(t, "2026-08-30", view.LastCheckinDate)
	assert.Equal(t, "deep work", view.Commitment)
}

func TestNormalizedEquivalentTextAccepted(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "my script", "2026-08-30", "09:00:00")
	require.NoError(t, err)

	// byte-different but sanitizes to the same text
	res, err := eng.CheckIn("u1", "my script  \r\n", "2026-08-31", "09:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInAccepted, res.Status)
	assert.Equal(t, 2, res.Streak)
}

func TestCheckInRejectsBadInput(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "   \n ", "2026-08-30", "09:00:00")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = eng.CheckIn("u1", "text", "30/08/2026", "09:00:00")
	assert.ErrorIs(t, err, ErrBadDate)

	_, err = eng.CheckIn("u1", "text", "2026-08-30", "9am")
	assert.ErrorIs(t, err, ErrBadTime)
}

func TestCheckInRejectsBackwardDate(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "text", "2026-08-30", "09:00:00")
	require.NoError(t, err)

	_, err = eng.CheckIn("u1", "text", "2026-08-29", "09:00:00")
	assert.ErrorIs(t, err, ErrStaleDate)
}

func TestSaveCommitmentNeverTouchesStreak(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "old text", "2026-08-30", "09:00:00")
	require.NoError(t, err)

	require.NoError(t, eng.SaveCommitment("u1", "new text", nil))

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, "new text", view.Commitment)
	assert.Equal(t, 1, view.CurrentStreak)
	assert.Equal(t, "2026-08-30", view.LastCheckinDate)
}

func TestSaveThenCheckInNextDay(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "old text", "2026-08-30", "09:00:00")
	require.NoError(t, err)
	require.NoError(t, eng.SaveCommitment("u1", "new text", nil))

	// the saved text is the new baseline
	res, err := eng.CheckIn("u1", "new text", "2026-08-31", "09:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInAccepted, res.Status)
	assert.Equal(t, 2, res.Streak)

	res, err = eng.CheckIn("u1", "old text", "2026-09-01", "09:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInMismatch, res.Status)
}

func TestSaveCommitmentRejectsEmpty(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")
	assert.ErrorIs(t, eng.SaveCommitment("u1", " \n ", nil), ErrEmptyInput)
}

func TestSaveCommitmentAllowedItems(t *testing.T) {
	eng, _ := engineFor(t, "nosocial")

	require.NoError(t, eng.SaveCommitment("u1", "only educational content", []string{" alice ", "bob", "alice"}))

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, view.AllowedItems)

	// nil items leaves the saved list alone
	require.NoError(t, eng.SaveCommitment("u1", "updated statement", nil))
	view, err = eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, view.AllowedItems)
}

func TestResetPreservesCommitment(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "deep work", "2026-08-30", "09:00:00")
	require.NoError(t, err)
	_, err = eng.SetStartingOffset("u1", 40)
	require.NoError(t, err)

	require.NoError(t, eng.ResetStreak("u1"))

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentStreak)
	assert.Equal(t, 0, view.StartingDay)
	assert.Equal(t, 0, view.DisplayedDay)
	assert.Empty(t, view.LastCheckinDate)
	assert.True(t, view.HasCommitment)
	assert.Equal(t, "deep work", view.Commitment)
}

func TestResetWithoutRecord(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")
	assert.ErrorIs(t, eng.ResetStreak("u1"), ErrNoRecord)
}

func TestSetStartingOffsetFreshRecord(t *testing.T) {
	eng, _ := engineFor(t, "nofap")

	displayed, err := eng.SetStartingOffset("u1", 30)
	require.NoError(t, err)
	assert.Equal(t, 30, displayed)

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, 30, view.DisplayedDay)
	assert.Equal(t, 0, view.CurrentStreak)
	assert.False(t, view.HasCommitment)
}

func TestSetStartingOffsetWithExistingStreak(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	for i, day := range []string{"2026-08-28", "2026-08-29", "2026-08-30"} {
		res, err := eng.CheckIn("u1", "deep work", day, "09:00:00")
		require.NoError(t, err)
		require.Equal(t, i+1, res.Streak)
	}

	displayed, err := eng.SetStartingOffset("u1", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, displayed)

	// the streak itself is untouched, only the offset moved
	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, 3, view.CurrentStreak)
	assert.Equal(t, 7, view.StartingDay)
}

func TestSetStartingOffsetBelowStreakClampsToZero(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.CheckIn("u1", "deep work", "2026-08-29", "09:00:00")
	require.NoError(t, err)
	_, err = eng.CheckIn("u1", "deep work", "2026-08-30", "09:00:00")
	require.NoError(t, err)

	displayed, err := eng.SetStartingOffset("u1", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, displayed)
}

func TestSetStartingOffsetValidation(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	_, err := eng.SetStartingOffset("u1", -1)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = eng.SetStartingOffset("u1", 5001)
	assert.ErrorIs(t, err, ErrOutOfRange)

	social, _ := engineFor(t, "nosocial")
	_, err = social.SetStartingOffset("u1", 10)
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestStartingOffsetRowThenFirstCheckInLocksText(t *testing.T) {
	eng, _ := engineFor(t, "nofap")

	_, err := eng.SetStartingOffset("u1", 20)
	require.NoError(t, err)

	// the row exists with no text; this check-in establishes the baseline
	res, err := eng.CheckIn("u1", "I am in control", "2026-08-30", "09:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInAccepted, res.Status)
	assert.Equal(t, 1, res.Streak)
	assert.Equal(t, 21, res.DisplayedDay)

	view, err := eng.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, "I am in control", view.Commitment)
}

func TestScenarioTwoDays(t *testing.T) {
	eng, _ := engineFor(t, "monkmode")

	res, err := eng.CheckIn("u1", "text", "2026-08-30", "08:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInAccepted, res.Status)

	res, err = eng.CheckIn("u1", "text", "2026-08-30", "12:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInDuplicate, res.Status)

	res, err = eng.CheckIn("u1", "TEXT", "2026-08-31", "08:00:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInMismatch, res.Status)
	assert.Equal(t, 1, res.Streak)

	res, err = eng.CheckIn("u1", "text", "2026-08-31", "08:05:00")
	require.NoError(t, err)
	assert.Equal(t, CheckInAccepted, res.Status)
	assert.Equal(t, 2, res.Streak)
}

func TestTracksAreIndependent(t *testing.T) {
	store := newMemStore()
	monk, _ := LookupTrack("monkmode")
	nofap, _ := LookupTrack("nofap")
	m := NewEngine(store, monk)
	n := NewEngine(store, nofap)

	_, err := m.CheckIn("u1", "monk text", "2026-08-30", "09:00:00")
	require.NoError(t, err)

	view, err := n.LoadState("u1")
	require.NoError(t, err)
	assert.Equal(t, 0, view.CurrentStreak)
	assert.False(t, view.HasCommitment)
}
