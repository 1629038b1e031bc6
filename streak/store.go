package streak

import (
	"errors"

	"github.com/disciplineos/disciplineos/models"
)

// ErrNotFound is returned by Store.Get when no record exists for the user
// and track. It is distinct from transport failures: a store error must
// never be silently treated as "no record".
var ErrNotFound = errors.New("streak: record not found")

// Store is the durable per-user record store the engine runs against.
type Store interface {
	// Get returns the record for (userID, track), or ErrNotFound.
	Get(userID, track string) (*models.StreakRecord, error)

	// Mutate re-reads the record under an exclusive lock and applies fn to
	// the fresh copy. fn receives nil when no record exists. When fn returns
	// a record it is inserted or updated before the lock is released;
	// returning (nil, nil) leaves the row untouched. Any error from fn
	// aborts the write and is returned unchanged.
	//
	// Decisions that depend on the current row (the check-in state machine)
	// must run inside fn: two concurrent check-ins then serialize on the
	// row lock instead of both reading "not yet checked in today".
	Mutate(userID, track string, fn func(cur *models.StreakRecord) (*models.StreakRecord, error)) error
}
