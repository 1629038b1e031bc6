package streak

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/disciplineos/disciplineos/models"
)

// GormStore persists streak records through GORM. Mutations run inside a
// transaction holding a SELECT ... FOR UPDATE lock on the row, which is what
// makes same-user concurrent check-ins (two tabs) serialize correctly.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialized gorm DB.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Get(userID, track string) (*models.StreakRecord, error) {
	var rec models.StreakRecord
	err := s.db.Where("user_id = ? AND track = ?", userID, track).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("streak: load record: %w", err)
	}
	return &rec, nil
}

func (s *GormStore) Mutate(userID, track string, fn func(cur *models.StreakRecord) (*models.StreakRecord, error)) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var cur *models.StreakRecord
		var rec models.StreakRecord
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND track = ?", userID, track).
			First(&rec).Error
		switch {
		case err == nil:
			cur = &rec
		case errors.Is(err, gorm.ErrRecordNotFound):
			cur = nil
		default:
			return fmt.Errorf("streak: lock record: %w", err)
		}

		out, err := fn(cur)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}

		if cur == nil {
			// The (user_id, track) unique index rejects the loser of a
			// concurrent first insert; that surfaces as a store error
			// rather than a double-counted streak.
			if err := tx.Create(out).Error; err != nil {
				return fmt.Errorf("streak: insert record: %w", err)
			}
			return nil
		}
		if err := tx.Save(out).Error; err != nil {
			return fmt.Errorf("streak: update record: %w", err)
		}
		return nil
	})
}
