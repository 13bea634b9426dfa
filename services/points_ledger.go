package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"split-rewards-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AwardResult is returned for every successful award, including idempotent
// replays of an earlier one.
type AwardResult struct {
	Awarded     int64 `json:"awarded"`
	TotalPoints int64 `json:"total_points"`
	Duplicate   bool  `json:"duplicate"` // true when an earlier award was replayed
	Multiplier  int64 `json:"multiplier"`
}

// PointsLedger appends immutable award records and maintains each user's
// running balance. The ledger row and the balance increment commit in a single
// transaction, so balance == sum(ledger) holds at every commit point. The
// partial unique index on (user_id, source, source_id) backs the idempotency
// check against concurrent duplicates.
type PointsLedger struct {
	DB    *gorm.DB
	Bonus *CommunityBadgeBonus
}

func NewPointsLedger(db *gorm.DB, bonus *CommunityBadgeBonus) *PointsLedger {
	return &PointsLedger{DB: db, Bonus: bonus}
}

// errDuplicateRace aborts the award transaction when the unique index catches
// a concurrent duplicate. Postgres poisons a transaction after a failed
// insert, so the winner's row must be replayed in a fresh one.
var errDuplicateRace = errors.New("concurrent duplicate award")

// Award records amount points for a user. When sourceID is non-empty and a
// ledger row already exists for (user, source, sourceID), the original result
// is returned and nothing is written.
func (s *PointsLedger) Award(userID string, amount int64, source models.PointsSource, sourceID, description string, season *int, taskType *string) (*AwardResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	var result AwardResult
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var user models.RewardUser
		if err := tx.Where("external_user_id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
			}
			return err
		}

		if sourceID != "" {
			if done, err := s.replayExisting(tx, &result, userID, source, sourceID, user.Points); err != nil {
				return err
			} else if done {
				return nil
			}
		}

		finalAmount := amount
		multiplier := int64(1)
		if source != models.SourceAdminAdjustment && s.Bonus != nil {
			bonus := s.Bonus.Apply(amount, userID)
			finalAmount = bonus.FinalAmount
			multiplier = bonus.Multiplier
			if bonus.Multiplier > 1 {
				description = fmt.Sprintf("%s (%dx community badge bonus)", description, bonus.Multiplier)
			}
		}

		entry := models.PointsTransaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			Amount:      finalAmount,
			Multiplier:  multiplier,
			Source:      source,
			SourceID:    sourceID,
			Description: description,
			Season:      season,
			TaskType:    taskType,
		}
		if err := tx.Create(&entry).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) && sourceID != "" {
				return errDuplicateRace
			}
			return err
		}

		now := time.Now()
		update := tx.Model(&models.RewardUser{}).
			Where("external_user_id = ?", userID).
			Updates(map[string]interface{}{
				"points":              gorm.Expr("points + ?", finalAmount),
				"total_points_earned": gorm.Expr("total_points_earned + ?", finalAmount),
				"points_last_updated": now,
			})
		if update.Error != nil {
			return update.Error
		}

		result = AwardResult{
			Awarded:     finalAmount,
			TotalPoints: user.Points + finalAmount,
			Multiplier:  multiplier,
		}
		return nil
	})
	if errors.Is(err, errDuplicateRace) {
		// Lost the race against a concurrent duplicate: the transaction rolled
		// back, replay the winner's row on a fresh connection.
		var user models.RewardUser
		if uerr := s.DB.Where("external_user_id = ?", userID).First(&user).Error; uerr != nil {
			return nil, uerr
		}
		done, rerr := s.replayExisting(s.DB, &result, userID, source, sourceID, user.Points)
		if rerr != nil {
			return nil, rerr
		}
		if !done {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if result.Duplicate {
		log.Printf("[LEDGER] Duplicate award suppressed: user=%s source=%s source_id=%s", userID, source, sourceID)
	} else {
		log.Printf("[LEDGER] Awarded %d points: user=%s source=%s source_id=%s balance=%d",
			result.Awarded, userID, source, sourceID, result.TotalPoints)
	}
	return &result, nil
}

// replayExisting fills result from a previously recorded award, if any.
func (s *PointsLedger) replayExisting(tx *gorm.DB, result *AwardResult, userID string, source models.PointsSource, sourceID string, balance int64) (bool, error) {
	var existing models.PointsTransaction
	err := tx.Where("user_id = ? AND source = ? AND source_id = ?", userID, source, sourceID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	multiplier := existing.Multiplier
	if multiplier < 1 {
		multiplier = 1 // rows written before the column existed
	}
	*result = AwardResult{
		Awarded:     existing.Amount,
		TotalPoints: balance,
		Duplicate:   true,
		Multiplier:  multiplier,
	}
	return true, nil
}

// History returns the user's ledger entries, newest first, optionally filtered
// by season. page is 1-based.
func (s *PointsLedger) History(userID string, page, size int, season *int) ([]models.PointsTransaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}

	query := s.DB.Model(&models.PointsTransaction{}).Where("user_id = ?", userID)
	if season != nil {
		query = query.Where("season = ?", *season)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.PointsTransaction
	err := query.Order("created_at DESC").
		Limit(size).Offset((page - 1) * size).
		Find(&entries).Error
	return entries, total, err
}

// SumForUser recomputes the balance from the ledger. Used by the audit job to
// detect drift between the materialized balance and the source of truth.
func (s *PointsLedger) SumForUser(userID string) (int64, error) {
	var sum int64
	err := s.DB.Model(&models.PointsTransaction{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error
	return sum, err
}
