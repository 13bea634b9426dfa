package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"split-rewards-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Quests retired before the catalog moved to the database. Kept as a deny-list
// so historical QuestRecords survive while new completions are rejected.
var retiredQuestTypes = map[string]bool{
	"top_up_bonus":  true,
	"early_adopter": true,
}

// Default quest catalog, seeded at startup. Every code must resolve in the
// reward tables.
var defaultQuests = []models.QuestDefinition{
	{Code: TaskExportSeedPhrase, Title: "Back up your seed phrase"},
	{Code: TaskCreateFirstSplit, Title: "Create your first split"},
	{Code: TaskInviteFriend, Title: "Invite a friend"},
	{Code: TaskFriendFirstSplit, Title: "Friend completes their first split"},
}

// QuestTracker tracks at-most-once completion of named quests and triggers the
// season-resolved award through the ledger.
type QuestTracker struct {
	DB         *gorm.DB
	Users      *UserDirectory
	Calculator *RewardCalculator
	Ledger     *PointsLedger
	Season     int
}

func NewQuestTracker(db *gorm.DB, users *UserDirectory, calc *RewardCalculator, ledger *PointsLedger, season int) *QuestTracker {
	return &QuestTracker{DB: db, Users: users, Calculator: calc, Ledger: ledger, Season: season}
}

// SeedQuestCatalog inserts the default quest definitions, skipping existing codes.
func (s *QuestTracker) SeedQuestCatalog() error {
	for _, quest := range defaultQuests {
		var count int64
		if err := s.DB.Model(&models.QuestDefinition{}).Where("code = ?", quest.Code).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			quest.ID = uuid.NewString()
			if err := s.DB.Create(&quest).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// RegisterQuest adds a quest definition with a slugified code. The code must
// resolve in the reward tables, otherwise completions could never pay out.
// "Export Seed Phrase" → "export_seed_phrase".
func (s *QuestTracker) RegisterQuest(title string) (*models.QuestDefinition, error) {
	code := strings.ReplaceAll(slug.MakeLang(title, "en"), "-", "_")
	if _, ok := StandardRewards[code]; !ok {
		return nil, fmt.Errorf("%w: no reward configured for %q", ErrUnknownTask, code)
	}
	quest := models.QuestDefinition{ID: uuid.NewString(), Code: code, Title: title}
	if err := s.DB.Create(&quest).Error; err != nil {
		return nil, err
	}
	return &quest, nil
}

// RetireQuest marks a quest so new completions are rejected.
func (s *QuestTracker) RetireQuest(code string) error {
	result := s.DB.Model(&models.QuestDefinition{}).Where("code = ?", code).Update("retired", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %q", ErrUnknownQuest, code)
	}
	return nil
}

// CompleteQuest transitions (user, questType) from NotStarted to Completed and
// awards the season-resolved reward. The mark and the award are two sequential
// writes; an award failure rolls the mark back so the quest can be retried.
func (s *QuestTracker) CompleteQuest(userID, questType string) (*AwardResult, error) {
	if retiredQuestTypes[questType] {
		return nil, fmt.Errorf("%w: %q", ErrQuestRetired, questType)
	}

	var def models.QuestDefinition
	if err := s.DB.Where("code = ?", questType).First(&def).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownQuest, questType)
		}
		return nil, err
	}
	if def.Retired {
		return nil, fmt.Errorf("%w: %q", ErrQuestRetired, questType)
	}

	user, err := s.Users.GetUser(userID)
	if err != nil {
		return nil, err
	}

	record, created, err := s.markCompleted(userID, questType)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("%w: %q", ErrAlreadyCompleted, questType)
	}

	reward, err := s.Calculator.GetReward(questType, s.Season, user.IsPartnership)
	if err != nil {
		s.rollbackMark(record)
		return nil, err
	}
	points := s.Calculator.CalculatePoints(reward, 0)
	if points <= 0 {
		// Zero-valued quest for this season: completed, nothing to pay out.
		return &AwardResult{Multiplier: 1, TotalPoints: user.Points}, nil
	}

	season := s.Season
	taskType := questType
	result, err := s.Ledger.Award(userID, points, models.SourceQuestCompletion, questType,
		fmt.Sprintf("Quest completed: %s", def.Title), &season, &taskType)
	if err != nil {
		// Compensating action: un-mark so the quest can be retried. A crash
		// before this line leaves a completed-but-unpaid record for the
		// reconciliation pass to pick up.
		s.rollbackMark(record)
		return nil, err
	}

	if err := s.DB.Model(&models.QuestRecord{}).Where("id = ?", record.ID).
		Update("points", result.Awarded).Error; err != nil {
		log.Printf("⚠️ [QUESTS] Points backfill failed for quest record %s: %v", record.ID, err)
	}

	log.Printf("[QUESTS] Completed: user=%s quest=%s points=%d", userID, questType, result.Awarded)
	return result, nil
}

// markCompleted flips the record to completed, creating it on first attempt.
// Returns created=false when the quest was already completed.
func (s *QuestTracker) markCompleted(userID, questType string) (*models.QuestRecord, bool, error) {
	now := time.Now()

	var record models.QuestRecord
	err := s.DB.Where("user_id = ? AND quest_type = ?", userID, questType).First(&record).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		record = models.QuestRecord{
			ID:          uuid.NewString(),
			UserID:      userID,
			QuestType:   questType,
			Completed:   true,
			CompletedAt: &now,
		}
		if err := s.DB.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				// Concurrent completion won the race.
				return nil, false, nil
			}
			return nil, false, err
		}
		return &record, true, nil
	case err != nil:
		return nil, false, err
	case record.Completed:
		return &record, false, nil
	default:
		// A rolled-back record from an earlier failed award: re-mark it.
		result := s.DB.Model(&models.QuestRecord{}).
			Where("id = ? AND completed = ?", record.ID, false).
			Updates(map[string]interface{}{"completed": true, "completed_at": now})
		if result.Error != nil {
			return nil, false, result.Error
		}
		if result.RowsAffected == 0 {
			return &record, false, nil
		}
		record.Completed = true
		record.CompletedAt = &now
		return &record, true, nil
	}
}

func (s *QuestTracker) rollbackMark(record *models.QuestRecord) {
	if err := s.DB.Model(&models.QuestRecord{}).Where("id = ?", record.ID).
		Updates(map[string]interface{}{"completed": false, "completed_at": nil}).Error; err != nil {
		log.Printf("⚠️ [QUESTS] Rollback failed for quest record %s: %v", record.ID, err)
	}
}

// GetQuestStatus returns the user's record for a quest, if any.
func (s *QuestTracker) GetQuestStatus(userID, questType string) (*models.QuestRecord, error) {
	var record models.QuestRecord
	err := s.DB.Where("user_id = ? AND quest_type = ?", userID, questType).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
