package models

import "time"

// QuestRecord tracks at-most-once completion of a quest per user.
// NotStarted → Completed is the only transition; once completed the record is
// immutable except for the one-time points backfill after the award lands.
type QuestRecord struct {
	ID          string     `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string     `gorm:"uniqueIndex:idx_user_quest;not null" json:"user_id"` // ExternalUserID
	QuestType   string     `gorm:"uniqueIndex:idx_user_quest;size:64;not null" json:"quest_type"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Points      int64      `gorm:"default:0" json:"points"` // actual amount awarded, season-resolved

	Timestamps
}

// QuestDefinition is an admin-registerable quest catalog row. Retired quests
// keep their historical QuestRecords but reject new completions.
type QuestDefinition struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	Code      string    `gorm:"uniqueIndex;size:64;not null" json:"code"` // slugified task identifier
	Title     string    `gorm:"not null" json:"title"`
	Retired   bool      `gorm:"default:false;index" json:"retired"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
