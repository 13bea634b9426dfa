package models

import "time"

// PointsSource identifies the kind of event that produced a ledger entry.
type PointsSource string

const (
	SourceTransactionReward PointsSource = "transaction_reward"
	SourceQuestCompletion   PointsSource = "quest_completion"
	SourceAdminAdjustment   PointsSource = "admin_adjustment"
	SourceSeasonReward      PointsSource = "season_reward"
	SourceReferralReward    PointsSource = "referral_reward"
)

// PointsTransaction is an append-only ledger entry. Rows are never updated or
// deleted; the user's balance is a materialized sum over them.
//
// At most one row may exist per (user_id, source, source_id) when source_id is
// non-empty — enforced by a partial unique index (see EnsureLedgerIndexes).
type PointsTransaction struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string       `gorm:"index;not null" json:"user_id"` // ExternalUserID
	Amount      int64        `gorm:"not null" json:"amount"`        // final amount, after any bonus
	Multiplier  int64        `gorm:"default:1" json:"multiplier"`   // bonus multiplier baked into Amount
	Source      PointsSource `gorm:"type:varchar(32);not null;index" json:"source"`
	SourceID    string       `gorm:"size:255;default:''" json:"source_id"` // idempotency key: tx signature, quest type, referral id
	Description string       `gorm:"type:text" json:"description"`
	Season      *int         `json:"season,omitempty"`
	TaskType    *string      `gorm:"size:64" json:"task_type,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

// EnsureLedgerIndexes creates the partial unique index backing the ledger's
// idempotency contract. AutoMigrate cannot express partial indexes, so this
// runs as raw SQL after migration (postgres and sqlite share the syntax).
const EnsureLedgerIndexes = `CREATE UNIQUE INDEX IF NOT EXISTS idx_points_tx_idempotency
ON points_transactions (user_id, source, source_id)
WHERE source_id <> ''`
