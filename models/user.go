package models

import (
	"time"

	"gorm.io/gorm"
)

// UserStatus mirrors the account status owned by the profile service.
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// RewardUser is a local snapshot of user data needed for rewards.
// Profile-owned fields (status, is_partnership, active_badge) are populated
// via sync worker from the Profile Service; reward-owned fields (points,
// counters, referral code) are mutated only by this service.
type RewardUser struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID

	// Reward-owned state
	Points            int64      `gorm:"default:0" json:"points"`
	TotalPointsEarned int64      `gorm:"default:0" json:"total_points_earned"`
	PointsLastUpdated *time.Time `json:"points_last_updated,omitempty"`
	ReferralCode      string     `gorm:"index;size:12" json:"referral_code"`
	ReferralCount     int64      `gorm:"default:0" json:"referral_count"`
	ReferredBy        *string    `gorm:"index" json:"referred_by,omitempty"` // referrer's ExternalUserID

	// Profile-owned state (synced)
	Status        UserStatus `gorm:"type:varchar(16);default:'active';index" json:"status"`
	IsPartnership bool       `gorm:"default:false" json:"is_partnership"`
	ActiveBadge   *string    `gorm:"size:64" json:"active_badge,omitempty"` // BadgeType code

	Timestamps
}

// EnsureUserIndexes enforces referral code uniqueness without tripping over
// the empty string: users exist before they ever request a code, so '' must
// not collide. AutoMigrate cannot express partial indexes.
const EnsureUserIndexes = `CREATE UNIQUE INDEX IF NOT EXISTS idx_reward_users_referral_code
ON reward_users (referral_code)
WHERE referral_code <> ''`

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
