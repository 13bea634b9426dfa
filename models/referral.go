package models

import (
	"fmt"
	"time"
)

// ReferralStatus is the lifecycle of a referrer→referred relationship.
type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusActive    ReferralStatus = "active"
	ReferralStatusCompleted ReferralStatus = "completed"
	ReferralStatusExpired   ReferralStatus = "expired"
)

// Milestone is one tracked achievement of the referred user.
type Milestone struct {
	Achieved   bool       `json:"achieved"`
	AchievedAt *time.Time `json:"achieved_at,omitempty"`
	Amount     float64    `json:"amount,omitempty"`
}

// ReferralMilestones groups the milestones that gate referral rewards.
type ReferralMilestones struct {
	AccountCreated Milestone `json:"account_created"`
	FirstSplit     Milestone `json:"first_split"`
}

// AwardedReward records one reward paid out for this referral.
type AwardedReward struct {
	Awarded       bool       `json:"awarded"`
	AwardedAt     *time.Time `json:"awarded_at,omitempty"`
	PointsAwarded int64      `json:"points_awarded"`
	Season        int        `json:"season"`
}

// Referral reward ids used as keys of RewardsAwarded.
const (
	ReferralRewardSignup     = "signup"
	ReferralRewardFirstSplit = "first_split"
)

// Referral tracks a referrer→referred relationship and its milestone rewards.
// Both sides are stored as the profile service's external user ids. The
// primary key is deterministic for the ordered pair, so at most one record
// can exist per pair without a separate uniqueness index. Rows are never
// deleted; they form the attribution audit trail.
type Referral struct {
	ID             string `gorm:"primaryKey;size:128" json:"id"` // ref_<referrer>_<referred>
	ReferrerID     string `gorm:"index;not null" json:"referrer_id"`
	ReferredUserID string `gorm:"uniqueIndex;not null" json:"referred_user_id"`

	CodeUsed string         `json:"code_used"`
	Status   ReferralStatus `gorm:"type:varchar(16);default:'pending';index" json:"status"`

	Milestones        ReferralMilestones       `gorm:"type:jsonb;serializer:json" json:"milestones"`
	RewardsAwarded    map[string]AwardedReward `gorm:"type:jsonb;serializer:json" json:"rewards_awarded"`
	TotalPointsEarned int64                    `gorm:"default:0" json:"total_points_earned"`
	LastActivityAt    *time.Time               `json:"last_activity_at,omitempty"`

	Timestamps
}

// ReferralID builds the deterministic primary key for an ordered pair.
func ReferralID(referrerID, referredUserID string) string {
	return fmt.Sprintf("ref_%s_%s", referrerID, referredUserID)
}
