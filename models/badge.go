package models

import "time"

// BadgeType: static badge catalog (seeded at startup, extendable via DB)
type BadgeType struct {
	ID          string `gorm:"primaryKey;type:uuid"`
	Code        string `gorm:"uniqueIndex;not null"` // e.g., "COMMUNITY_OG", "EARLY_BIRD"
	Name        string `gorm:"not null"`
	Description string
	IconURL     string    `gorm:"type:text"`
	IsCommunity bool      `gorm:"default:false"` // community badges double most point awards
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// Seed catalog. Cosmetic unlocking lives in the asset service; this table only
// carries what the bonus path needs to know about a badge code.
var BadgeCatalog = []BadgeType{
	{
		Code:        "COMMUNITY_OG",
		Name:        "Community OG",
		Description: "Founding community member",
		IsCommunity: true,
	},
	{
		Code:        "COMMUNITY_MOD",
		Name:        "Community Moderator",
		Description: "Active community moderator",
		IsCommunity: true,
	},
	{
		Code:        "EARLY_BIRD",
		Name:        "Early Bird",
		Description: "Joined during the first season",
		IsCommunity: false,
	},
	{
		Code:        "BIG_SPLITTER",
		Name:        "Big Splitter",
		Description: "Created 100 splits",
		IsCommunity: false,
	},
}
