package services

import (
	"errors"
	"log"

	"split-rewards-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BadgeLookup resolves a badge code to its definition. Satisfied by
// BadgeService locally; injectable so tests and a future remote asset service
// can swap in.
type BadgeLookup interface {
	GetBadgeInfo(code string) (*models.BadgeType, error)
}

// BadgeService reads the local badge catalog table.
type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

func (s *BadgeService) GetBadgeInfo(code string) (*models.BadgeType, error) {
	var badge models.BadgeType
	if err := s.DB.Where("code = ?", code).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// SeedBadgeCatalog inserts the static catalog, skipping codes that exist.
func (s *BadgeService) SeedBadgeCatalog() error {
	for _, badge := range models.BadgeCatalog {
		var count int64
		if err := s.DB.Model(&models.BadgeType{}).Where("code = ?", badge.Code).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			badge.ID = uuid.NewString()
			if err := s.DB.Create(&badge).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// BonusResult describes how a base award was adjusted.
type BonusResult struct {
	FinalAmount       int64  `json:"final_amount"`
	Multiplier        int64  `json:"multiplier"`
	HasCommunityBadge bool   `json:"has_community_badge"`
	ActiveBadge       string `json:"active_badge,omitempty"`
}

const communityBadgeMultiplier = 2

// CommunityBadgeBonus doubles awards for users holding an active community
// badge. Lookup failures degrade to a 1x multiplier — this path must never
// block an award.
type CommunityBadgeBonus struct {
	Users  *UserDirectory
	Badges BadgeLookup
}

func NewCommunityBadgeBonus(users *UserDirectory, badges BadgeLookup) *CommunityBadgeBonus {
	return &CommunityBadgeBonus{Users: users, Badges: badges}
}

func (b *CommunityBadgeBonus) Apply(baseAmount int64, externalUserID string) BonusResult {
	result := BonusResult{FinalAmount: baseAmount, Multiplier: 1}

	user, err := b.Users.GetUser(externalUserID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Printf("⚠️ [BONUS] User lookup failed for %s, skipping bonus: %v", externalUserID, err)
		}
		return result
	}
	if user.ActiveBadge == nil || *user.ActiveBadge == "" {
		return result
	}

	badge, err := b.Badges.GetBadgeInfo(*user.ActiveBadge)
	if err != nil {
		log.Printf("⚠️ [BONUS] Badge lookup failed for %q, skipping bonus: %v", *user.ActiveBadge, err)
		return result
	}

	result.ActiveBadge = badge.Code
	if badge.IsCommunity {
		result.HasCommunityBadge = true
		result.Multiplier = communityBadgeMultiplier
		result.FinalAmount = baseAmount * communityBadgeMultiplier
	}
	return result
}
