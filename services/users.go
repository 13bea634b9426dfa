package services

import (
	"errors"
	"fmt"

	"split-rewards-system/models"

	"gorm.io/gorm"
)

// UserDirectory is the reward service's view of users. This service never
// creates accounts; it reads the synced snapshot and patches reward-owned
// fields only.
type UserDirectory struct {
	DB *gorm.DB
}

func NewUserDirectory(db *gorm.DB) *UserDirectory {
	return &UserDirectory{DB: db}
}

// GetUser fetches the snapshot by external user id.
func (d *UserDirectory) GetUser(externalUserID string) (*models.RewardUser, error) {
	var user models.RewardUser
	err := d.DB.Where("external_user_id = ?", externalUserID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, externalUserID)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByReferralCode looks up the owner of a (already normalized) code.
func (d *UserDirectory) GetUserByReferralCode(code string) (*models.RewardUser, error) {
	var user models.RewardUser
	err := d.DB.Where("referral_code = ?", code).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w", ErrCodeNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// IsActive reports whether the account can participate in referrals.
func IsActive(user *models.RewardUser) bool {
	return user.Status == models.UserStatusActive
}
