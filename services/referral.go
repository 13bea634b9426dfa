package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"split-rewards-system/models"

	"github.com/gosimple/unidecode"
	"gorm.io/gorm"
)

const (
	CodeMinLen = 6
	CodeMaxLen = 12

	codeCharset         = "ABCDEFGHJKMNPQRSTUVWXYZ23456789" // no 0/O/1/I/L
	maxGenerateAttempts = 10
)

// ValidationResult is what code validation reveals: existence only, never the
// referrer's identity.
type ValidationResult struct {
	Exists bool `json:"exists"`
}

// TrackResult is the outcome of attributing a referred user to a referrer.
type TrackResult struct {
	ReferrerID string `json:"referrer_id"`
	ReferralID string `json:"referral_id"`
	Duplicate  bool   `json:"duplicate"` // the pair was already tracked
}

// ReferralService generates and resolves referral codes, atomically creates
// referral records, and triggers milestone-based rewards through the quest
// tracker and the ledger.
type ReferralService struct {
	DB             *gorm.DB
	Users          *UserDirectory
	Quests         *QuestTracker
	Calculator     *RewardCalculator
	Ledger         *PointsLedger
	Limiter        RateLimiter
	Season         int
	MinSplitAmount float64
}

func NewReferralService(db *gorm.DB, users *UserDirectory, quests *QuestTracker, calc *RewardCalculator, ledger *PointsLedger, limiter RateLimiter, season int, minSplitAmount float64) *ReferralService {
	return &ReferralService{
		DB:             db,
		Users:          users,
		Quests:         quests,
		Calculator:     calc,
		Ledger:         ledger,
		Limiter:        limiter,
		Season:         season,
		MinSplitAmount: minSplitAmount,
	}
}

// NormalizeCode is the single source of truth for "the same code": fold to
// ASCII, uppercase, strip everything outside [A-Z0-9].
func NormalizeCode(code string) string {
	folded := strings.ToUpper(unidecode.Unidecode(code))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validCodeShape(code string) bool {
	if len(code) < CodeMinLen || len(code) > CodeMaxLen {
		return false
	}
	for _, r := range code {
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// generateCode builds a 12-character code: a prefix from the user id, a
// time-derived block, and a random suffix whose length grows with extra
// entropy on collision retries.
func generateCode(externalUserID string, extraEntropy int) string {
	prefix := NormalizeCode(externalUserID)
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	for len(prefix) < 4 {
		prefix += string(codeCharset[rand.Intn(len(codeCharset))])
	}

	timePart := strings.ToUpper(strconv.FormatInt(time.Now().Unix()%(36*36*36*36), 36))
	for len(timePart) < 4 {
		timePart = "0" + timePart
	}

	suffixLen := 4 + extraEntropy
	suffix := make([]byte, suffixLen)
	for i := range suffix {
		suffix[i] = codeCharset[rand.Intn(len(codeCharset))]
	}

	code := prefix + timePart + string(suffix)
	if len(code) > CodeMaxLen {
		code = code[len(code)-CodeMaxLen:]
	}
	return code
}

// EnsureCode returns the user's stored code when present and well-formed,
// otherwise generates a unique one and persists it.
func (s *ReferralService) EnsureCode(externalUserID string) (string, error) {
	user, err := s.Users.GetUser(externalUserID)
	if err != nil {
		return "", err
	}

	if normalized := NormalizeCode(user.ReferralCode); validCodeShape(normalized) {
		return normalized, nil
	}

	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code := generateCode(externalUserID, attempt)
		var count int64
		if err := s.DB.Model(&models.RewardUser{}).Where("referral_code = ?", code).Count(&count).Error; err != nil {
			return "", err
		}
		if count > 0 {
			continue
		}
		result := s.DB.Model(&models.RewardUser{}).
			Where("external_user_id = ?", externalUserID).
			Update("referral_code", code)
		if result.Error != nil {
			if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
				continue // unique index caught a race, try again
			}
			return "", result.Error
		}
		log.Printf("[REFERRAL] Generated code for %s: %s", externalUserID, code)
		return code, nil
	}
	return "", fmt.Errorf("could not generate a unique referral code for %s after %d attempts", externalUserID, maxGenerateAttempts)
}

// Validate checks whether a code can be used for signup. Rate-limited per
// requester (or an anonymous bucket), shape-checked before any query, and
// deliberately vague about why a code is rejected.
func (s *ReferralService) Validate(code, requesterID string) (*ValidationResult, error) {
	limiterKey := requesterID
	if limiterKey == "" {
		limiterKey = "anonymous"
	}
	if decision := s.Limiter.Check("validate:" + limiterKey); !decision.Allowed {
		return nil, fmt.Errorf("%w (resets %s)", ErrRateLimited, decision.ResetAt.Format(time.RFC3339))
	}

	normalized := NormalizeCode(code)
	if !validCodeShape(normalized) {
		return nil, fmt.Errorf("%w: must be %d-%d letters and digits", ErrInvalidCode, CodeMinLen, CodeMaxLen)
	}

	owner, err := s.Users.GetUserByReferralCode(normalized)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return &ValidationResult{Exists: false}, ErrCodeNotFound
		}
		return nil, err
	}
	if !IsActive(owner) {
		// Same message as an unknown code: do not leak account state.
		return &ValidationResult{Exists: false}, ErrCodeNotFound
	}

	return &ValidationResult{Exists: true}, nil
}

// Track attributes a referred user to a referrer, either directly by id or by
// code lookup. The referral record, the referred user's back-reference and the
// referrer's counter commit in one transaction; the invite-friend reward is a
// best-effort side effect that never fails the attribution.
func (s *ReferralService) Track(referredUserID, code, referrerID string) (*TrackResult, error) {
	referrer, err := s.resolveReferrer(referredUserID, code, referrerID)
	if err != nil {
		return nil, err
	}

	if referrer.ExternalUserID == referredUserID {
		return nil, ErrSelfReferral
	}
	if !IsActive(referrer) {
		return nil, ErrInactiveAccount
	}

	referred, err := s.Users.GetUser(referredUserID)
	if err != nil {
		return nil, err
	}

	referralID := models.ReferralID(referrer.ExternalUserID, referredUserID)
	result := &TrackResult{ReferrerID: referrer.ExternalUserID, ReferralID: referralID}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var existing models.Referral
		err := tx.Where("id = ?", referralID).First(&existing).Error
		if err == nil {
			result.Duplicate = true
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now()
		referral := models.Referral{
			ID:             referralID,
			ReferrerID:     referrer.ExternalUserID,
			ReferredUserID: referredUserID,
			CodeUsed:       NormalizeCode(code),
			Status:         models.ReferralStatusPending,
			Milestones: models.ReferralMilestones{
				AccountCreated: models.Milestone{Achieved: true, AchievedAt: &now},
			},
			RewardsAwarded: map[string]models.AwardedReward{},
			LastActivityAt: &now,
		}
		if err := tx.Create(&referral).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				result.Duplicate = true
				return nil
			}
			return err
		}

		if err := tx.Model(&models.RewardUser{}).
			Where("external_user_id = ?", referred.ExternalUserID).
			Update("referred_by", referrer.ExternalUserID).Error; err != nil {
			return err
		}

		return tx.Model(&models.RewardUser{}).
			Where("external_user_id = ?", referrer.ExternalUserID).
			Update("referral_count", gorm.Expr("referral_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	if result.Duplicate {
		return result, nil
	}
	log.Printf("[REFERRAL] Tracked: %s referred %s (%s)", referrer.ExternalUserID, referredUserID, referralID)

	// Best-effort: the relationship matters more than the reward, which the
	// reconciliation pass can backfill.
	s.awardSignupReward(referralID, referrer.ExternalUserID)

	return result, nil
}

func (s *ReferralService) resolveReferrer(referredUserID, code, referrerID string) (*models.RewardUser, error) {
	if referrerID != "" {
		return s.Users.GetUser(referrerID)
	}

	limiterKey := referredUserID
	if limiterKey == "" {
		limiterKey = "anonymous"
	}
	if decision := s.Limiter.Check("track:" + limiterKey); !decision.Allowed {
		return nil, fmt.Errorf("%w (resets %s)", ErrRateLimited, decision.ResetAt.Format(time.RFC3339))
	}

	normalized := NormalizeCode(code)
	if !validCodeShape(normalized) {
		return nil, fmt.Errorf("%w: must be %d-%d letters and digits", ErrInvalidCode, CodeMinLen, CodeMaxLen)
	}
	return s.Users.GetUserByReferralCode(normalized)
}

// awardSignupReward completes the referrer's invite-friend quest (first
// referral pays, later ones are quest no-ops) and records the outcome on the
// referral. Failures are logged, never propagated.
func (s *ReferralService) awardSignupReward(referralID, referrerID string) {
	var points int64
	award, err := s.Quests.CompleteQuest(referrerID, TaskInviteFriend)
	switch {
	case err == nil:
		points = award.Awarded
	case errors.Is(err, ErrAlreadyCompleted):
		// Quest already paid out on an earlier referral; record zero.
	default:
		log.Printf("⚠️ [REFERRAL] Signup reward failed for %s (referrer %s), leaving for backfill: %v", referralID, referrerID, err)
		return
	}

	if err := s.recordReward(referralID, models.ReferralRewardSignup, points); err != nil {
		log.Printf("⚠️ [REFERRAL] Recording signup reward on %s failed: %v", referralID, err)
	}
}

// AwardFirstSplitMilestone pays the referrer once the referred user completes
// their first split of at least MinSplitAmount.
func (s *ReferralService) AwardFirstSplitMilestone(referrerID, referredUserID string, splitAmount float64) (*AwardResult, error) {
	if splitAmount < s.MinSplitAmount {
		return nil, fmt.Errorf("%w: split of %.2f below minimum %.2f", ErrInvalidAmount, splitAmount, s.MinSplitAmount)
	}

	referralID := models.ReferralID(referrerID, referredUserID)
	var referral models.Referral
	if err := s.DB.Where("id = ?", referralID).First(&referral).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no referral for pair", ErrReferralNotFound)
		}
		return nil, err
	}
	if reward, ok := referral.RewardsAwarded[models.ReferralRewardFirstSplit]; ok && reward.Awarded {
		return nil, fmt.Errorf("%w: first-split reward for %s", ErrAlreadyAwarded, referralID)
	}

	referrer, err := s.Users.GetUser(referrerID)
	if err != nil {
		return nil, err
	}

	reward, err := s.Calculator.GetReward(TaskFriendFirstSplit, s.Season, referrer.IsPartnership)
	if err != nil {
		return nil, err
	}
	points := s.Calculator.CalculatePoints(reward, splitAmount)
	if points <= 0 {
		return nil, fmt.Errorf("%w: reward resolved to zero points", ErrInvalidAmount)
	}

	season := s.Season
	taskType := TaskFriendFirstSplit
	result, err := s.Ledger.Award(referrerID, points, models.SourceReferralReward,
		referralID+":first_split",
		fmt.Sprintf("Referral reward: friend's first split (%s)", referredUserID),
		&season, &taskType)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	referral.Milestones.FirstSplit = models.Milestone{Achieved: true, AchievedAt: &now, Amount: splitAmount}
	if err := s.DB.Model(&models.Referral{}).Where("id = ?", referralID).
		Update("milestones", referral.Milestones).Error; err != nil {
		log.Printf("⚠️ [REFERRAL] Milestone update failed for %s: %v", referralID, err)
	}
	if err := s.recordReward(referralID, models.ReferralRewardFirstSplit, result.Awarded); err != nil {
		log.Printf("⚠️ [REFERRAL] Recording first-split reward on %s failed: %v", referralID, err)
	}

	return result, nil
}

// recordReward marks a reward as awarded on the referral, bumps the derived
// total and recomputes the lifecycle status.
func (s *ReferralService) recordReward(referralID, rewardID string, points int64) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var referral models.Referral
		if err := tx.Where("id = ?", referralID).First(&referral).Error; err != nil {
			return err
		}

		if referral.RewardsAwarded == nil {
			referral.RewardsAwarded = map[string]models.AwardedReward{}
		}
		now := time.Now()
		referral.RewardsAwarded[rewardID] = models.AwardedReward{
			Awarded:       true,
			AwardedAt:     &now,
			PointsAwarded: points,
			Season:        s.Season,
		}
		referral.TotalPointsEarned += points
		referral.LastActivityAt = &now
		referral.Status = recomputeStatus(&referral)

		return tx.Model(&models.Referral{}).Where("id = ?", referralID).
			Updates(map[string]interface{}{
				"rewards_awarded":     referral.RewardsAwarded,
				"total_points_earned": referral.TotalPointsEarned,
				"last_activity_at":    now,
				"status":              referral.Status,
			}).Error
	})
}

// recomputeStatus: pending → active once the account-created milestone holds
// and any reward has been awarded; completed once every enabled reward has.
func recomputeStatus(referral *models.Referral) models.ReferralStatus {
	if !referral.Milestones.AccountCreated.Achieved {
		return models.ReferralStatusPending
	}
	enabled := []string{models.ReferralRewardSignup, models.ReferralRewardFirstSplit}
	awarded := 0
	for _, id := range enabled {
		if r, ok := referral.RewardsAwarded[id]; ok && r.Awarded {
			awarded++
		}
	}
	switch {
	case awarded == len(enabled):
		return models.ReferralStatusCompleted
	case awarded > 0:
		return models.ReferralStatusActive
	default:
		return models.ReferralStatusPending
	}
}

// NormalizeStoredCodes is the one-time migration that canonicalizes every
// stored referral code, after which all lookups are exact-match.
func (s *ReferralService) NormalizeStoredCodes() (int, error) {
	var users []models.RewardUser
	if err := s.DB.Where("referral_code <> ''").Find(&users).Error; err != nil {
		return 0, err
	}

	changed := 0
	for _, user := range users {
		normalized := NormalizeCode(user.ReferralCode)
		if normalized == user.ReferralCode {
			continue
		}
		err := s.DB.Model(&models.RewardUser{}).
			Where("external_user_id = ?", user.ExternalUserID).
			Update("referral_code", normalized).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				log.Printf("⚠️ [REFERRAL] Normalizing %q for %s collides with an existing code, skipping", user.ReferralCode, user.ExternalUserID)
				continue
			}
			return changed, err
		}
		changed++
	}
	log.Printf("[REFERRAL] Code normalization migration: %d of %d codes rewritten", changed, len(users))
	return changed, nil
}

// PendingSignupRewards lists referrals whose signup reward has not landed yet;
// the reconciliation job retries these. Active referrals are scanned too, since
// a first-split reward can land while the signup reward is still missing;
// completed ones by definition have both.
func (s *ReferralService) PendingSignupRewards(limit int) ([]models.Referral, error) {
	var referrals []models.Referral
	err := s.DB.Where("status IN ?", []models.ReferralStatus{models.ReferralStatusPending, models.ReferralStatusActive}).
		Order("created_at ASC").
		Limit(limit).
		Find(&referrals).Error
	if err != nil {
		return nil, err
	}

	var missing []models.Referral
	for _, r := range referrals {
		if reward, ok := r.RewardsAwarded[models.ReferralRewardSignup]; !ok || !reward.Awarded {
			missing = append(missing, r)
		}
	}
	return missing, nil
}

// RetrySignupReward re-runs the best-effort signup reward for one referral.
func (s *ReferralService) RetrySignupReward(referral *models.Referral) {
	s.awardSignupReward(referral.ID, referral.ReferrerID)
}
