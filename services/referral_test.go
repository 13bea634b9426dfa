package services

import (
	"testing"
	"time"

	"split-rewards-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "WESPLIT1A2B3C", NormalizeCode("wesplit1a2b3c"))
	assert.Equal(t, "WESPLIT1A2B3C", NormalizeCode("WeSplit1a2B3c"))
	assert.Equal(t, "ABC123", NormalizeCode(" abc-123! "))
	assert.Equal(t, "CAFE99", NormalizeCode("café99"))
	assert.Equal(t, "", NormalizeCode("!!!"))
}

func TestEnsureCodeGeneratesAndIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1")

	code, err := env.referrals.EnsureCode("u1")
	require.NoError(t, err)
	assert.True(t, validCodeShape(code), "generated code %q has invalid shape", code)

	again, err := env.referrals.EnsureCode("u1")
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestEnsureCodeKeepsStoredCode(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))

	code, err := env.referrals.EnsureCode("u1")
	require.NoError(t, err)
	assert.Equal(t, "WESPLIT1A2B", code)
}

func TestValidateMatchesEitherCaseForm(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))

	result, err := env.referrals.Validate("wesplit1a2b", "u2")
	require.NoError(t, err)
	assert.True(t, result.Exists)

	result, err = env.referrals.Validate("WESPLIT1A2B", "u2")
	require.NoError(t, err)
	assert.True(t, result.Exists)
}

func TestValidateRejectsMalformedBeforeLookup(t *testing.T) {
	env := newTestEnv(t, 1)

	_, err := env.referrals.Validate("ab", "u2")
	assert.ErrorIs(t, err, ErrInvalidCode)

	_, err = env.referrals.Validate("WAYTOOLONGCODE123", "u2")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestValidateHidesInactiveAccounts(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"), withStatus(models.UserStatusSuspended))

	result, err := env.referrals.Validate("WESPLIT1A2B", "u2")
	assert.ErrorIs(t, err, ErrCodeNotFound)
	require.NotNil(t, result)
	assert.False(t, result.Exists)
}

func TestValidateRateLimited(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))

	// Limiter allows 5 per window per identifier.
	for i := 0; i < 5; i++ {
		_, err := env.referrals.Validate("WESPLIT1A2B", "u2")
		require.NoError(t, err)
	}
	_, err := env.referrals.Validate("WESPLIT1A2B", "u2")
	assert.ErrorIs(t, err, ErrRateLimited)

	// Other identifiers are unaffected.
	_, err = env.referrals.Validate("WESPLIT1A2B", "u3")
	assert.NoError(t, err)
}

func TestTrackCreatesReferralAtomically(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))
	env.createUser(t, "u2")

	result, err := env.referrals.Track("u2", "wesplit1a2b", "")
	require.NoError(t, err)
	assert.Equal(t, "u1", result.ReferrerID)
	assert.Equal(t, "ref_u1_u2", result.ReferralID)
	assert.False(t, result.Duplicate)

	var referral models.Referral
	require.NoError(t, env.db.Where("id = ?", "ref_u1_u2").First(&referral).Error)
	assert.True(t, referral.Milestones.AccountCreated.Achieved)

	referred := env.reloadUser(t, "u2")
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, "u1", *referred.ReferredBy)

	referrer := env.reloadUser(t, "u1")
	assert.Equal(t, int64(1), referrer.ReferralCount)
}

func TestTrackIsIdempotent(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))
	env.createUser(t, "u2")

	_, err := env.referrals.Track("u2", "", "u1")
	require.NoError(t, err)
	second, err := env.referrals.Track("u2", "", "u1")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	var count int64
	require.NoError(t, env.db.Model(&models.Referral{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	referrer := env.reloadUser(t, "u1")
	assert.Equal(t, int64(1), referrer.ReferralCount) // not 2
}

func TestTrackRejectsSelfReferral(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))

	_, err := env.referrals.Track("u1", "", "u1")
	assert.ErrorIs(t, err, ErrSelfReferral)

	var count int64
	require.NoError(t, env.db.Model(&models.Referral{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestTrackRejectsInactiveReferrer(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"), withStatus(models.UserStatusDeleted))
	env.createUser(t, "u2")

	_, err := env.referrals.Track("u2", "", "u1")
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestTrackAwardsInviteFriendQuest(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))
	env.createUser(t, "u2")
	env.createUser(t, "u3")

	_, err := env.referrals.Track("u2", "", "u1")
	require.NoError(t, err)

	// Season 1 invite_friend pays 300 once.
	referrer := env.reloadUser(t, "u1")
	assert.Equal(t, int64(300), referrer.Points)

	// Second referral: quest already completed, no extra points, but the
	// referral still records its (zero-point) signup outcome.
	_, err = env.referrals.Track("u3", "", "u1")
	require.NoError(t, err)
	referrer = env.reloadUser(t, "u1")
	assert.Equal(t, int64(300), referrer.Points)

	var second models.Referral
	require.NoError(t, env.db.Where("id = ?", "ref_u1_u3").First(&second).Error)
	assert.True(t, second.RewardsAwarded[models.ReferralRewardSignup].Awarded)
	assert.Equal(t, models.ReferralStatusActive, second.Status)
}

func TestAwardFirstSplitMilestone(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))
	env.createUser(t, "u2")

	_, err := env.referrals.Track("u2", "", "u1")
	require.NoError(t, err)

	result, err := env.referrals.AwardFirstSplitMilestone("u1", "u2", 25.0)
	require.NoError(t, err)
	assert.Equal(t, int64(200), result.Awarded) // season 1 friend_first_split

	var referral models.Referral
	require.NoError(t, env.db.Where("id = ?", "ref_u1_u2").First(&referral).Error)
	assert.True(t, referral.Milestones.FirstSplit.Achieved)
	assert.Equal(t, 25.0, referral.Milestones.FirstSplit.Amount)
	assert.True(t, referral.RewardsAwarded[models.ReferralRewardFirstSplit].Awarded)
	assert.Equal(t, models.ReferralStatusCompleted, referral.Status)
	assert.Equal(t, int64(500), referral.TotalPointsEarned) // 300 signup + 200 first split
}

func TestAwardFirstSplitMilestoneOnlyOnce(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))
	env.createUser(t, "u2")

	_, err := env.referrals.Track("u2", "", "u1")
	require.NoError(t, err)
	_, err = env.referrals.AwardFirstSplitMilestone("u1", "u2", 25.0)
	require.NoError(t, err)

	_, err = env.referrals.AwardFirstSplitMilestone("u1", "u2", 40.0)
	assert.ErrorIs(t, err, ErrAlreadyAwarded)
}

func TestAwardFirstSplitMilestoneGates(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))
	env.createUser(t, "u2")

	_, err := env.referrals.Track("u2", "", "u1")
	require.NoError(t, err)

	// Below the configured minimum split amount.
	_, err = env.referrals.AwardFirstSplitMilestone("u1", "u2", 0.5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	// Unknown pair.
	_, err = env.referrals.AwardFirstSplitMilestone("u1", "ghost", 25.0)
	assert.ErrorIs(t, err, ErrReferralNotFound)
}

func TestNormalizeStoredCodesMigration(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))
	// Legacy row written before normalization was enforced.
	require.NoError(t, env.db.Model(&models.RewardUser{}).
		Where("external_user_id = ?", "u1").
		Update("referral_code", "weSplit1a2b").Error)

	changed, err := env.referrals.NormalizeStoredCodes()
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	user := env.reloadUser(t, "u1")
	assert.Equal(t, "WESPLIT1A2B", user.ReferralCode)

	// After migration, lookups are exact-match on the canonical form.
	result, err := env.referrals.Validate("wesplit1a2b", "u2")
	require.NoError(t, err)
	assert.True(t, result.Exists)
}

func TestPendingSignupRewardsBackfill(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))

	// A referral that committed without its signup reward (e.g. crash between
	// the transaction and the side effect).
	now := time.Now()
	require.NoError(t, env.db.Create(&models.Referral{
		ID:             models.ReferralID("u1", "u2"),
		ReferrerID:     "u1",
		ReferredUserID: "u2",
		Status:         models.ReferralStatusPending,
		Milestones: models.ReferralMilestones{
			AccountCreated: models.Milestone{Achieved: true, AchievedAt: &now},
		},
		RewardsAwarded: map[string]models.AwardedReward{},
	}).Error)

	pending, err := env.referrals.PendingSignupRewards(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	env.referrals.RetrySignupReward(&pending[0])

	referrer := env.reloadUser(t, "u1")
	assert.Equal(t, int64(300), referrer.Points)

	pending, err = env.referrals.PendingSignupRewards(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

// A referral can reach active status through the first-split reward while its
// signup reward is still missing; the backfill must still find it.
func TestPendingSignupRewardsIncludesActiveReferrals(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withCode("WESPLIT1A2B"))

	now := time.Now()
	require.NoError(t, env.db.Create(&models.Referral{
		ID:             models.ReferralID("u1", "u2"),
		ReferrerID:     "u1",
		ReferredUserID: "u2",
		Status:         models.ReferralStatusActive,
		Milestones: models.ReferralMilestones{
			AccountCreated: models.Milestone{Achieved: true, AchievedAt: &now},
			FirstSplit:     models.Milestone{Achieved: true, AchievedAt: &now, Amount: 25},
		},
		RewardsAwarded: map[string]models.AwardedReward{
			models.ReferralRewardFirstSplit: {Awarded: true, AwardedAt: &now, PointsAwarded: 200, Season: 1},
		},
	}).Error)

	pending, err := env.referrals.PendingSignupRewards(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.ReferralID("u1", "u2"), pending[0].ID)

	env.referrals.RetrySignupReward(&pending[0])

	var referral models.Referral
	require.NoError(t, env.db.Where("id = ?", models.ReferralID("u1", "u2")).First(&referral).Error)
	assert.True(t, referral.RewardsAwarded[models.ReferralRewardSignup].Awarded)
	assert.Equal(t, models.ReferralStatusCompleted, referral.Status)

	pending, err = env.referrals.PendingSignupRewards(10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}
