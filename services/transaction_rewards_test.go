package services

import (
	"testing"

	"split-rewards-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Season 1, standard tier: a $73 transaction at 8% rounds to 6 points. A
// processor retry with the same signature replays the original award.
func TestAwardTransactionPoints(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1")

	first, err := env.txRewards.AwardTransactionPoints("u1", 73, "sig-abc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(6), first.Awarded)
	assert.False(t, first.Duplicate)

	second, err := env.txRewards.AwardTransactionPoints("u1", 73, "sig-abc", "")
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, int64(6), second.Awarded)

	var count int64
	require.NoError(t, env.db.Model(&models.PointsTransaction{}).Where("user_id = ?", "u1").Count(&count).Error)
	assert.Equal(t, int64(1), count)

	user := env.reloadUser(t, "u1")
	assert.Equal(t, int64(6), user.Points)
}

func TestAwardTransactionPointsDefaultsTaskType(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1")

	_, err := env.txRewards.AwardTransactionPoints("u1", 100, "sig-1", "")
	require.NoError(t, err)

	var entry models.PointsTransaction
	require.NoError(t, env.db.Where("source_id = ?", "sig-1").First(&entry).Error)
	require.NotNil(t, entry.TaskType)
	assert.Equal(t, TaskTransactionRequest, *entry.TaskType)

	// An explicit task type is kept: send pays 5% in season 1.
	result, err := env.txRewards.AwardTransactionPoints("u1", 100, "sig-2", TaskTransactionSend)
	require.NoError(t, err)
	assert.Equal(t, int64(5), result.Awarded)
}

func TestAwardTransactionPointsRequiresSignature(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1")

	_, err := env.txRewards.AwardTransactionPoints("u1", 73, "", "")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	var count int64
	require.NoError(t, env.db.Model(&models.PointsTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAwardTransactionPointsPartnershipTier(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1", withPartnership())

	// Partnership requests pay 12% in season 1: round(73 * 12 / 100) = 9.
	result, err := env.txRewards.AwardTransactionPoints("u1", 73, "sig-abc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(9), result.Awarded)
}

func TestAwardTransactionPointsSkipsZeroRounding(t *testing.T) {
	env := newTestEnv(t, 1)
	env.createUser(t, "u1")

	_, err := env.txRewards.AwardTransactionPoints("u1", 100, "sig-1", "")
	require.NoError(t, err)

	// 8% of $0.01 rounds to zero: no ledger row, balance reported as-is.
	result, err := env.txRewards.AwardTransactionPoints("u1", 0.01, "sig-tiny", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), result.Awarded)
	assert.Equal(t, int64(8), result.TotalPoints)

	var count int64
	require.NoError(t, env.db.Model(&models.PointsTransaction{}).Where("source_id = ?", "sig-tiny").Count(&count).Error)
	assert.Zero(t, count)
}

func TestAwardTransactionPointsUnknownUser(t *testing.T) {
	env := newTestEnv(t, 1)

	_, err := env.txRewards.AwardTransactionPoints("ghost", 73, "sig-abc", "")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
