package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRewardConfigIsValid(t *testing.T) {
	require.Empty(t, ValidateRewardConfig())
}

func TestRewardConfigInvariants(t *testing.T) {
	calc := NewRewardCalculator()

	for task := range StandardRewards {
		for season := MinSeason; season <= MaxSeason; season++ {
			for _, partnership := range []bool{false, true} {
				reward, err := calc.GetReward(task, season, partnership)
				require.NoError(t, err)
				assert.Contains(t, []RewardType{RewardFixed, RewardPercentage}, reward.Type)
				assert.GreaterOrEqual(t, reward.Value, 0.0)
				if reward.Type == RewardPercentage {
					assert.LessOrEqual(t, reward.Value, 100.0)
				}
			}
		}
	}
}

func TestGetRewardClampsSeason(t *testing.T) {
	calc := NewRewardCalculator()

	low, err := calc.GetReward(TaskSplitOwner, 0, false)
	require.NoError(t, err)
	high, err := calc.GetReward(TaskSplitOwner, 99, false)
	require.NoError(t, err)
	one, err := calc.GetReward(TaskSplitOwner, 1, false)
	require.NoError(t, err)

	assert.Equal(t, one, low)
	assert.Equal(t, one, high)
}

func TestGetRewardUnknownTask(t *testing.T) {
	calc := NewRewardCalculator()

	_, err := calc.GetReward("no_such_task", 1, false)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestPartnershipOverrides(t *testing.T) {
	calc := NewRewardCalculator()

	// Overridden task differs between tiers.
	standard, err := calc.GetReward(TaskTransactionRequest, 1, false)
	require.NoError(t, err)
	partner, err := calc.GetReward(TaskTransactionRequest, 1, true)
	require.NoError(t, err)
	assert.NotEqual(t, standard.Value, partner.Value)

	// Non-overridden task falls through to the standard table.
	standardQuest, err := calc.GetReward(TaskExportSeedPhrase, 2, false)
	require.NoError(t, err)
	partnerQuest, err := calc.GetReward(TaskExportSeedPhrase, 2, true)
	require.NoError(t, err)
	assert.Equal(t, standardQuest, partnerQuest)
}

func TestCalculatePointsFixedIgnoresBase(t *testing.T) {
	calc := NewRewardCalculator()
	reward := Reward{Type: RewardFixed, Value: 100}

	for _, base := range []float64{0, 1, 73, -50, 1e9} {
		assert.Equal(t, int64(100), calc.CalculatePoints(reward, base))
	}
}

func TestCalculatePointsPercentage(t *testing.T) {
	calc := NewRewardCalculator()

	// round(73 * 8 / 100) = 6
	assert.Equal(t, int64(6), calc.CalculatePoints(Reward{Type: RewardPercentage, Value: 8}, 73))
	assert.Equal(t, int64(0), calc.CalculatePoints(Reward{Type: RewardPercentage, Value: 8}, 0))
	assert.Equal(t, int64(50), calc.CalculatePoints(Reward{Type: RewardPercentage, Value: 100}, 50))
}

func TestCalculatePointsNegativeBase(t *testing.T) {
	calc := NewRewardCalculator()

	assert.Equal(t, int64(0), calc.CalculatePoints(Reward{Type: RewardPercentage, Value: 8}, -73))
}
