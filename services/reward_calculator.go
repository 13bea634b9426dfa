package services

import (
	"fmt"
	"log"
	"math"
)

// RewardCalculator resolves (task, season, partnership) to a reward definition
// and turns base amounts into point values.
type RewardCalculator struct {
	standard    map[string]seasonRewards
	partnership map[string]seasonRewards
}

func NewRewardCalculator() *RewardCalculator {
	return &RewardCalculator{
		standard:    StandardRewards,
		partnership: PartnershipRewards,
	}
}

// GetReward resolves the reward for a task in a season. Out-of-range seasons
// clamp to season 1 with a warning; an unknown task is a configuration bug and
// is a hard error.
func (c *RewardCalculator) GetReward(task string, season int, isPartnership bool) (Reward, error) {
	if season < MinSeason || season > MaxSeason {
		log.Printf("⚠️ [REWARDS] Season %d out of range for task %q, defaulting to season %d", season, task, MinSeason)
		season = MinSeason
	}

	if isPartnership {
		if seasons, ok := c.partnership[task]; ok {
			return seasons[season], nil
		}
	}

	seasons, ok := c.standard[task]
	if !ok {
		return Reward{}, fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	return seasons[season], nil
}

// CalculatePoints converts a reward and base amount into a non-negative point
// value. Fixed rewards ignore the base amount. A negative base amount on a
// percentage reward is recoverable: warn and award nothing.
func (c *RewardCalculator) CalculatePoints(reward Reward, baseAmount float64) int64 {
	switch reward.Type {
	case RewardFixed:
		if reward.Value < 0 {
			return 0
		}
		return int64(math.Round(reward.Value))
	case RewardPercentage:
		if baseAmount < 0 {
			log.Printf("⚠️ [REWARDS] Negative base amount %.2f for percentage reward, awarding 0", baseAmount)
			return 0
		}
		points := int64(math.Round(baseAmount * reward.Value / 100))
		if points < 0 {
			return 0
		}
		return points
	default:
		log.Printf("⚠️ [REWARDS] Unknown reward type %q, awarding 0", reward.Type)
		return 0
	}
}

// ValidateRewardConfig checks both tables at startup: every task must define
// every season, types must be known, values non-negative, percentages <= 100.
// All problems are collected so a bad deploy surfaces them together.
func ValidateRewardConfig() []error {
	var errs []error
	for name, table := range map[string]map[string]seasonRewards{
		"standard":    StandardRewards,
		"partnership": PartnershipRewards,
	} {
		for task, seasons := range table {
			for season := MinSeason; season <= MaxSeason; season++ {
				reward, ok := seasons[season]
				if !ok {
					errs = append(errs, fmt.Errorf("%s table: task %q missing season %d", name, task, season))
					continue
				}
				if reward.Type != RewardFixed && reward.Type != RewardPercentage {
					errs = append(errs, fmt.Errorf("%s table: task %q season %d has invalid type %q", name, task, season, reward.Type))
				}
				if reward.Value < 0 {
					errs = append(errs, fmt.Errorf("%s table: task %q season %d has negative value %.2f", name, task, season, reward.Value))
				}
				if reward.Type == RewardPercentage && reward.Value > 100 {
					errs = append(errs, fmt.Errorf("%s table: task %q season %d percentage %.2f exceeds 100", name, task, season, reward.Value))
				}
			}
		}
	}
	return errs
}
