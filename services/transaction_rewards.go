package services

import (
	"fmt"
	"log"

	"split-rewards-system/models"
)

// TransactionRewarder awards percentage-of-amount points for peer-to-peer
// transactions, keyed on the transaction signature so processor retries never
// double-pay.
type TransactionRewarder struct {
	Users      *UserDirectory
	Calculator *RewardCalculator
	Ledger     *PointsLedger
	Season     int
}

func NewTransactionRewarder(users *UserDirectory, calc *RewardCalculator, ledger *PointsLedger, season int) *TransactionRewarder {
	return &TransactionRewarder{Users: users, Calculator: calc, Ledger: ledger, Season: season}
}

// AwardTransactionPoints resolves the task's reward for the user's tier and
// season and records it. taskType defaults to the 1:1 request reward.
func (s *TransactionRewarder) AwardTransactionPoints(userID string, amount float64, signature, taskType string) (*AwardResult, error) {
	if signature == "" {
		return nil, fmt.Errorf("%w: transaction signature required", ErrInvalidAmount)
	}
	if taskType == "" {
		taskType = TaskTransactionRequest
	}

	user, err := s.Users.GetUser(userID)
	if err != nil {
		return nil, err
	}

	reward, err := s.Calculator.GetReward(taskType, s.Season, user.IsPartnership)
	if err != nil {
		return nil, err
	}
	points := s.Calculator.CalculatePoints(reward, amount)
	if points <= 0 {
		log.Printf("[TX_REWARDS] Transaction %s rounds to zero points (amount=%.2f), skipping", signature, amount)
		return &AwardResult{Multiplier: 1, TotalPoints: user.Points}, nil
	}

	season := s.Season
	return s.Ledger.Award(userID, points, models.SourceTransactionReward, signature,
		fmt.Sprintf("Transaction reward (%s)", taskType), &season, &taskType)
}
