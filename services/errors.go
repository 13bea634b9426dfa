package services

import "errors"

// Closed set of business errors. Handlers map these to structured
// {success:false, error} responses; anything outside this set is treated as a
// storage/infrastructure failure and surfaces as a 500.
var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrUserNotFound     = errors.New("user not found")
	ErrSelfReferral     = errors.New("cannot refer yourself")
	ErrInactiveAccount  = errors.New("account is no longer active")
	ErrRateLimited      = errors.New("too many attempts, try again later")
	ErrAlreadyCompleted = errors.New("quest already completed")
	ErrAlreadyAwarded   = errors.New("reward already awarded")
	ErrUnknownTask      = errors.New("unknown task type")
	ErrUnknownQuest     = errors.New("unknown quest type")
	ErrQuestRetired     = errors.New("quest is retired")
	ErrInvalidCode      = errors.New("invalid referral code")
	ErrCodeNotFound     = errors.New("referral code is invalid or no longer valid")
	ErrReferralNotFound = errors.New("referral not found")
)

// IsBusinessError reports whether err belongs to the closed business set, as
// opposed to a storage failure that should propagate as-is.
func IsBusinessError(err error) bool {
	for _, e := range []error{
		ErrInvalidAmount, ErrUserNotFound, ErrSelfReferral, ErrInactiveAccount,
		ErrRateLimited, ErrAlreadyCompleted, ErrAlreadyAwarded, ErrUnknownTask,
		ErrUnknownQuest, ErrQuestRetired, ErrInvalidCode, ErrCodeNotFound,
		ErrReferralNotFound,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
