package services

// RewardType indicates how a reward value turns into points.
type RewardType string

const (
	RewardFixed      RewardType = "fixed"
	RewardPercentage RewardType = "percentage"
)

// Reward is one resolved (task, season) reward definition.
type Reward struct {
	Type  RewardType `json:"type"`
	Value float64    `json:"value"` // points for fixed, percent of base for percentage
}

// Task identifiers. These are configuration keys, not free-form strings; an
// unknown task at runtime is a deployment bug.
const (
	TaskTransactionRequest = "transaction_1_1_request"
	TaskTransactionSend    = "transaction_1_1_send"
	TaskSplitParticipant   = "split_participant"
	TaskSplitOwner         = "split_owner"
	TaskLuckySplitWinner   = "lucky_split_winner"
	TaskLuckySplitLoser    = "lucky_split_loser"
	TaskExportSeedPhrase   = "export_seed_phrase"
	TaskInviteFriend       = "invite_friend"
	TaskFriendFirstSplit   = "friend_first_split"
	TaskCreateFirstSplit   = "create_first_split"
)

const (
	MinSeason = 1
	MaxSeason = 5
)

type seasonRewards map[int]Reward

// StandardRewards: every task must define all five seasons. Values decay
// across seasons to taper the incentive curve.
var StandardRewards = map[string]seasonRewards{
	TaskTransactionRequest: {
		1: {RewardPercentage, 8},
		2: {RewardPercentage, 6},
		3: {RewardPercentage, 5},
		4: {RewardPercentage, 4},
		5: {RewardPercentage, 3},
	},
	TaskTransactionSend: {
		1: {RewardPercentage, 5},
		2: {RewardPercentage, 4},
		3: {RewardPercentage, 3},
		4: {RewardPercentage, 2},
		5: {RewardPercentage, 2},
	},
	TaskSplitParticipant: {
		1: {RewardFixed, 50},
		2: {RewardFixed, 40},
		3: {RewardFixed, 30},
		4: {RewardFixed, 25},
		5: {RewardFixed, 20},
	},
	TaskSplitOwner: {
		1: {RewardFixed, 100},
		2: {RewardFixed, 80},
		3: {RewardFixed, 60},
		4: {RewardFixed, 50},
		5: {RewardFixed, 40},
	},
	TaskLuckySplitWinner: {
		1: {RewardPercentage, 100},
		2: {RewardPercentage, 80},
		3: {RewardPercentage, 60},
		4: {RewardPercentage, 50},
		5: {RewardPercentage, 40},
	},
	TaskLuckySplitLoser: {
		1: {RewardFixed, 25},
		2: {RewardFixed, 20},
		3: {RewardFixed, 15},
		4: {RewardFixed, 10},
		5: {RewardFixed, 10},
	},
	TaskExportSeedPhrase: {
		1: {RewardFixed, 100},
		2: {RewardFixed, 100},
		3: {RewardFixed, 75},
		4: {RewardFixed, 50},
		5: {RewardFixed, 50},
	},
	TaskInviteFriend: {
		1: {RewardFixed, 300},
		2: {RewardFixed, 250},
		3: {RewardFixed, 200},
		4: {RewardFixed, 150},
		5: {RewardFixed, 100},
	},
	TaskFriendFirstSplit: {
		1: {RewardFixed, 200},
		2: {RewardFixed, 150},
		3: {RewardFixed, 125},
		4: {RewardFixed, 100},
		5: {RewardFixed, 75},
	},
	TaskCreateFirstSplit: {
		1: {RewardFixed, 150},
		2: {RewardFixed, 120},
		3: {RewardFixed, 100},
		4: {RewardFixed, 80},
		5: {RewardFixed, 60},
	},
}

// PartnershipRewards override the standard table for partnership accounts on
// transaction and split tasks only. Any task absent here falls through to the
// standard table regardless of the partnership flag.
var PartnershipRewards = map[string]seasonRewards{
	TaskTransactionRequest: {
		1: {RewardPercentage, 12},
		2: {RewardPercentage, 10},
		3: {RewardPercentage, 8},
		4: {RewardPercentage, 6},
		5: {RewardPercentage, 5},
	},
	TaskTransactionSend: {
		1: {RewardPercentage, 8},
		2: {RewardPercentage, 6},
		3: {RewardPercentage, 5},
		4: {RewardPercentage, 4},
		5: {RewardPercentage, 3},
	},
	TaskSplitParticipant: {
		1: {RewardFixed, 75},
		2: {RewardFixed, 60},
		3: {RewardFixed, 45},
		4: {RewardFixed, 40},
		5: {RewardFixed, 30},
	},
	TaskSplitOwner: {
		1: {RewardFixed, 150},
		2: {RewardFixed, 120},
		3: {RewardFixed, 90},
		4: {RewardFixed, 75},
		5: {RewardFixed, 60},
	},
	TaskLuckySplitWinner: {
		1: {RewardPercentage, 100},
		2: {RewardPercentage, 100},
		3: {RewardPercentage, 80},
		4: {RewardPercentage, 60},
		5: {RewardPercentage, 50},
	},
	TaskLuckySplitLoser: {
		1: {RewardFixed, 40},
		2: {RewardFixed, 30},
		3: {RewardFixed, 25},
		4: {RewardFixed, 20},
		5: {RewardFixed, 15},
	},
}
