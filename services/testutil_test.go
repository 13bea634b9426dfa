package services

import (
	"fmt"
	"testing"
	"time"

	"split-rewards-system/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	// A plain ":memory:" DSN gives every pooled connection its own empty
	// database; shared cache keeps all connections on one database, and the
	// unique name isolates tests from each other.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.RewardUser{},
		&models.PointsTransaction{},
		&models.Referral{},
		&models.QuestRecord{},
		&models.QuestDefinition{},
		&models.BadgeType{},
	))
	require.NoError(t, db.Exec(models.EnsureLedgerIndexes).Error)
	require.NoError(t, db.Exec(models.EnsureUserIndexes).Error)

	return db
}

type testEnv struct {
	db        *gorm.DB
	users     *UserDirectory
	badges    *BadgeService
	bonus     *CommunityBadgeBonus
	calc      *RewardCalculator
	ledger    *PointsLedger
	quests    *QuestTracker
	limiter   *MemoryRateLimiter
	referrals *ReferralService
	txRewards *TransactionRewarder
}

func newTestEnv(t *testing.T, season int) *testEnv {
	t.Helper()

	db := newTestDB(t)
	users := NewUserDirectory(db)
	badges := NewBadgeService(db)
	require.NoError(t, badges.SeedBadgeCatalog())

	bonus := NewCommunityBadgeBonus(users, badges)
	calc := NewRewardCalculator()
	ledger := NewPointsLedger(db, bonus)
	quests := NewQuestTracker(db, users, calc, ledger, season)
	require.NoError(t, quests.SeedQuestCatalog())

	limiter := NewMemoryRateLimiter(5, time.Minute)
	referrals := NewReferralService(db, users, quests, calc, ledger, limiter, season, 1.0)
	txRewards := NewTransactionRewarder(users, calc, ledger, season)

	return &testEnv{
		db:        db,
		users:     users,
		badges:    badges,
		bonus:     bonus,
		calc:      calc,
		ledger:    ledger,
		quests:    quests,
		limiter:   limiter,
		referrals: referrals,
		txRewards: txRewards,
	}
}

func (e *testEnv) createUser(t *testing.T, externalID string, mutate ...func(*models.RewardUser)) *models.RewardUser {
	t.Helper()

	user := models.RewardUser{
		ID:             uuid.NewString(),
		ExternalUserID: externalID,
		Status:         models.UserStatusActive,
	}
	for _, m := range mutate {
		m(&user)
	}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func (e *testEnv) reloadUser(t *testing.T, externalID string) *models.RewardUser {
	t.Helper()

	user, err := e.users.GetUser(externalID)
	require.NoError(t, err)
	return user
}

func withBadge(code string) func(*models.RewardUser) {
	return func(u *models.RewardUser) { u.ActiveBadge = &code }
}

func withCode(code string) func(*models.RewardUser) {
	return func(u *models.RewardUser) { u.ReferralCode = code }
}

func withStatus(status models.UserStatus) func(*models.RewardUser) {
	return func(u *models.RewardUser) { u.Status = status }
}

func withPartnership() func(*models.RewardUser) {
	return func(u *models.RewardUser) { u.IsPartnership = true }
}
