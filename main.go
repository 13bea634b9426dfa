package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"split-rewards-system/handlers"
	"split-rewards-system/middleware"
	"split-rewards-system/models"
	"split-rewards-system/services"
	"split-rewards-system/utils"
	"split-rewards-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	// Reward tables are static config; a bad deploy must fail loudly with
	// every problem listed, not one at a time.
	if errs := services.ValidateRewardConfig(); len(errs) > 0 {
		for _, err := range errs {
			log.Printf("❌ reward config: %v", err)
		}
		log.Fatalf("invalid reward configuration (%d problems)", len(errs))
	}

	app := fiber.New(fiber.Config{})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Session-Token, X-Service-Token, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.RewardUser{},
		&models.PointsTransaction{},
		&models.Referral{},
		&models.QuestRecord{},
		&models.QuestDefinition{},
		&models.BadgeType{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}
	// Partial unique indexes (AutoMigrate can't express them)
	if err := db.Exec(models.EnsureLedgerIndexes).Error; err != nil {
		log.Fatal("failed to create ledger idempotency index:", err)
	}
	if err := db.Exec(models.EnsureUserIndexes).Error; err != nil {
		log.Fatal("failed to create referral code index:", err)
	}

	season := 1
	if s := os.Getenv("CURRENT_SEASON"); s != "" {
		if v, err := strconv.Atoi(s); err == nil {
			season = v
		}
	}
	minSplitAmount := 1.0
	if s := os.Getenv("REFERRAL_MIN_SPLIT_AMOUNT"); s != "" {
		if v, err := strconv.ParseFloat(s, 64); err == nil {
			minSplitAmount = v
		}
	}
	lookupLimit := 10
	if s := os.Getenv("REFERRAL_LOOKUP_LIMIT"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			lookupLimit = v
		}
	}

	userDirectory := services.NewUserDirectory(db)
	badgeService := services.NewBadgeService(db)
	badgeBonus := services.NewCommunityBadgeBonus(userDirectory, badgeService)
	calculator := services.NewRewardCalculator()
	ledger := services.NewPointsLedger(db, badgeBonus)
	questTracker := services.NewQuestTracker(db, userDirectory, calculator, ledger, season)
	limiter := services.NewMemoryRateLimiter(lookupLimit, time.Minute)
	referralService := services.NewReferralService(db, userDirectory, questTracker, calculator, ledger, limiter, season, minSplitAmount)
	txRewarder := services.NewTransactionRewarder(userDirectory, calculator, ledger, season)
	auditor := services.NewLedgerAuditor(db, ledger)

	if err := badgeService.SeedBadgeCatalog(); err != nil {
		log.Fatal("failed to seed badge catalog:", err)
	}
	if err := questTracker.SeedQuestCatalog(); err != nil {
		log.Fatal("failed to seed quest catalog:", err)
	}

	syncServiceURL := os.Getenv("SYNC_SERVICE_URL")
	if syncServiceURL == "" {
		log.Fatal("SYNC_SERVICE_URL environment variable not set")
	}
	serviceToken := os.Getenv("REWARDS_SERVICE_TOKEN")
	if serviceToken == "" {
		log.Fatal("REWARDS_SERVICE_TOKEN environment variable not set")
	}

	syncWorker := workers.NewRewardUserSyncWorker(db, syncServiceURL, "/api/v1/public/profiles", serviceToken)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Println("Starting Reward User Sync Worker...")
		syncWorker.Start(ctx)
	}()

	sched := services.StartBackgroundJobs(referralService, auditor)
	defer func() { _ = sched.Shutdown() }()

	handlers.SetupReferralRoutes(app, referralService)
	handlers.SetupRewardRoutes(app, questTracker, txRewarder, ledger, userDirectory)
	handlers.SetupAdminRoutes(app, ledger, questTracker, referralService, auditor)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Printf("✅ Season %d reward tables loaded and validated", season)
	log.Println("✅ Reward User Sync Worker running")
	log.Println("✅ Referral backfill + ledger audit jobs scheduled")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")

	<-ctx.Done()
	log.Println("Shutting down server...")
}
