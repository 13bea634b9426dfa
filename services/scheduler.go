// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartBackgroundJobs schedules the referral-reward backfill pass and the
// weekly ledger audit export. Returns the scheduler so main can shut it down.
func StartBackgroundJobs(referrals *ReferralService, auditor *LedgerAuditor) gocron.Scheduler {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 10 minutes: retry signup rewards that failed after their referral
	// committed. Awards are idempotent through the ledger, so re-running a
	// half-applied one is safe.
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			pending, err := referrals.PendingSignupRewards(100)
			if err != nil {
				log.Printf("[Scheduler] Backfill query failed: %v", err)
				return
			}
			for i := range pending {
				referrals.RetrySignupReward(&pending[i])
			}
			if len(pending) > 0 {
				log.Printf("✅ [Scheduler] Retried %d missed signup reward(s)", len(pending))
			}
		}),
	)

	// Weekly: export the ledger to R2 and report balance drift.
	_, _ = sched.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			if _, err := auditor.RunExport(); err != nil {
				log.Printf("[Scheduler] Ledger export failed: %v", err)
			}
		}),
	)

	return sched
}
