package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"strconv"
	"time"

	"split-rewards-system/models"
	"split-rewards-system/utils"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"
)

// LedgerAuditor exports the ledger for offline audit and reports users whose
// materialized balance has drifted from the sum of their entries. The ledger
// is the source of truth; a drift means a historical award ran outside the
// transactional path.
type LedgerAuditor struct {
	DB     *gorm.DB
	Ledger *PointsLedger
}

func NewLedgerAuditor(db *gorm.DB, ledger *PointsLedger) *LedgerAuditor {
	return &LedgerAuditor{DB: db, Ledger: ledger}
}

type driftEntry struct {
	UserID    string
	Balance   int64
	LedgerSum int64
}

// RunExport builds the CSV snapshot plus a drift summary and uploads both to R2.
func (a *LedgerAuditor) RunExport() (string, error) {
	var entries []models.PointsTransaction
	if err := a.DB.Order("created_at ASC").Find(&entries).Error; err != nil {
		return "", err
	}

	buf := &bytes.Buffer{}
	w := csv.NewWriter(buf)
	_ = w.Write([]string{"id", "user_id", "amount", "multiplier", "source", "source_id", "season", "task_type", "created_at"})
	var totalPoints int64
	for _, e := range entries {
		season, taskType := "", ""
		if e.Season != nil {
			season = strconv.Itoa(*e.Season)
		}
		if e.TaskType != nil {
			taskType = *e.TaskType
		}
		_ = w.Write([]string{
			e.ID, e.UserID, strconv.FormatInt(e.Amount, 10), strconv.FormatInt(e.Multiplier, 10),
			string(e.Source), e.SourceID, season, taskType, e.CreatedAt.UTC().Format(time.RFC3339),
		})
		totalPoints += e.Amount
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	drift, err := a.findDrift()
	if err != nil {
		return "", err
	}

	printer := message.NewPrinter(language.English)
	summary := printer.Sprintf("ledger export: %d entries, %d points total, %d balance drift(s)",
		len(entries), totalPoints, len(drift))
	log.Printf("[AUDIT] %s", summary)
	for _, d := range drift {
		log.Printf("⚠️ [AUDIT] Balance drift: user=%s balance=%d ledger_sum=%d", d.UserID, d.Balance, d.LedgerSum)
	}

	key := fmt.Sprintf("ledger-exports/%s.csv", time.Now().UTC().Format("2006-01-02"))
	url, err := utils.UploadBytesToR2(key, "text/csv", buf.Bytes())
	if err != nil {
		return "", err
	}
	log.Printf("[AUDIT] Export uploaded: %s", url)
	return url, nil
}

// findDrift compares each user's materialized balance with their ledger sum.
func (a *LedgerAuditor) findDrift() ([]driftEntry, error) {
	var users []models.RewardUser
	if err := a.DB.Where("total_points_earned > 0 OR points > 0").Find(&users).Error; err != nil {
		return nil, err
	}

	var drift []driftEntry
	for _, u := range users {
		sum, err := a.Ledger.SumForUser(u.ExternalUserID)
		if err != nil {
			return nil, err
		}
		if sum != u.TotalPointsEarned {
			drift = append(drift, driftEntry{UserID: u.ExternalUserID, Balance: u.TotalPointsEarned, LedgerSum: sum})
		}
	}
	return drift, nil
}
