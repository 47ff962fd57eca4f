package polls

import (
	"context"
	"log"
	"time"

	"github.com/votesnap/votesnap/src/api/types"
	"gorm.io/gorm"
)

// StartTallyAudit periodically verifies that total_votes equals the sum
// of option vote counts for every poll, repairing and logging any
// drift. The vote path maintains the invariant on its own; this is a
// defensive check, not part of the write path.
func StartTallyAudit(ctx context.Context, db *gorm.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := auditTallies(ctx, db); err != nil {
				log.Printf("tally audit: %v", err)
			} else if n > 0 {
				log.Printf("tally audit: repaired %d poll(s)", n)
			}
		}
	}
}

func auditTallies(ctx context.Context, db *gorm.DB) (int, error) {
	type drifted struct {
		ID  string
		Sum int64
	}
	var rows []drifted
	// Multi-select polls credit several options per ballot, so the
	// ballots == sum equality only applies to single-select polls.
	err := db.WithContext(ctx).Model(&types.Poll{}).
		Select("polls.id, COALESCE(SUM(poll_options.vote_count), 0) AS sum").
		Joins("LEFT JOIN poll_options ON poll_options.poll_id = polls.id").
		Where("polls.allow_multiple_options = ?", false).
		Group("polls.id").
		Having("polls.total_votes <> COALESCE(SUM(poll_options.vote_count), 0)").
		Scan(&rows).Error
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		log.Printf("tally audit: poll %s total_votes drifted, resetting to %d", row.ID, row.Sum)
		if err := db.WithContext(ctx).Model(&types.Poll{}).
			Where("id = ?", row.ID).
			UpdateColumn("total_votes", row.Sum).Error; err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}
