package polls

import (
	"context"

	"github.com/votesnap/votesnap/src/api/types"
	"gorm.io/gorm"
)

// Vote validates and applies one ballot inside a single transaction.
// Tally columns are bumped with atomic expressions, never read-modify-
// written in application memory, so concurrent ballots cannot lose
// updates. One ballot moves TotalVotes by exactly 1 no matter how many
// options it selects.
func (s *Service) Vote(ctx context.Context, pollID, voterID string, selection []string, accessCode string) (*types.Poll, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		poll, err := lockPoll(tx, pollID)
		if err != nil {
			return err
		}
		if poll.Status(s.now()) == types.StatusExpired {
			return ErrExpired
		}
		if err := checkAccess(poll, Caller{ID: voterID}, accessCode); err != nil {
			return err
		}
		if !poll.AllowMultipleVotes {
			var n int64
			if err := tx.Model(&types.PollVote{}).
				Where("poll_id = ? AND user_id = ?", pollID, voterID).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return ErrAlreadyVoted
			}
		}

		var options []types.PollOption
		if err := tx.Where("poll_id = ?", pollID).Find(&options).Error; err != nil {
			return err
		}
		chosen, err := validateSelection(poll, options, selection)
		if err != nil {
			return err
		}

		for _, optionID := range chosen {
			if err := tx.Model(&types.PollOption{}).
				Where("id = ?", optionID).
				UpdateColumn("vote_count", gorm.Expr("vote_count + 1")).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&types.Poll{}).
			Where("id = ?", pollID).
			UpdateColumn("total_votes", gorm.Expr("total_votes + 1")).Error; err != nil {
			return err
		}
		return tx.Create(&types.PollVote{
			PollID:    pollID,
			UserID:    voterID,
			CreatedAt: s.now(),
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, pollID)
}

// validateSelection checks a ballot against the poll's selection mode
// and returns the de-duplicated option IDs to credit.
func validateSelection(poll *types.Poll, options []types.PollOption, selection []string) ([]string, error) {
	valid := make(map[string]bool, len(options))
	for _, opt := range options {
		valid[opt.ID] = true
	}

	if !poll.AllowMultipleOptions {
		if len(selection) != 1 || !valid[selection[0]] {
			return nil, ErrInvalidOption
		}
		return selection[:1], nil
	}

	chosen := make([]string, 0, len(selection))
	seen := make(map[string]bool, len(selection))
	for _, id := range selection {
		if seen[id] {
			continue
		}
		seen[id] = true
		if !valid[id] {
			return nil, ErrInvalidOption
		}
		chosen = append(chosen, id)
	}
	if len(chosen) == 0 {
		return nil, ErrInvalidOption
	}
	if poll.MaxSelectableOptions > 0 && len(chosen) > poll.MaxSelectableOptions {
		return nil, ErrTooManyOptions
	}
	return chosen, nil
}
