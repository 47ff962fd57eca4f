package polls

import (
	"context"
	"errors"

	"github.com/votesnap/votesnap/src/api/types"
	"gorm.io/gorm"
)

// DeclareResults flips the results flag. Creator or admin only, allowed
// after expiry, and idempotent: declaring twice is a no-op success.
// There is no undeclare.
func (s *Service) DeclareResults(ctx context.Context, id string, caller Caller) (*types.Poll, error) {
	var poll types.Poll
	err := s.db.WithContext(ctx).First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !caller.privileged(&poll) {
		return nil, ErrNotAuthorized
	}
	if !poll.ResultsDeclared {
		if err := s.db.WithContext(ctx).Model(&poll).
			UpdateColumn("results_declared", true).Error; err != nil {
			return nil, err
		}
	}
	return s.load(ctx, s.db, id)
}
