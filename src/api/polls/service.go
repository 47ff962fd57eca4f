package polls

import (
	"context"
	"errors"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/votesnap/votesnap/src/api/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Caller identifies who is invoking an operation. A zero Caller is an
// anonymous reader. Admin must come from the stored user record, not
// from a token claim.
type Caller struct {
	ID    string
	Admin bool
}

func (c Caller) anonymous() bool { return c.ID == "" }

func (c Caller) owns(p *types.Poll) bool {
	return !c.anonymous() && c.ID == p.CreatedBy
}

func (c Caller) privileged(p *types.Poll) bool {
	return c.Admin || c.owns(p)
}

// Service implements the poll operations against the record store.
type Service struct {
	db        *gorm.DB
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:        db,
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// load fetches a poll with its options in position order.
func (s *Service) load(ctx context.Context, tx *gorm.DB, id string) (*types.Poll, error) {
	var poll types.Poll
	err := tx.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Creator").
		First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// lockPoll reads a poll row for update inside a transaction. SQLite has
// no FOR UPDATE and serializes writers by itself, so the clause is only
// applied on MySQL.
func lockPoll(tx *gorm.DB, id string) (*types.Poll, error) {
	q := tx
	if tx.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var poll types.Poll
	err := q.First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

// hasVoted reports whether a user has at least one ledger entry for the
// poll. With AllowMultipleVotes the ledger holds one row per ballot, so
// this is a distinct-user query on purpose.
func (s *Service) hasVoted(ctx context.Context, pollID, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&types.PollVote{}).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		Count(&n).Error
	return n > 0, err
}

// checkAccess applies the access gate: creator and admins always pass,
// public polls pass for everyone, private polls need the exact code.
func checkAccess(p *types.Poll, caller Caller, accessCode string) error {
	if caller.privileged(p) || p.IsPublic {
		return nil
	}
	if p.AccessCode == nil || accessCode == "" || accessCode != *p.AccessCode {
		return ErrAccessDenied
	}
	return nil
}

// Get returns a poll if the caller passes the access gate. AccessDenied
// stays distinct from NotFound so the UI can prompt for a code.
func (s *Service) Get(ctx context.Context, id string, caller Caller, accessCode string) (*types.Poll, error) {
	poll, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if err := checkAccess(poll, caller, accessCode); err != nil {
		return nil, err
	}
	return poll, nil
}

// IsAdmin looks up the stored role for a user. Privileged operations
// consult the record store rather than trusting a role claim carried in
// a stale token.
func IsAdmin(ctx context.Context, db *gorm.DB, userID string) bool {
	if userID == "" {
		return false
	}
	var user types.User
	if err := db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return false
	}
	return user.Role == types.RoleAdmin
}
