package polls

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/votesnap/votesnap/src/api/types"
	"gorm.io/gorm"
)

const (
	titleMinLen = 3
	titleMaxLen = 200
	optionsMin  = 2
	optionsMax  = 10
	expiryMinH  = 1
	expiryMaxH  = 168

	accessCodeLen   = 8
	accessCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type CreateInput struct {
	Title                   string
	Options                 []string
	ExpiryHours             int
	IsPublic                bool
	AllowMultipleVotes      bool
	AllowMultipleOptions    bool
	MaxSelectableOptions    int
	ShowResultsBeforeVoting bool
	CreatedBy               string
}

// Create validates and persists a new poll. Private polls get a unique
// 8-character access code.
func (s *Service) Create(ctx context.Context, in CreateInput) (*types.Poll, error) {
	title := strings.TrimSpace(s.sanitizer.Sanitize(in.Title))
	if len(title) < titleMinLen || len(title) > titleMaxLen {
		return nil, validationf(fmt.Sprintf("title must be between %d and %d characters", titleMinLen, titleMaxLen))
	}

	texts := make([]string, 0, len(in.Options))
	seen := make(map[string]bool, len(in.Options))
	for _, raw := range in.Options {
		text := strings.TrimSpace(s.sanitizer.Sanitize(raw))
		if text == "" {
			return nil, validationf("all options must be non-empty")
		}
		key := strings.ToLower(text)
		if seen[key] {
			return nil, validationf("options must be unique")
		}
		seen[key] = true
		texts = append(texts, text)
	}
	if len(texts) < optionsMin || len(texts) > optionsMax {
		return nil, validationf(fmt.Sprintf("between %d and %d options are required", optionsMin, optionsMax))
	}

	if in.ExpiryHours < expiryMinH || in.ExpiryHours > expiryMaxH {
		return nil, validationf(fmt.Sprintf("expiry hours must be between %d and %d", expiryMinH, expiryMaxH))
	}

	maxSelectable := 0
	if in.AllowMultipleOptions {
		maxSelectable = in.MaxSelectableOptions
		if maxSelectable < 2 {
			maxSelectable = 2
		}
		if maxSelectable > len(texts) {
			maxSelectable = len(texts)
		}
	}

	now := s.now()
	poll := types.Poll{
		ID:                      uuid.NewString(),
		Title:                   title,
		CreatedBy:               in.CreatedBy,
		CreatedAt:               now,
		ExpiresAt:               now.Add(time.Duration(in.ExpiryHours) * time.Hour),
		IsPublic:                in.IsPublic,
		AllowMultipleVotes:      in.AllowMultipleVotes,
		AllowMultipleOptions:    in.AllowMultipleOptions,
		MaxSelectableOptions:    maxSelectable,
		ShowResultsBeforeVoting: in.ShowResultsBeforeVoting,
	}
	if !in.IsPublic {
		code, err := s.uniqueAccessCode(ctx)
		if err != nil {
			return nil, err
		}
		poll.AccessCode = &code
	}
	for i, text := range texts {
		poll.Options = append(poll.Options, types.PollOption{
			ID:       uuid.NewString(),
			PollID:   poll.ID,
			Position: i,
			Text:     text,
		})
	}

	if err := s.db.WithContext(ctx).Create(&poll).Error; err != nil {
		return nil, err
	}
	return s.load(ctx, s.db, poll.ID)
}

// uniqueAccessCode draws random codes until one is unused. The unique
// index on access_code backstops a race between two creates.
func (s *Service) uniqueAccessCode(ctx context.Context) (string, error) {
	for {
		code, err := randomCode(accessCodeLen)
		if err != nil {
			return "", err
		}
		var n int64
		if err := s.db.WithContext(ctx).Model(&types.Poll{}).
			Where("access_code = ?", code).Count(&n).Error; err != nil {
			return "", err
		}
		if n == 0 {
			return code, nil
		}
	}
}

func randomCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = accessCodeChars[int(b)%len(accessCodeChars)]
	}
	return string(buf), nil
}

// Delete hard-deletes a poll with its options and vote ledger. Only the
// creator or an admin may delete.
func (s *Service) Delete(ctx context.Context, id string, caller Caller) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var poll types.Poll
		err := tx.First(&poll, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if !caller.privileged(&poll) {
			return ErrNotAuthorized
		}
		if err := tx.Where("poll_id = ?", id).Delete(&types.PollVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", id).Delete(&types.PollOption{}).Error; err != nil {
			return err
		}
		return tx.Delete(&poll).Error
	})
}

// ListPublic returns public polls, newest first.
func (s *Service) ListPublic(ctx context.Context) ([]types.Poll, error) {
	return s.list(ctx, s.db.Where("is_public = ?", true))
}

// ListByCreator returns the caller's own polls, newest first.
func (s *Service) ListByCreator(ctx context.Context, userID string) ([]types.Poll, error) {
	return s.list(ctx, s.db.Where("created_by = ?", userID))
}

// ListAll returns every poll for the admin dashboard.
func (s *Service) ListAll(ctx context.Context, caller Caller) ([]types.Poll, error) {
	if !caller.Admin {
		return nil, ErrNotAuthorized
	}
	return s.list(ctx, s.db)
}

func (s *Service) list(ctx context.Context, q *gorm.DB) ([]types.Poll, error) {
	var polls []types.Poll
	err := q.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
		Preload("Creator").
		Order("created_at desc").
		Find(&polls).Error
	return polls, err
}
