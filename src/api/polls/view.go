package polls

import (
	"context"
	"time"

	"github.com/votesnap/votesnap/src/api/types"
)

// OptionView is an option as embedded in a poll response. VoteCount is
// omitted entirely when the caller may not see tallies.
type OptionView struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	VoteCount *int64 `json:"voteCount,omitempty"`
}

type CreatorView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// PollView is the caller-specific rendering of a poll. What it embeds,
// not just whether it is returned, follows the access and results
// visibility rules: tallies, the access code and voter emails only
// appear for callers entitled to them.
type PollView struct {
	ID                   string       `json:"id"`
	Title                string       `json:"title"`
	Status               string       `json:"status"`
	CreatedBy            CreatorView  `json:"createdBy"`
	CreatedAt            time.Time    `json:"createdAt"`
	ExpiresAt            time.Time    `json:"expiresAt"`
	IsPublic             bool         `json:"isPublic"`
	AccessCode           *string      `json:"accessCode,omitempty"`
	AllowMultipleVotes   bool         `json:"allowMultipleVotes"`
	AllowMultipleOptions bool         `json:"allowMultipleOptions"`
	MaxSelectableOptions int          `json:"maxSelectableOptions,omitempty"`
	ResultsDeclared      bool         `json:"resultsDeclared"`
	ResultsVisible       bool         `json:"resultsVisible"`
	HasVoted             bool         `json:"hasVoted"`
	TotalVotes           *int64       `json:"totalVotes,omitempty"`
	Options              []OptionView `json:"options"`
	Voters               []string     `json:"voters,omitempty"`
}

// View renders a poll for one caller.
func (s *Service) View(ctx context.Context, poll *types.Poll, caller Caller) (*PollView, error) {
	voted, err := s.hasVoted(ctx, poll.ID, caller.ID)
	if err != nil {
		return nil, err
	}

	privileged := caller.privileged(poll)
	now := s.now()
	expired := poll.Status(now) == types.StatusExpired

	// A voter (or anyone once the poll is closed) sees tallies only
	// after the creator declares them. Before voting the caller gets
	// the ballot form unless the poll opts into early results.
	showResults := privileged || poll.ShowResultsBeforeVoting ||
		(poll.ResultsDeclared && (voted || expired))

	view := &PollView{
		ID:     poll.ID,
		Title:  poll.Title,
		Status: poll.Status(now),
		CreatedBy: CreatorView{
			ID:   poll.Creator.ID,
			Name: poll.Creator.Name,
		},
		CreatedAt:            poll.CreatedAt,
		ExpiresAt:            poll.ExpiresAt,
		IsPublic:             poll.IsPublic,
		AllowMultipleVotes:   poll.AllowMultipleVotes,
		AllowMultipleOptions: poll.AllowMultipleOptions,
		MaxSelectableOptions: poll.MaxSelectableOptions,
		ResultsDeclared:      poll.ResultsDeclared,
		ResultsVisible:       showResults,
		HasVoted:             voted,
	}
	if privileged {
		view.AccessCode = poll.AccessCode
		view.CreatedBy.Email = poll.Creator.Email
		emails, err := s.voterEmails(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		view.Voters = emails
	}
	if showResults {
		total := poll.TotalVotes
		view.TotalVotes = &total
	}
	for _, opt := range poll.Options {
		ov := OptionView{ID: opt.ID, Text: opt.Text}
		if showResults {
			count := opt.VoteCount
			ov.VoteCount = &count
		}
		view.Options = append(view.Options, ov)
	}
	return view, nil
}

// Views renders a list of polls for one caller.
func (s *Service) Views(ctx context.Context, list []types.Poll, caller Caller) ([]*PollView, error) {
	out := make([]*PollView, 0, len(list))
	for i := range list {
		v, err := s.View(ctx, &list[i], caller)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// voterEmails resolves distinct voter identities to emails for the
// creator/admin view.
func (s *Service) voterEmails(ctx context.Context, pollID string) ([]string, error) {
	var emails []string
	err := s.db.WithContext(ctx).Model(&types.PollVote{}).
		Joins("JOIN users ON users.id = poll_votes.user_id").
		Where("poll_votes.poll_id = ?", pollID).
		Distinct().
		Order("users.email asc").
		Pluck("users.email", &emails).Error
	return emails, err
}
