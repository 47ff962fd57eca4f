package types

import "time"

// Poll status values. Status is always derived from ExpiresAt at read
// time and never persisted.
const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// User roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Users (credential store records)
type User struct {
	ID        string `gorm:"primaryKey;size:36"`
	Email     string `gorm:"size:256;uniqueIndex;not null"`
	Password  string `gorm:"size:128;not null"` // bcrypt hash, never serialized
	Name      string `gorm:"size:128"`
	Role      string `gorm:"size:16;not null;default:user"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Polls
type Poll struct {
	ID         string `gorm:"primaryKey;size:36"`
	Title      string `gorm:"size:200;not null"`
	CreatedBy  string `gorm:"size:36;index;not null"`
	CreatedAt  time.Time
	ExpiresAt  time.Time `gorm:"not null"`
	IsPublic   bool      `gorm:"default:true"`
	AccessCode *string   `gorm:"size:8;uniqueIndex"` // set iff IsPublic == false

	AllowMultipleVotes      bool
	AllowMultipleOptions    bool
	MaxSelectableOptions    int `gorm:"default:0"` // meaningful only with AllowMultipleOptions
	ShowResultsBeforeVoting bool

	ResultsDeclared bool  `gorm:"default:false"`
	TotalVotes      int64 `gorm:"default:0"` // ballots cast, == sum(options.vote_count)

	Options []PollOption `gorm:"foreignKey:PollID"`
	Votes   []PollVote   `gorm:"foreignKey:PollID"`
	Creator User         `gorm:"foreignKey:CreatedBy"`
}

// Poll options, ordered by Position within a poll.
type PollOption struct {
	ID        string `gorm:"primaryKey;size:36"`
	PollID    string `gorm:"size:36;index;not null"`
	Position  int    `gorm:"not null"`
	Text      string `gorm:"size:200;not null"`
	VoteCount int64  `gorm:"default:0"`
}

// Vote ledger. One row per vote event: with AllowMultipleVotes a user
// appears once per ballot, otherwise at most once per poll.
type PollVote struct {
	ID        uint64 `gorm:"primaryKey"`
	PollID    string `gorm:"size:36;index:idx_poll_votes_poll_user;not null"`
	UserID    string `gorm:"size:36;index:idx_poll_votes_poll_user;not null"`
	CreatedAt time.Time
}

// Status derives the lifecycle state of p at the given instant.
func (p *Poll) Status(now time.Time) string {
	if now.Before(p.ExpiresAt) {
		return StatusActive
	}
	return StatusExpired
}
