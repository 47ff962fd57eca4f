package polls

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/votesnap/votesnap/src/api/types"
	"gorm.io/gorm"
)

// testClock lets tests move time forward past poll expiry.
type testClock struct {
	now time.Time
}

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func setupService(t *testing.T) (*Service, *gorm.DB, *testClock) {
	t.Helper()
	// Named in-memory database with a shared cache, so every pooled
	// connection sees the same data but tests stay isolated.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.User{}, &types.Poll{}, &types.PollOption{}, &types.PollVote{},
	))
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(db)
	svc.now = func() time.Time { return clock.now }
	return svc, db, clock
}

func seedUser(t *testing.T, db *gorm.DB, email, role string) types.User {
	t.Helper()
	user := types.User{
		ID:       uuid.NewString(),
		Email:    email,
		Password: "x",
		Name:     email,
		Role:     role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createPoll(t *testing.T, svc *Service, in CreateInput) *types.Poll {
	t.Helper()
	poll, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return poll
}

func basicInput(creator string, options ...string) CreateInput {
	if len(options) == 0 {
		options = []string{"A", "B"}
	}
	return CreateInput{
		Title:       "Pick one",
		Options:     options,
		ExpiryHours: 1,
		IsPublic:    true,
		CreatedBy:   creator,
	}
}

func TestGetPublicPollAnonymous(t *testing.T) {
	svc, db, _ := setupService(t)
	creator := seedUser(t, db, "creator@example.com", types.RoleUser)
	poll := createPoll(t, svc, basicInput(creator.ID))

	got, err := svc.Get(context.Background(), poll.ID, Caller{}, "")
	require.NoError(t, err)
	require.Equal(t, poll.ID, got.ID)
	require.Len(t, got.Options, 2)
}

func TestGetUnknownPoll(t *testing.T) {
	svc, _, _ := setupService(t)
	_, err := svc.Get(context.Background(), uuid.NewString(), Caller{}, "")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPrivatePollAccessGate(t *testing.T) {
	svc, db, _ := setupService(t)
	creator := seedUser(t, db, "creator@example.com", types.RoleUser)
	admin := seedUser(t, db, "admin@example.com", types.RoleAdmin)
	other := seedUser(t, db, "other@example.com", types.RoleUser)

	in := basicInput(creator.ID, "Yes", "No")
	in.IsPublic = false
	poll := createPoll(t, svc, in)
	require.NotNil(t, poll.AccessCode)
	require.Len(t, *poll.AccessCode, 8)

	ctx := context.Background()

	// No code, wrong code and wrong-cased code are all denied; the
	// failure must stay distinct from NotFound.
	_, err := svc.Get(ctx, poll.ID, Caller{ID: other.ID}, "")
	require.ErrorIs(t, err, ErrAccessDenied)
	_, err = svc.Get(ctx, poll.ID, Caller{ID: other.ID}, "WRONG123")
	require.ErrorIs(t, err, ErrAccessDenied)

	// Correct code passes.
	got, err := svc.Get(ctx, poll.ID, Caller{ID: other.ID}, *poll.AccessCode)
	require.NoError(t, err)
	require.Equal(t, poll.ID, got.ID)

	// Creator and admin need no code.
	_, err = svc.Get(ctx, poll.ID, Caller{ID: creator.ID}, "")
	require.NoError(t, err)
	_, err = svc.Get(ctx, poll.ID, Caller{ID: admin.ID, Admin: true}, "")
	require.NoError(t, err)
}

func TestDeletePoll(t *testing.T) {
	svc, db, _ := setupService(t)
	creator := seedUser(t, db, "creator@example.com", types.RoleUser)
	other := seedUser(t, db, "other@example.com", types.RoleUser)
	voter := seedUser(t, db, "voter@example.com", types.RoleUser)
	poll := createPoll(t, svc, basicInput(creator.ID))

	ctx := context.Background()
	_, err := svc.Vote(ctx, poll.ID, voter.ID, []string{poll.Options[0].ID}, "")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Delete(ctx, poll.ID, Caller{ID: other.ID}), ErrNotAuthorized)

	require.NoError(t, svc.Delete(ctx, poll.ID, Caller{ID: creator.ID}))
	require.ErrorIs(t, svc.Delete(ctx, poll.ID, Caller{ID: creator.ID}), ErrNotFound)

	// Hard delete takes options and ledger rows with it.
	var nOpts, nVotes int64
	require.NoError(t, db.Model(&types.PollOption{}).Where("poll_id = ?", poll.ID).Count(&nOpts).Error)
	require.NoError(t, db.Model(&types.PollVote{}).Where("poll_id = ?", poll.ID).Count(&nVotes).Error)
	require.Zero(t, nOpts)
	require.Zero(t, nVotes)
}

func TestLists(t *testing.T) {
	svc, db, clock := setupService(t)
	alice := seedUser(t, db, "alice@example.com", types.RoleUser)
	bob := seedUser(t, db, "bob@example.com", types.RoleUser)

	pub := createPoll(t, svc, basicInput(alice.ID))
	clock.advance(time.Second)
	in := basicInput(alice.ID)
	in.IsPublic = false
	priv := createPoll(t, svc, in)
	clock.advance(time.Second)
	bobs := createPoll(t, svc, basicInput(bob.ID))

	ctx := context.Background()

	public, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 2)
	// Newest first.
	require.Equal(t, bobs.ID, public[0].ID)
	require.Equal(t, pub.ID, public[1].ID)

	mine, err := svc.ListByCreator(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	require.Equal(t, priv.ID, mine[0].ID)

	_, err = svc.ListAll(ctx, Caller{ID: alice.ID})
	require.ErrorIs(t, err, ErrNotAuthorized)

	all, err := svc.ListAll(ctx, Caller{ID: alice.ID, Admin: true})
	require.NoError(t, err)
	require.Len(t, all, 3)
}
