package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/queosk/queosk/internal/domain"
	"github.com/queosk/queosk/internal/repository/memory"
	"github.com/queosk/queosk/pkg/logger"
)

type queueFixture struct {
	uc          domain.QueueUsecase
	repo        *fakeQueueRepo
	live        *memory.QueueStore
	restaurants *fakeRestaurantRepo
	notifier    *recordingNotifier
	clock       *clock
}

func newQueueFixture(t *testing.T, opts QueueOptions) *queueFixture {
	t.Helper()

	f := &queueFixture{
		repo:        newFakeQueueRepo(),
		live:        memory.NewQueueStore(),
		restaurants: newFakeRestaurantRepo(1, 2),
		notifier:    &recordingNotifier{},
		clock:       newClock(),
	}
	opts.Now = f.clock.Now
	f.uc = NewQueueUsecase(
		passthroughTransactor{},
		f.repo,
		f.live,
		f.restaurants,
		newFakeUserRepo(10, 11, 12, 13),
		f.notifier,
		opts,
	)
	return f
}

func join(t *testing.T, uc domain.QueueUsecase, userID, restaurantID int64) *domain.QueueIndex {
	t.Helper()
	index, err := uc.CreateQueue(context.Background(), &domain.QueueCreateRequest{NumberOfParty: 2}, userID, restaurantID)
	require.NoError(t, err)
	return index
}

func appendRaw(t *testing.T, live domain.LiveQueueStore, scope, id string) {
	t.Helper()
	_, err := live.Append(context.Background(), scope, id)
	require.NoError(t, err)
}

func TestCreateQueue_Scenario(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	join(t, f.uc, 10, 1)

	summary, err := f.uc.GetQueueOfRestaurant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.TotalQueue)

	index, err := f.uc.GetUserQueueNumber(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), index.UserQueueIndex)

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))

	summary, err = f.uc.GetQueueOfRestaurant(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), summary.TotalQueue)

	index, err = f.uc.GetUserQueueNumber(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, domain.CalledIndex, index.UserQueueIndex)
}

func TestCreateQueue_ReturnsPositionAtJoin(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	first := join(t, f.uc, 10, 1)
	assert.Equal(t, int64(0), first.UserQueueIndex)
	assert.Equal(t, int64(0), first.QueueRemaining)

	second := join(t, f.uc, 11, 1)
	assert.Equal(t, int64(1), second.UserQueueIndex)

	// The returned position is the one taken at append, not a later lookup.
	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))
	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))

	third := join(t, f.uc, 12, 1)
	assert.Equal(t, int64(0), third.UserQueueIndex)

	fourth := join(t, f.uc, 13, 1)
	assert.Equal(t, int64(1), fourth.UserQueueIndex)
	assert.Equal(t, int64(1), fourth.QueueRemaining)
}

func TestCreateQueue_RejectsSecondActiveJoin(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	join(t, f.uc, 10, 1)

	_, err := f.uc.CreateQueue(ctx, &domain.QueueCreateRequest{NumberOfParty: 3}, 10, 1)
	assert.ErrorIs(t, err, domain.ErrQueueAlreadyExists)

	// Another restaurant is a separate wait.
	join(t, f.uc, 10, 2)
}

func TestCreateQueue_AllowsRejoinAfterCancelOrServe(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	join(t, f.uc, 10, 1)
	require.NoError(t, f.uc.DeleteUserQueue(ctx, 1, 10))
	join(t, f.uc, 10, 1)

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))
	join(t, f.uc, 10, 1)

	index, err := f.uc.GetUserQueueNumber(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(0), index.UserQueueIndex)
}

func TestCreateQueue_Validation(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	tests := []struct {
		name         string
		req          *domain.QueueCreateRequest
		restaurantID int64
		wantErr      error
	}{
		{name: "unknown restaurant", req: &domain.QueueCreateRequest{NumberOfParty: 2}, restaurantID: 99, wantErr: domain.ErrInvalidRestaurant},
		{name: "empty party", req: &domain.QueueCreateRequest{NumberOfParty: 0}, restaurantID: 1, wantErr: domain.ErrInvalidPartySize},
		{name: "party too large", req: &domain.QueueCreateRequest{NumberOfParty: 101}, restaurantID: 1, wantErr: domain.ErrInvalidPartySize},
		{name: "nil request", req: nil, restaurantID: 1, wantErr: domain.ErrInvalidPartySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.uc.CreateQueue(ctx, tt.req, 10, tt.restaurantID)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	total, err := f.live.Count(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateQueue_LiveStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})
	f.uc.(*queueUsecase).liveStore = &failingLiveStore{LiveQueueStore: f.live, failAppend: true}

	_, err := f.uc.CreateQueue(ctx, &domain.QueueCreateRequest{NumberOfParty: 2}, 10, 1)
	assert.ErrorIs(t, err, errLiveStoreDown)
}

func TestGetQueueList_PreservesOrderAndSkipsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	join(t, f.uc, 10, 1)
	join(t, f.uc, 11, 1)
	appendRaw(t, f.live, "1", "999")
	appendRaw(t, f.live, "1", "not-a-number")
	join(t, f.uc, 12, 1)

	list, err := f.uc.GetQueueList(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list.Entries, 3)
	assert.Equal(t, int64(10), list.Entries[0].UserID)
	assert.Equal(t, int64(11), list.Entries[1].UserID)
	assert.Equal(t, int64(12), list.Entries[2].UserID)

	empty, err := f.uc.GetQueueList(ctx, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty.Entries)
	assert.Empty(t, empty.Entries)
}

func TestPopTheFirstTeamOfQueue_Ordering(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	join(t, f.uc, 10, 1)
	join(t, f.uc, 11, 1)
	join(t, f.uc, 12, 1)

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))

	list, err := f.uc.GetQueueList(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, int64(11), list.Entries[0].UserID)
	assert.Equal(t, int64(12), list.Entries[1].UserID)

	served := f.repo.entry(1)
	assert.True(t, served.IsDone)
	assert.Equal(t, f.clock.Now(), served.UpdatedAt)
	assert.False(t, f.repo.entry(2).IsDone)

	index, err := f.uc.GetUserQueueNumber(ctx, 1, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(1), index.UserQueueIndex)
}

func TestPopTheFirstTeamOfQueue_EmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))
	assert.Zero(t, f.repo.markCalls)
	assert.Empty(t, f.notifier.sent())
}

func TestPopTheFirstTeamOfQueue_UnknownIDIsTolerated(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	appendRaw(t, f.live, "1", "42")
	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))

	total, err := f.live.Count(ctx, "1")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestGetUserQueueNumber_GraceWindow(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int64
		wantErr error
	}{
		{name: "just served", elapsed: 0, want: domain.CalledIndex},
		{name: "ten minutes later", elapsed: 10 * time.Minute, want: domain.CalledIndex},
		{name: "window boundary", elapsed: 11 * time.Minute, wantErr: domain.ErrQueueNotFound},
		{name: "twelve minutes later", elapsed: 12 * time.Minute, wantErr: domain.ErrQueueNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQueueFixture(t, QueueOptions{})
			join(t, f.uc, 10, 1)
			require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))

			f.clock.Advance(tt.elapsed)
			index, err := f.uc.GetUserQueueNumber(ctx, 1, 10)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, index.UserQueueIndex)
		})
	}
}

func TestGetUserQueueNumber_NotFound(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	_, err := f.uc.GetUserQueueNumber(ctx, 1, 10)
	assert.ErrorIs(t, err, domain.ErrQueueNotFound)

	// Cancelled entries are never reported, even right away.
	join(t, f.uc, 10, 1)
	require.NoError(t, f.uc.DeleteUserQueue(ctx, 1, 10))
	_, err = f.uc.GetUserQueueNumber(ctx, 1, 10)
	assert.ErrorIs(t, err, domain.ErrQueueNotFound)
}

func TestGetUserQueueNumber_LiveStoreError(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})
	join(t, f.uc, 10, 1)
	f.uc.(*queueUsecase).liveStore = &failingLiveStore{LiveQueueStore: f.live, failRank: true}

	_, err := f.uc.GetUserQueueNumber(ctx, 1, 10)
	assert.ErrorIs(t, err, errLiveStoreDown)
}

func TestDeleteUserQueue(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})

	assert.ErrorIs(t, f.uc.DeleteUserQueue(ctx, 1, 10), domain.ErrQueueNotFound)

	join(t, f.uc, 10, 1)
	join(t, f.uc, 11, 1)

	require.NoError(t, f.uc.DeleteUserQueue(ctx, 1, 10))
	require.NoError(t, f.uc.DeleteUserQueue(ctx, 1, 10))

	entry := f.repo.entry(1)
	assert.False(t, entry.IsDone)

	index, err := f.uc.GetUserQueueNumber(ctx, 1, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(0), index.UserQueueIndex)
}

func TestGetUserQueueList(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})
	f.restaurants.restaurants[3] = &domain.Restaurant{ID: 3, RestaurantName: "closing soon"}

	join(t, f.uc, 11, 1) // ahead of user 10 at restaurant 1
	join(t, f.uc, 10, 1)
	join(t, f.uc, 10, 2)
	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 2)) // served, inside grace window
	join(t, f.uc, 10, 3)
	delete(f.restaurants.restaurants, 3) // restaurant vanished

	list, err := f.uc.GetUserQueueList(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, int64(1), list[0].Restaurant.ID)
	assert.Equal(t, int64(1), list[0].UserQueueIndex)
	assert.Equal(t, int64(2), list[1].Restaurant.ID)
	assert.Equal(t, domain.CalledIndex, list[1].UserQueueIndex)

	f.clock.Advance(12 * time.Minute)
	list, err = f.uc.GetUserQueueList(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].Restaurant.ID)

	none, err := f.uc.GetUserQueueList(ctx, 99)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func observeWarnings(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.WarnLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestPopTheFirstTeamOfQueue_NotifiesByEntryID(t *testing.T) {
	ctx := context.Background()
	logs := observeWarnings(t)
	f := newQueueFixture(t, QueueOptions{})

	// Entry ids 1..4 for users 10..13.
	join(t, f.uc, 10, 1)
	join(t, f.uc, 11, 1)
	join(t, f.uc, 12, 1)
	join(t, f.uc, 13, 1)

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))

	// Waiting: id 2 (rank 0), id 3 (rank 1), id 4 (rank 2).
	assert.Equal(t, []string{emailOf(11)}, f.notifier.sent())

	// Entry 3 is second in line but its id is above the threshold.
	mismatches := logs.FilterMessage("Near-front check differs between entry id and queue position")
	require.Equal(t, 1, mismatches.Len())
	assert.Equal(t, int64(3), mismatches.All()[0].ContextMap()["queue_id"])
}

func TestPopTheFirstTeamOfQueue_NotifiesByRank(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{NotifyByRank: true})

	join(t, f.uc, 10, 1)
	join(t, f.uc, 11, 1)
	join(t, f.uc, 12, 1)
	join(t, f.uc, 13, 1)

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))
	assert.Equal(t, []string{emailOf(11), emailOf(12)}, f.notifier.sent())

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))
	assert.Equal(t, []string{emailOf(11), emailOf(12), emailOf(12), emailOf(13)}, f.notifier.sent())
}

func TestPopTheFirstTeamOfQueue_NotificationFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	f := newQueueFixture(t, QueueOptions{})
	f.notifier.err = assert.AnError

	join(t, f.uc, 10, 1)
	join(t, f.uc, 11, 1)

	require.NoError(t, f.uc.PopTheFirstTeamOfQueue(ctx, 1))
	assert.Len(t, f.notifier.sent(), 1)
	assert.True(t, f.repo.entry(1).IsDone)
}
