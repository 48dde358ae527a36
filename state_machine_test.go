package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	auth "github.com/hireloop/portal-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStatusUpdater struct {
	mock.Mock
}

func (m *MockStatusUpdater) UpdateStatus(ctx context.Context, id uuid.UUID, status auth.UserStatus) (*auth.User, error) {
	args := m.Called(ctx, id, status)
	user, _ := args.Get(0).(*auth.User)
	return user, args.Error(1)
}

func TestUserStateMachine_Transition(t *testing.T) {
	ctx := context.Background()
	orgID := uuid.New()
	user := newTestUser(auth.RoleClientViewer, orgID)
	actor := auth.ActorRef{ID: "boss", Type: auth.RoleClientAdmin}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	store := new(MockStatusUpdater)
	store.On("UpdateStatus", ctx, user.ID, auth.UserStatusDisabled).
		Return(&auth.User{ID: user.ID, Status: auth.UserStatusDisabled}, nil).Once()

	events := &eventRecorder{}
	sm := auth.NewUserStateMachine(store,
		auth.WithStateMachineActivitySink(events),
		auth.WithStateMachineClock(func() time.Time { return now }),
	)

	var hooked auth.TransitionContext
	updated, err := sm.Transition(ctx, actor, user, auth.UserStatusDisabled,
		auth.WithTransitionReason("offboarded"),
		auth.WithAfterTransitionHook(func(_ context.Context, tc auth.TransitionContext) error {
			hooked = tc
			return nil
		}),
	)
	require.NoError(t, err)
	assert.Equal(t, auth.UserStatusDisabled, updated.Status)
	assert.Equal(t, auth.UserStatusActive, hooked.From)
	assert.Equal(t, auth.UserStatusDisabled, hooked.To)
	assert.Equal(t, "offboarded", hooked.Reason)

	require.Len(t, events.events, 1)
	event := events.events[0]
	assert.Equal(t, auth.ActivityEventUserStatusChanged, event.EventType)
	assert.Equal(t, orgID.String(), event.OrgID)
	assert.Equal(t, auth.UserStatusActive, event.FromStatus)
	assert.Equal(t, auth.UserStatusDisabled, event.ToStatus)
	assert.Equal(t, now, event.OccurredAt)
	assert.Equal(t, "offboarded", event.Metadata["reason"])

	store.AssertExpectations(t)
}

func TestUserStateMachine_SameStatusIsNoop(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(auth.RoleClientViewer, uuid.New())
	user.Status = auth.UserStatusDisabled

	store := new(MockStatusUpdater)
	events := &eventRecorder{}
	sm := auth.NewUserStateMachine(store, auth.WithStateMachineActivitySink(events))

	updated, err := sm.Transition(ctx, auth.ActorRef{ID: "root"}, user, auth.UserStatusDisabled)
	require.NoError(t, err)
	assert.Same(t, user, updated)
	assert.Empty(t, events.events)
	store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserStateMachine_Rejections(t *testing.T) {
	ctx := context.Background()
	store := new(MockStatusUpdater)
	sm := auth.NewUserStateMachine(store)

	_, err := sm.Transition(ctx, auth.ActorRef{}, nil, auth.UserStatusActive)
	assert.ErrorContains(t, err, "invalid user state transition")

	_, err = sm.Transition(ctx, auth.ActorRef{}, newTestUser(auth.RoleAdmin, uuid.Nil), "archived")
	require.Error(t, err)
	assert.True(t, auth.HasTextCode(err, auth.TextCodeInvalidStatus))

	store.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserStateMachine_StoreAndHookFailures(t *testing.T) {
	ctx := context.Background()
	user := newTestUser(auth.RolePlatformViewer, uuid.Nil)

	store := new(MockStatusUpdater)
	store.On("UpdateStatus", ctx, user.ID, auth.UserStatusDisabled).Return(nil, errors.New("db down")).Once()
	store.On("UpdateStatus", ctx, user.ID, auth.UserStatusDisabled).Return(nil, nil).Once()

	sm := auth.NewUserStateMachine(store)

	_, err := sm.Transition(ctx, auth.ActorRef{}, user, auth.UserStatusDisabled)
	assert.EqualError(t, err, "db down")
	assert.Equal(t, auth.UserStatusActive, user.Status)

	_, err = sm.Transition(ctx, auth.ActorRef{}, user, auth.UserStatusDisabled,
		auth.WithAfterTransitionHook(func(context.Context, auth.TransitionContext) error {
			return errors.New("hook failed")
		}),
	)
	assert.EqualError(t, err, "hook failed")
}

func TestUserStateMachine_CurrentStatus(t *testing.T) {
	sm := auth.NewUserStateMachine(new(MockStatusUpdater))
	assert.Equal(t, auth.UserStatusActive, sm.CurrentStatus(&auth.User{}))
	assert.Empty(t, sm.CurrentStatus(nil))
}
