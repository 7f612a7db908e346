package impl

import (
	"context"
	"testing"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMigrationFixture() (*fakeTokenRepo, *fakeSubscriptionRepo, *fakeTxManager) {
	tokens := &fakeTokenRepo{}
	subs := &fakeSubscriptionRepo{}
	tokens.subs = subs
	subs.tokens = tokens

	return tokens, subs, &fakeTxManager{tokens: tokens, subs: subs}
}

func guestToken(service entity.PushService, token, guestID string) *entity.DeviceToken {
	return &entity.DeviceToken{
		UUID:    uuid.New(),
		Owner:   entity.GuestIdentity(guestID),
		Service: service,
		Token:   token,
	}
}

func TestMigrationService_MigrateGuest_MovesTokensAndSubscriptions(t *testing.T) {
	tokens, subs, tx := newMigrationFixture()
	svc := NewMigrationService(tx)
	ctx := context.Background()

	require.NoError(t, tokens.CreateToken(ctx, guestToken(entity.PushServiceFCM, "device-a", "guest-1")))
	require.NoError(t, subs.CreateSubscription(ctx, &entity.Subscription{
		Owner:  entity.GuestIdentity("guest-1"),
		Target: entity.Target{ObjectType: "post", ObjectID: 12},
	}))

	report, err := svc.MigrateGuest(ctx, "guest-1", 42)

	require.NoError(t, err)
	assert.Equal(t, int64(1), report.TokensMigrated)
	assert.Equal(t, int64(1), report.SubscriptionsMigrated)
	assert.True(t, tokens.tokens[0].Owner.Equal(entity.UserIdentity(42)))
	assert.True(t, subs.subs[0].Owner.Equal(entity.UserIdentity(42)))
}

func TestMigrationService_MigrateGuest_UserRowWinsOnConflict(t *testing.T) {
	tokens, subs, tx := newMigrationFixture()
	svc := NewMigrationService(tx)
	ctx := context.Background()

	// The user already registered the same provider token and follows the
	// same target; the guest's conflicting rows are discarded, not counted.
	require.NoError(t, tokens.CreateToken(ctx, &entity.DeviceToken{
		UUID:    uuid.New(),
		Owner:   entity.UserIdentity(42),
		Service: entity.PushServiceFCM,
		Token:   "shared-device",
	}))
	require.NoError(t, tokens.CreateToken(ctx, guestToken(entity.PushServiceFCM, "shared-device2", "guest-1")))
	require.NoError(t, subs.CreateSubscription(ctx, &entity.Subscription{
		Owner:  entity.UserIdentity(42),
		Target: entity.Target{ObjectType: "post", ObjectID: 12},
	}))
	require.NoError(t, subs.CreateSubscription(ctx, &entity.Subscription{
		Owner:  entity.GuestIdentity("guest-1"),
		Target: entity.Target{ObjectType: "post", ObjectID: 12},
	}))

	// Give the guest a conflicting token row too.
	tokens.tokens[1].Token = "shared-device"

	report, err := svc.MigrateGuest(ctx, "guest-1", 42)

	require.NoError(t, err)
	assert.Equal(t, int64(0), report.TokensMigrated)
	assert.Equal(t, int64(0), report.SubscriptionsMigrated)
	require.Len(t, tokens.tokens, 1)
	require.Len(t, subs.subs, 1)
	assert.True(t, tokens.tokens[0].Owner.Equal(entity.UserIdentity(42)))
	assert.True(t, subs.subs[0].Owner.Equal(entity.UserIdentity(42)))
}

func TestMigrationService_MigrateGuest_RollsBackOnFailure(t *testing.T) {
	tokens, subs, tx := newMigrationFixture()
	svc := NewMigrationService(tx)
	ctx := context.Background()

	require.NoError(t, tokens.CreateToken(ctx, guestToken(entity.PushServiceFCM, "device-a", "guest-1")))
	require.NoError(t, subs.CreateSubscription(ctx, &entity.Subscription{
		Owner:  entity.GuestIdentity("guest-1"),
		Target: entity.Target{ObjectType: "post", ObjectID: 12},
	}))
	subs.migrateErr = errors.New("deadlock detected")

	_, err := svc.MigrateGuest(ctx, "guest-1", 42)

	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrMigrationFailed)

	// The token reassignment that preceded the failure is undone.
	assert.True(t, tokens.tokens[0].Owner.Equal(entity.GuestIdentity("guest-1")))
	assert.True(t, subs.subs[0].Owner.Equal(entity.GuestIdentity("guest-1")))
}

func TestMigrationService_MigrateGuest_RerunIsHarmless(t *testing.T) {
	tokens, _, tx := newMigrationFixture()
	svc := NewMigrationService(tx)
	ctx := context.Background()

	require.NoError(t, tokens.CreateToken(ctx, guestToken(entity.PushServiceFCM, "device-a", "guest-1")))

	first, err := svc.MigrateGuest(ctx, "guest-1", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TokensMigrated)

	second, err := svc.MigrateGuest(ctx, "guest-1", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.TokensMigrated)
	assert.Equal(t, int64(0), second.SubscriptionsMigrated)
}

func TestMigrationService_PurgeGuest_RemovesAllGuestState(t *testing.T) {
	tokens, subs, tx := newMigrationFixture()
	svc := NewMigrationService(tx)
	ctx := context.Background()

	require.NoError(t, tokens.CreateToken(ctx, guestToken(entity.PushServiceFCM, "device-a", "guest-1")))
	require.NoError(t, tokens.CreateToken(ctx, guestToken(entity.PushServiceWeb, "device-b", "guest-1")))
	require.NoError(t, tokens.CreateToken(ctx, guestToken(entity.PushServiceFCM, "device-c", "guest-2")))
	require.NoError(t, subs.CreateSubscription(ctx, &entity.Subscription{
		Owner:  entity.GuestIdentity("guest-1"),
		Target: entity.Target{ObjectType: "post", ObjectID: 12},
	}))

	report, err := svc.PurgeGuest(ctx, "guest-1")

	require.NoError(t, err)
	assert.Equal(t, int64(2), report.TokensDeleted)
	assert.Equal(t, int64(1), report.SubscriptionsDeleted)

	// Another guest's state is untouched.
	require.Len(t, tokens.tokens, 1)
	assert.Equal(t, "device-c", tokens.tokens[0].Token)
	assert.Empty(t, subs.subs)
}

func TestMigrationService_PurgeGuest_EmptyGuestIsRejected(t *testing.T) {
	_, _, tx := newMigrationFixture()
	svc := NewMigrationService(tx)

	_, err := svc.PurgeGuest(context.Background(), "")
	assert.ErrorIs(t, err, domainerrors.ErrInvalidIdentity)
}

func TestMigrationService_MigrateGuest_RejectsInvalidArguments(t *testing.T) {
	_, _, tx := newMigrationFixture()
	svc := NewMigrationService(tx)
	ctx := context.Background()

	_, err := svc.MigrateGuest(ctx, "", 42)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidIdentity)

	_, err = svc.MigrateGuest(ctx, "guest-1", 0)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidIdentity)
}
