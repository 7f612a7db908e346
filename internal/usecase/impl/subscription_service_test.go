package impl

import (
	"context"
	"testing"

	"beacon/internal/domain/entity"
	domainerrors "beacon/internal/domain/errors"
	"beacon/internal/domain/service"
	"beacon/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSubscriptionFixture() (*fakeSubscriptionRepo, *fakeContentSource, usecase.SubscriptionUsecase) {
	repo := &fakeSubscriptionRepo{}
	source := newFakeContentSource()
	source.addContent(&service.Content{Type: "post", ID: 12, Title: "A post"})

	return repo, source, NewSubscriptionService(repo, source)
}

func TestSubscriptionService_Subscribe_CreatesSubscription(t *testing.T) {
	repo, _, svc := newSubscriptionFixture()

	err := svc.Subscribe(context.Background(), entity.UserIdentity(1), entity.Target{ObjectType: "post", ObjectID: 12})

	require.NoError(t, err)
	require.Len(t, repo.subs, 1)
	assert.True(t, repo.subs[0].Owner.Equal(entity.UserIdentity(1)))
}

func TestSubscriptionService_Subscribe_TwiceIsIdempotent(t *testing.T) {
	repo, _, svc := newSubscriptionFixture()
	ctx := context.Background()
	target := entity.Target{ObjectType: "post", ObjectID: 12}

	require.NoError(t, svc.Subscribe(ctx, entity.GuestIdentity("guest-1"), target))
	require.NoError(t, svc.Subscribe(ctx, entity.GuestIdentity("guest-1"), target))

	assert.Len(t, repo.subs, 1)
}

func TestSubscriptionService_Subscribe_UnknownContentType(t *testing.T) {
	_, _, svc := newSubscriptionFixture()

	err := svc.Subscribe(context.Background(), entity.UserIdentity(1), entity.Target{ObjectType: "widget", ObjectID: 12})

	assert.ErrorIs(t, err, domainerrors.ErrUnknownContentType)
}

func TestSubscriptionService_Subscribe_MalformedTarget(t *testing.T) {
	_, _, svc := newSubscriptionFixture()

	err := svc.Subscribe(context.Background(), entity.UserIdentity(1), entity.Target{ObjectType: "post", ObjectID: 0})

	assert.ErrorIs(t, err, domainerrors.ErrUnknownContentType)
}

func TestSubscriptionService_Subscribe_AbsentContent(t *testing.T) {
	_, _, svc := newSubscriptionFixture()

	err := svc.Subscribe(context.Background(), entity.UserIdentity(1), entity.Target{ObjectType: "post", ObjectID: 999})

	assert.ErrorIs(t, err, domainerrors.ErrContentNotFound)
}

func TestSubscriptionService_Subscribe_PermissionDenied(t *testing.T) {
	_, source, svc := newSubscriptionFixture()
	source.addContent(&service.Content{Type: "post", ID: 13, Title: "Private"})
	source.denied["post/13"] = true

	err := svc.Subscribe(context.Background(), entity.UserIdentity(1), entity.Target{ObjectType: "post", ObjectID: 13})

	assert.ErrorIs(t, err, domainerrors.ErrPermissionDenied)
}

func TestSubscriptionService_Subscribe_RejectsInvalidIdentity(t *testing.T) {
	_, _, svc := newSubscriptionFixture()

	err := svc.Subscribe(context.Background(), entity.Identity{}, entity.Target{ObjectType: "post", ObjectID: 12})

	assert.ErrorIs(t, err, domainerrors.ErrInvalidIdentity)
}

func TestSubscriptionService_Unsubscribe_AbsentSubscriptionSucceeds(t *testing.T) {
	_, _, svc := newSubscriptionFixture()

	err := svc.Unsubscribe(context.Background(), entity.UserIdentity(1), entity.Target{ObjectType: "post", ObjectID: 12})

	assert.NoError(t, err)
}

func TestSubscriptionService_Unsubscribe_RemovesSubscription(t *testing.T) {
	repo, _, svc := newSubscriptionFixture()
	ctx := context.Background()
	target := entity.Target{ObjectType: "post", ObjectID: 12}

	require.NoError(t, svc.Subscribe(ctx, entity.UserIdentity(1), target))
	require.NoError(t, svc.Unsubscribe(ctx, entity.UserIdentity(1), target))

	assert.Empty(t, repo.subs)
}

func TestSubscriptionService_IsSubscribed(t *testing.T) {
	_, _, svc := newSubscriptionFixture()
	ctx := context.Background()
	target := entity.Target{ObjectType: "post", ObjectID: 12}

	subscribed, err := svc.IsSubscribed(ctx, entity.UserIdentity(1), target)
	require.NoError(t, err)
	assert.False(t, subscribed)

	require.NoError(t, svc.Subscribe(ctx, entity.UserIdentity(1), target))

	subscribed, err = svc.IsSubscribed(ctx, entity.UserIdentity(1), target)
	require.NoError(t, err)
	assert.True(t, subscribed)

	// Subscriptions are per principal, not per device.
	subscribed, err = svc.IsSubscribed(ctx, entity.UserIdentity(2), target)
	require.NoError(t, err)
	assert.False(t, subscribed)
}

func TestSubscriptionService_CountSubscribers_CountsTokensNotSubscriptions(t *testing.T) {
	repo, _, svc := newSubscriptionFixture()
	ctx := context.Background()
	target := entity.Target{ObjectType: "post", ObjectID: 12}

	tokens := &fakeTokenRepo{subs: repo}
	repo.tokens = tokens

	// One subscriber with two devices, one subscriber with none.
	require.NoError(t, svc.Subscribe(ctx, entity.UserIdentity(1), target))
	require.NoError(t, svc.Subscribe(ctx, entity.UserIdentity(2), target))
	require.NoError(t, tokens.CreateToken(ctx, &entity.DeviceToken{Owner: entity.UserIdentity(1), Service: entity.PushServiceFCM, Token: "a"}))
	require.NoError(t, tokens.CreateToken(ctx, &entity.DeviceToken{Owner: entity.UserIdentity(1), Service: entity.PushServiceAPNS, Token: "b"}))

	count, err := svc.CountSubscribers(ctx, []entity.Target{target})

	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
