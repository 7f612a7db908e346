package impl

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"beacon/internal/domain/entity"
	"beacon/internal/domain/repository"
	"beacon/internal/domain/service"

	"github.com/google/uuid"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// In-memory repository fakes shared by the service tests. They mirror the
// store semantics the services rely on: unique-constraint sentinels,
// atomic-claim bookkeeping and user-wins migration conflicts.

type fakeTokenRepo struct {
	mu     sync.Mutex
	nextID int64
	tokens []*entity.DeviceToken

	// Subscriptions joined against when resolving recipients; nil means no
	// subscription store is attached and every lookup resolves to nothing.
	subs *fakeSubscriptionRepo

	createErr  error
	findErr    error
	resolveErr error
	migrateErr error

	// findHook, when set, runs before each lookup and its error wins. Lets
	// a test fake the find-miss half of an insert race.
	findHook func() error

	touched [][]int64
}

func (f *fakeTokenRepo) CreateToken(_ context.Context, token *entity.DeviceToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.tokens {
		if existing.Service == token.Service && existing.Token == token.Token {
			return repository.ErrDuplicateToken
		}
	}

	f.nextID++
	now := time.Now()
	stored := *token
	stored.ID = f.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	f.tokens = append(f.tokens, &stored)

	token.ID = stored.ID
	token.CreatedAt = stored.CreatedAt
	token.UpdatedAt = stored.UpdatedAt

	return nil
}

func (f *fakeTokenRepo) FindTokenByProviderToken(_ context.Context, svc entity.PushService, token string) (*entity.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findHook != nil {
		if err := f.findHook(); err != nil {
			return nil, err
		}
	}
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, existing := range f.tokens {
		if existing.Service == svc && existing.Token == token {
			found := *existing

			return &found, nil
		}
	}

	return nil, repository.ErrTokenNotFound
}

func (f *fakeTokenRepo) RebindToken(_ context.Context, id int64, owner entity.Identity, lastActiveAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.tokens {
		if existing.ID == id {
			existing.Owner = owner
			existing.LastActiveAt = lastActiveAt

			return nil
		}
	}

	return repository.ErrTokenNotFound
}

func (f *fakeTokenRepo) CountTokensByUser(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	owner := entity.UserIdentity(userID)
	var count int64
	for _, existing := range f.tokens {
		if existing.Owner.Equal(owner) {
			count++
		}
	}

	return count, nil
}

func (f *fakeTokenRepo) DeleteOldestTokenByUser(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	owner := entity.UserIdentity(userID)
	oldest := -1
	for i, existing := range f.tokens {
		if !existing.Owner.Equal(owner) {
			continue
		}
		if oldest < 0 || existing.ID < f.tokens[oldest].ID {
			oldest = i
		}
	}
	if oldest >= 0 {
		f.tokens = append(f.tokens[:oldest], f.tokens[oldest+1:]...)
	}

	return nil
}

func (f *fakeTokenRepo) DeleteTokenByUUID(_ context.Context, id uuid.UUID, owner entity.Identity) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.tokens {
		if existing.UUID == id && existing.Owner.Equal(owner) {
			f.tokens = append(f.tokens[:i], f.tokens[i+1:]...)

			return true, nil
		}
	}

	return false, nil
}

func (f *fakeTokenRepo) DeleteTokensByGuest(_ context.Context, guestID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	owner := entity.GuestIdentity(guestID)
	var removed int64
	kept := f.tokens[:0]
	for _, existing := range f.tokens {
		if existing.Owner.Equal(owner) {
			removed++

			continue
		}
		kept = append(kept, existing)
	}
	f.tokens = kept

	return removed, nil
}

func (f *fakeTokenRepo) DeleteTokensByValue(_ context.Context, tokens []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dead := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		dead[token] = struct{}{}
	}

	var removed int64
	kept := f.tokens[:0]
	for _, existing := range f.tokens {
		if _, ok := dead[existing.Token]; ok {
			removed++

			continue
		}
		kept = append(kept, existing)
	}
	f.tokens = kept

	return removed, nil
}

func (f *fakeTokenRepo) TouchTokens(_ context.Context, ids []int64, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.touched = append(f.touched, ids)
	wanted := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	for _, existing := range f.tokens {
		if _, ok := wanted[existing.ID]; ok {
			existing.LastActiveAt = at
		}
	}

	return nil
}

func (f *fakeTokenRepo) FindTokensForTargets(_ context.Context, targets []entity.Target, exclude *entity.Identity) ([]*entity.DeviceToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.resolveErr != nil {
		return nil, f.resolveErr
	}
	if f.subs == nil {
		return nil, nil
	}

	var matched []*entity.DeviceToken
	for _, existing := range f.tokens {
		if exclude != nil && existing.Owner.Equal(*exclude) {
			continue
		}
		if f.subs.ownerFollowsAny(existing.Owner, targets) {
			found := *existing
			matched = append(matched, &found)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return matched, nil
}

func (f *fakeTokenRepo) MigrateGuestTokens(_ context.Context, guestID string, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.migrateErr != nil {
		return 0, f.migrateErr
	}

	guest := entity.GuestIdentity(guestID)
	user := entity.UserIdentity(userID)

	userHolds := make(map[string]struct{})
	for _, existing := range f.tokens {
		if existing.Owner.Equal(user) {
			userHolds[existing.Service.String()+"\x00"+existing.Token] = struct{}{}
		}
	}

	var reassigned int64
	kept := f.tokens[:0]
	for _, existing := range f.tokens {
		if !existing.Owner.Equal(guest) {
			kept = append(kept, existing)

			continue
		}
		if _, conflict := userHolds[existing.Service.String()+"\x00"+existing.Token]; conflict {
			continue
		}
		existing.Owner = user
		reassigned++
		kept = append(kept, existing)
	}
	f.tokens = kept

	return reassigned, nil
}

func (f *fakeTokenRepo) snapshot() []*entity.DeviceToken {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make([]*entity.DeviceToken, 0, len(f.tokens))
	for _, existing := range f.tokens {
		dup := *existing
		copied = append(copied, &dup)
	}

	return copied
}

func (f *fakeTokenRepo) restore(snapshot []*entity.DeviceToken) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.tokens = snapshot
}

type fakeSubscriptionRepo struct {
	mu     sync.Mutex
	nextID int64
	subs   []*entity.Subscription

	// Token store joined against when counting reachable devices.
	tokens *fakeTokenRepo

	createErr  error
	migrateErr error
}

func (f *fakeSubscriptionRepo) CreateSubscription(_ context.Context, subscription *entity.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.subs {
		if existing.Owner.Equal(subscription.Owner) && existing.Target == subscription.Target {
			return repository.ErrDuplicateSubscription
		}
	}

	f.nextID++
	stored := *subscription
	stored.ID = f.nextID
	stored.CreatedAt = time.Now()
	f.subs = append(f.subs, &stored)

	subscription.ID = stored.ID
	subscription.CreatedAt = stored.CreatedAt

	return nil
}

func (f *fakeSubscriptionRepo) DeleteSubscription(_ context.Context, owner entity.Identity, target entity.Target) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, existing := range f.subs {
		if existing.Owner.Equal(owner) && existing.Target == target {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)

			return true, nil
		}
	}

	return false, nil
}

func (f *fakeSubscriptionRepo) HasSubscription(_ context.Context, owner entity.Identity, target entity.Target) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.subs {
		if existing.Owner.Equal(owner) && existing.Target == target {
			return true, nil
		}
	}

	return false, nil
}

func (f *fakeSubscriptionRepo) CountSubscriberTokens(ctx context.Context, targets []entity.Target) (int64, error) {
	if f.tokens == nil {
		return 0, nil
	}

	matched, err := f.tokens.FindTokensForTargets(ctx, targets, nil)
	if err != nil {
		return 0, err
	}

	return int64(len(matched)), nil
}

func (f *fakeSubscriptionRepo) DeleteSubscriptionsByGuest(_ context.Context, guestID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	owner := entity.GuestIdentity(guestID)
	var removed int64
	kept := f.subs[:0]
	for _, existing := range f.subs {
		if existing.Owner.Equal(owner) {
			removed++

			continue
		}
		kept = append(kept, existing)
	}
	f.subs = kept

	return removed, nil
}

func (f *fakeSubscriptionRepo) MigrateGuestSubscriptions(_ context.Context, guestID string, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.migrateErr != nil {
		return 0, f.migrateErr
	}

	guest := entity.GuestIdentity(guestID)
	user := entity.UserIdentity(userID)

	userHolds := make(map[entity.Target]struct{})
	for _, existing := range f.subs {
		if existing.Owner.Equal(user) {
			userHolds[existing.Target] = struct{}{}
		}
	}

	var reassigned int64
	kept := f.subs[:0]
	for _, existing := range f.subs {
		if !existing.Owner.Equal(guest) {
			kept = append(kept, existing)

			continue
		}
		if _, conflict := userHolds[existing.Target]; conflict {
			continue
		}
		existing.Owner = user
		reassigned++
		kept = append(kept, existing)
	}
	f.subs = kept

	return reassigned, nil
}

func (f *fakeSubscriptionRepo) ownerFollowsAny(owner entity.Identity, targets []entity.Target) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.subs {
		if !existing.Owner.Equal(owner) {
			continue
		}
		for _, target := range targets {
			if existing.Target == target {
				return true
			}
		}
	}

	return false
}

func (f *fakeSubscriptionRepo) snapshot() []*entity.Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()

	copied := make([]*entity.Subscription, 0, len(f.subs))
	for _, existing := range f.subs {
		dup := *existing
		copied = append(copied, &dup)
	}

	return copied
}

func (f *fakeSubscriptionRepo) restore(snapshot []*entity.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subs = snapshot
}

type fakeQueueRepo struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]*entity.QueueEntry

	enqueueErr  error
	claimErr    error
	completeErr error

	completed []int64
}

func newFakeQueueRepo() *fakeQueueRepo {
	return &fakeQueueRepo{entries: make(map[int64]*entity.QueueEntry)}
}

func (f *fakeQueueRepo) Enqueue(_ context.Context, payload json.RawMessage) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.enqueueErr != nil {
		return 0, f.enqueueErr
	}

	f.nextID++
	f.entries[f.nextID] = &entity.QueueEntry{
		ID:        f.nextID,
		Payload:   payload,
		Status:    entity.QueueStatusPending,
		CreatedAt: time.Now(),
	}

	return f.nextID, nil
}

func (f *fakeQueueRepo) ClaimBatch(_ context.Context, limit int) ([]*entity.QueueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.claimErr != nil {
		return nil, f.claimErr
	}

	var ids []int64
	for id, entry := range f.entries {
		if entry.Status == entity.QueueStatusPending {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	if limit >= 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	now := time.Now()
	claimed := make([]*entity.QueueEntry, 0, len(ids))
	for _, id := range ids {
		entry := f.entries[id]
		entry.Status = entity.QueueStatusClaimed
		claimedAt := now
		entry.ClaimedAt = &claimedAt
		entry.Attempts++

		row := *entry
		claimed = append(claimed, &row)
	}

	return claimed, nil
}

func (f *fakeQueueRepo) Complete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.completeErr != nil {
		return f.completeErr
	}

	f.completed = append(f.completed, id)
	delete(f.entries, id)

	return nil
}

func (f *fakeQueueRepo) ReclaimStale(_ context.Context, olderThan time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var reclaimed int64
	for _, entry := range f.entries {
		if entry.Status == entity.QueueStatusClaimed && entry.ClaimedAt != nil && entry.ClaimedAt.Before(cutoff) {
			entry.Status = entity.QueueStatusPending
			entry.ClaimedAt = nil
			reclaimed++
		}
	}

	return reclaimed, nil
}

func (f *fakeQueueRepo) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int
	for _, entry := range f.entries {
		if entry.Status == entity.QueueStatusPending {
			count++
		}
	}

	return count
}

// fakeTxManager runs the callback against the shared fakes and restores
// their pre-call state on error, mimicking a rollback.
type fakeTxManager struct {
	tokens *fakeTokenRepo
	subs   *fakeSubscriptionRepo
}

func (m *fakeTxManager) Execute(_ context.Context, fn func(txRepoFactory repository.RepositoryFactory) error) error {
	tokenSnapshot := m.tokens.snapshot()
	subSnapshot := m.subs.snapshot()

	if err := fn(m); err != nil {
		m.tokens.restore(tokenSnapshot)
		m.subs.restore(subSnapshot)

		return err
	}

	return nil
}

func (m *fakeTxManager) NewTokenRepository() repository.TokenRepository {
	return m.tokens
}

func (m *fakeTxManager) NewSubscriptionRepository() repository.SubscriptionRepository {
	return m.subs
}

type fakeContentSource struct {
	types    map[string]string
	contents map[string]*service.Content
	denied   map[string]bool

	typesErr   error
	contentErr error
	permErr    error
}

func newFakeContentSource() *fakeContentSource {
	return &fakeContentSource{
		types:    map[string]string{"post": "Post", "comment": "Comment"},
		contents: make(map[string]*service.Content),
		denied:   make(map[string]bool),
	}
}

func (f *fakeContentSource) EntityTypes(_ context.Context) (map[string]string, error) {
	if f.typesErr != nil {
		return nil, f.typesErr
	}

	return f.types, nil
}

func (f *fakeContentSource) Content(_ context.Context, typeTag string, id int64) (*service.Content, error) {
	if f.contentErr != nil {
		return nil, f.contentErr
	}

	return f.contents[f.key(typeTag, id)], nil
}

func (f *fakeContentSource) CurrentUserCan(_ context.Context, _, typeTag string, id int64) (bool, error) {
	if f.permErr != nil {
		return false, f.permErr
	}

	return !f.denied[f.key(typeTag, id)], nil
}

func (f *fakeContentSource) key(typeTag string, id int64) string {
	return typeTag + "/" + strconv.FormatInt(id, 10)
}

func (f *fakeContentSource) addContent(content *service.Content) {
	f.contents[f.key(content.Type, content.ID)] = content
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*service.QueueEvent

	publishErr error
}

func (f *fakePublisher) PublishQueueEvent(_ context.Context, event *service.QueueEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.publishErr != nil {
		return f.publishErr
	}
	f.events = append(f.events, event)

	return nil
}

func (f *fakePublisher) Close() error {
	return nil
}

type sendCall struct {
	addrs []service.PushAddress
	msg   entity.PushMessage
	data  map[string]string
}

type fakeSender struct {
	mu    sync.Mutex
	calls []sendCall

	result *service.SendResult
	err    error
}

func (f *fakeSender) Send(_ context.Context, addrs []service.PushAddress, msg entity.PushMessage, data map[string]string) (*service.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, sendCall{addrs: addrs, msg: msg, data: data})
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}

	return &service.SendResult{Sent: len(addrs)}, nil
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.calls)
}
