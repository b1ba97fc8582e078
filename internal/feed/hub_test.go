package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskpop/backend/internal/models"
)

type stubStore struct {
	mu      sync.Mutex
	tasks   []*models.Task
	wallets map[uuid.UUID]*models.Wallet
}

func (s *stubStore) List(context.Context) ([]*models.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (*models.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := *s.wallets[id]
	return &w, nil
}

func (s *stubStore) setTasks(tasks ...*models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = tasks
}

func (s *stubStore) setBalance(id uuid.UUID, pence int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[id] = &models.Wallet{UserID: id, BalancePence: pence}
}

func newStubStore() *stubStore {
	return &stubStore{wallets: make(map[uuid.UUID]*models.Wallet)}
}

// dropStale mimics the expiry sweep: open tasks older than a day vanish
// from every snapshot.
type dropStale struct{}

func (dropStale) Sweep(_ context.Context, tasks []*models.Task) []*models.Task {
	cutoff := time.Now().Add(-24 * time.Hour)
	live := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == models.TaskStatusOpen && !t.CreatedAt.After(cutoff) {
			continue
		}
		live = append(live, t)
	}
	return live
}

func feedTask(age time.Duration) *models.Task {
	return &models.Task{ID: uuid.New(), Status: models.TaskStatusOpen, CreatedAt: time.Now().Add(-age)}
}

func TestSubscribeTasksDeliversInitialSnapshot(t *testing.T) {
	store := newStubStore()
	store.setTasks(feedTask(time.Hour), feedTask(2*time.Hour))
	hub := NewHub(store, store, dropStale{}, nil)

	var got [][]*models.Task
	cancel, err := hub.SubscribeTasks(context.Background(), func(tasks []*models.Task) {
		got = append(got, tasks)
	})
	require.NoError(t, err)
	defer cancel()

	require.Len(t, got, 1, "subscriber gets the current snapshot immediately")
	require.Len(t, got[0], 2)
}

func TestTasksChangedFansOutToAllSubscribers(t *testing.T) {
	store := newStubStore()
	store.setTasks(feedTask(time.Hour))
	hub := NewHub(store, store, dropStale{}, nil)

	var mu sync.Mutex
	counts := make(map[int]int)
	for i := 0; i < 3; i++ {
		i := i
		cancel, err := hub.SubscribeTasks(context.Background(), func([]*models.Task) {
			mu.Lock()
			counts[i]++
			mu.Unlock()
		})
		require.NoError(t, err)
		defer cancel()
	}

	hub.TasksChanged(context.Background())

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < 3; i++ {
		require.Equal(t, 2, counts[i], "subscriber %d: initial snapshot plus one change", i)
	}
}

func TestSnapshotAppliesSweep(t *testing.T) {
	store := newStubStore()
	live := feedTask(time.Hour)
	stale := feedTask(30 * time.Hour)
	store.setTasks(live, stale)
	hub := NewHub(store, store, dropStale{}, nil)

	snapshot, err := hub.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshot, 1)
	require.Equal(t, live.ID, snapshot[0].ID)
}

func TestCancelStopsDelivery(t *testing.T) {
	store := newStubStore()
	store.setTasks(feedTask(time.Hour))
	hub := NewHub(store, store, dropStale{}, nil)

	var mu sync.Mutex
	calls := 0
	cancel, err := hub.SubscribeTasks(context.Background(), func([]*models.Task) {
		mu.Lock()
		calls++
		mu.Unlock()
	})
	require.NoError(t, err)

	cancel()
	cancel() // idempotent
	hub.TasksChanged(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, calls, "only the initial snapshot should have been delivered")
}

func TestCancelLeavesOtherSubscribersAlone(t *testing.T) {
	store := newStubStore()
	store.setTasks(feedTask(time.Hour))
	hub := NewHub(store, store, dropStale{}, nil)

	var mu sync.Mutex
	aCalls, bCalls := 0, 0
	cancelA, err := hub.SubscribeTasks(context.Background(), func([]*models.Task) {
		mu.Lock()
		aCalls++
		mu.Unlock()
	})
	require.NoError(t, err)
	cancelB, err := hub.SubscribeTasks(context.Background(), func([]*models.Task) {
		mu.Lock()
		bCalls++
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancelB()

	cancelA()
	hub.TasksChanged(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, aCalls)
	require.Equal(t, 2, bCalls)
}

func TestWalletSubscriptionsAreScopedToUser(t *testing.T) {
	store := newStubStore()
	alice := uuid.New()
	bob := uuid.New()
	store.setBalance(alice, 50000)
	store.setBalance(bob, 10000)
	hub := NewHub(store, store, dropStale{}, nil)

	var mu sync.Mutex
	var aliceSeen, bobSeen []int64
	cancelA, err := hub.SubscribeWallet(context.Background(), alice, func(w *models.Wallet) {
		mu.Lock()
		aliceSeen = append(aliceSeen, w.BalancePence)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancelA()
	cancelB, err := hub.SubscribeWallet(context.Background(), bob, func(w *models.Wallet) {
		mu.Lock()
		bobSeen = append(bobSeen, w.BalancePence)
		mu.Unlock()
	})
	require.NoError(t, err)
	defer cancelB()

	store.setBalance(alice, 30000)
	hub.WalletChanged(context.Background(), alice)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int64{50000, 30000}, aliceSeen)
	require.Equal(t, []int64{10000}, bobSeen, "bob must not see alice's wallet changes")
}
