package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turn-dispatch/internal/status"
	"turn-dispatch/models"
)

// memorySnapshotter round-trips the state through JSON on every save,
// so it also exercises the serialization contract.
type memorySnapshotter struct {
	mu      sync.Mutex
	data    []byte
	saveErr error
	saves   int
}

func (m *memorySnapshotter) Load(_ context.Context) (*models.QueueState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}
	var state models.QueueState
	if err := json.Unmarshal(m.data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (m *memorySnapshotter) Save(_ context.Context, state *models.QueueState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	m.data = data
	m.saves++
	return nil
}

func enqueue(t *testing.T, store *TicketStore, name string, age int, class models.Class) *models.Ticket {
	t.Helper()
	ticket, _, err := store.Enqueue(context.Background(), TicketInput{Name: name, Age: age, Class: class})
	require.NoError(t, err)
	return ticket
}

func TestTicketStore_Enqueue_MonotonicIDs(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})

	var lastID int64
	for i := 0; i < 50; i++ {
		ticket := enqueue(t, store, "back-to-back", 30, models.ClassGeneral)
		assert.Greater(t, ticket.ID, lastID)
		lastID = ticket.ID
	}
}

func TestTicketStore_Enqueue_PositionInClass(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})
	ctx := context.Background()

	_, position, err := store.Enqueue(ctx, TicketInput{Name: "Ana", Age: 70, Class: models.ClassVIP})
	require.NoError(t, err)
	assert.Equal(t, 1, position)

	_, position, err = store.Enqueue(ctx, TicketInput{Name: "Eva", Age: 71, Class: models.ClassVIP})
	require.NoError(t, err)
	assert.Equal(t, 2, position)

	// Other classes keep their own positions.
	_, position, err = store.Enqueue(ctx, TicketInput{Name: "Luis", Age: 30, Class: models.ClassGeneral})
	require.NoError(t, err)
	assert.Equal(t, 1, position)
}

func TestTicketStore_Enqueue_PersistsEveryMutation(t *testing.T) {
	snap := &memorySnapshotter{}
	store := NewTicketStore(context.Background(), snap)

	enqueue(t, store, "a", 30, models.ClassGeneral)
	enqueue(t, store, "b", 30, models.ClassGeneral)
	assert.Equal(t, 2, snap.saves)

	_, err := store.DispatchNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, snap.saves)
}

func TestTicketStore_DispatchNext_PrecedenceOrder(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})
	ctx := context.Background()

	gen := enqueue(t, store, "gen", 30, models.ClassGeneral)
	vip1 := enqueue(t, store, "vip1", 70, models.ClassVIP)
	prio := enqueue(t, store, "prio", 65, models.ClassPriority)
	vip2 := enqueue(t, store, "vip2", 71, models.ClassVIP)

	expected := []struct {
		id    int64
		class models.Class
	}{
		{vip1.ID, models.ClassVIP},
		{vip2.ID, models.ClassVIP},
		{prio.ID, models.ClassPriority},
		{gen.ID, models.ClassGeneral},
	}

	for _, want := range expected {
		result, err := store.DispatchNext(ctx)
		require.NoError(t, err)
		assert.Equal(t, want.id, result.Ticket.ID)
		assert.Equal(t, want.class, result.Class)
		assert.True(t, result.Ticket.Served)
	}

	_, err := store.DispatchNext(ctx)
	assert.ErrorIs(t, err, status.ErrNoneWaiting)
}

func TestTicketStore_DispatchNext_Empty(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})

	result, err := store.DispatchNext(context.Background())
	assert.Nil(t, result)
	assert.ErrorIs(t, err, status.ErrNoneWaiting)
}

func TestTicketStore_DispatchNext_RemainingCounts(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})

	enqueue(t, store, "vip", 70, models.ClassVIP)
	enqueue(t, store, "prio", 65, models.ClassPriority)
	enqueue(t, store, "gen", 30, models.ClassGeneral)

	result, err := store.DispatchNext(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Counts{VIP: 0, Priority: 1, General: 1, Total: 2}, result.Remaining)
}

func TestTicketStore_Enqueue_PersistenceFailure(t *testing.T) {
	snap := &memorySnapshotter{saveErr: errors.New("disk full")}
	store := NewTicketStore(context.Background(), snap)

	_, _, err := store.Enqueue(context.Background(), TicketInput{Name: "Ana", Age: 30, Class: models.ClassGeneral})
	assert.ErrorIs(t, err, status.ErrPersistence)

	// The uncommitted ticket left no trace.
	assert.Equal(t, 0, store.Counts().Total)
}

func TestTicketStore_DispatchNext_PersistenceFailure(t *testing.T) {
	snap := &memorySnapshotter{}
	store := NewTicketStore(context.Background(), snap)
	ctx := context.Background()

	ticket := enqueue(t, store, "Ana", 30, models.ClassGeneral)

	snap.saveErr = errors.New("disk full")
	_, err := store.DispatchNext(ctx)
	assert.ErrorIs(t, err, status.ErrPersistence)

	// The ticket is still waiting at the head, unserved.
	found, err := store.FindByID(ticket.ID)
	require.NoError(t, err)
	assert.False(t, found.Served)

	snap.saveErr = nil
	result, err := store.DispatchNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, result.Ticket.ID)
}

func TestTicketStore_RestartRestoresState(t *testing.T) {
	snap := &memorySnapshotter{}
	ctx := context.Background()

	store := NewTicketStore(ctx, snap)
	vip := enqueue(t, store, "vip", 70, models.ClassVIP)
	gen1 := enqueue(t, store, "gen1", 30, models.ClassGeneral)
	gen2 := enqueue(t, store, "gen2", 31, models.ClassGeneral)

	restarted := NewTicketStore(ctx, snap)
	counts := restarted.Counts()
	assert.Equal(t, 1, counts.VIP)
	assert.Equal(t, 2, counts.General)

	// FIFO order within a class survives the restart.
	first, err := restarted.DispatchNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, vip.ID, first.Ticket.ID)

	second, err := restarted.DispatchNext(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen1.ID, second.Ticket.ID)

	// New ids keep increasing past the restored ones.
	fresh := enqueue(t, restarted, "fresh", 30, models.ClassGeneral)
	assert.Greater(t, fresh.ID, gen2.ID)
}

func TestTicketStore_CorruptSnapshotStartsEmpty(t *testing.T) {
	snap := &memorySnapshotter{data: []byte("{not json")}

	store := NewTicketStore(context.Background(), snap)
	assert.Equal(t, 0, store.Counts().Total)
}

func TestTicketStore_FindByID(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})
	ctx := context.Background()

	ticket := enqueue(t, store, "Ana", 30, models.ClassGeneral)

	found, err := store.FindByID(ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, found.ID)

	_, err = store.FindByID(ticket.ID + 999)
	assert.ErrorIs(t, err, status.ErrTicketNotFound)

	// Served tickets leave the queues and are no longer findable.
	_, err = store.DispatchNext(ctx)
	require.NoError(t, err)

	_, err = store.FindByID(ticket.ID)
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
}

func TestTicketStore_Status_PreviewLimit(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})

	var ids []int64
	for i := 0; i < 8; i++ {
		ids = append(ids, enqueue(t, store, "gen", 30, models.ClassGeneral).ID)
	}

	counts, upcoming := store.Status(5)
	assert.Equal(t, 8, counts.General)
	require.Len(t, upcoming.General, 5)
	for i, ticket := range upcoming.General {
		assert.Equal(t, ids[i], ticket.ID)
	}
	assert.Empty(t, upcoming.VIP)
	assert.Empty(t, upcoming.Priority)

	// Previewing removes nothing.
	assert.Equal(t, 8, store.Counts().General)
}

func TestTicketStore_ReadViews_DetachedFromDispatch(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})
	ctx := context.Background()

	issued := enqueue(t, store, "Ana", 30, models.ClassGeneral)

	_, upcoming := store.Status(5)
	require.Len(t, upcoming.General, 1)
	previewed := upcoming.General[0]

	found, err := store.FindByID(issued.ID)
	require.NoError(t, err)

	// Reading a previously handed-out view must stay safe while a
	// dispatch mutates the store.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = previewed.Served
			_ = found.Name
		}
	}()

	result, err := store.DispatchNext(ctx)
	require.NoError(t, err)
	<-done

	assert.True(t, result.Ticket.Served)

	// Views are value copies: the dispatch did not reach into them.
	assert.False(t, issued.Served)
	assert.False(t, previewed.Served)
	assert.False(t, found.Served)
}

func TestTicketStore_Details_Copies(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})

	ticket := enqueue(t, store, "Ana", 70, models.ClassVIP)

	details := store.Details()
	require.Len(t, details.VIP, 1)
	details.VIP[0].Served = true
	details.VIP[0].Name = "changed"

	found, err := store.FindByID(ticket.ID)
	require.NoError(t, err)
	assert.False(t, found.Served)
	assert.Equal(t, "Ana", found.Name)
}

func TestTicketStore_ConcurrentEnqueues_UniqueIDs(t *testing.T) {
	store := NewTicketStore(context.Background(), &memorySnapshotter{})

	const workers = 16
	const perWorker = 25

	var mu sync.Mutex
	seen := make(map[int64]bool)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ticket, _, err := store.Enqueue(context.Background(), TicketInput{Name: "c", Age: 30, Class: models.ClassGeneral})
				assert.NoError(t, err)

				mu.Lock()
				assert.False(t, seen[ticket.ID])
				seen[ticket.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
	assert.Equal(t, workers*perWorker, store.Counts().General)
}
