package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"turn-dispatch/internal/snapshot"
	"turn-dispatch/internal/status"
	"turn-dispatch/models"
	"turn-dispatch/monitoring"
)

// TicketStore owns the three class queues and the durable snapshot.
// Every mutation runs under one lock and is persisted before it is
// visible to the caller; a failed save rolls the mutation back and
// surfaces status.ErrPersistence. Every ticket handed out is a value
// copy: the store's own records never escape the lock.
type TicketStore struct {
	mu     sync.RWMutex
	state  *models.QueueState
	lastID int64
	snap   snapshot.Snapshotter
}

// NewTicketStore loads the last snapshot. A missing or unreadable
// snapshot is a first run: the store starts with three empty queues.
func NewTicketStore(ctx context.Context, snap snapshot.Snapshotter) *TicketStore {
	state, err := snap.Load(ctx)
	if err != nil {
		slog.Warn("snapshot unreadable, starting with empty queues", "error", err)
		state = nil
	}
	if state == nil {
		state = models.NewQueueState()
	} else {
		slog.Info("queue state restored", "total", state.Total())
	}

	return &TicketStore{
		state:  state,
		lastID: state.MaxID(),
		snap:   snap,
	}
}

// nextID allocates a strictly increasing id. Ids derive from wall-clock
// milliseconds, clamped to lastID+1 so back-to-back enqueues inside one
// millisecond stay unique. Callers must hold mu.
func (s *TicketStore) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *TicketStore) persist(ctx context.Context) error {
	start := time.Now()
	err := s.snap.Save(ctx, s.state)
	monitoring.ObserveSnapshotSave(time.Since(start))
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrPersistence, err)
	}
	return nil
}

// Enqueue appends a validated ticket to the tail of its class queue and
// persists the new state. The returned position is 1-based within the
// class at the moment of insertion.
func (s *TicketStore) Enqueue(ctx context.Context, input TicketInput) (*models.Ticket, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	ticket := &models.Ticket{
		ID:        s.nextID(now),
		Name:      input.Name,
		Age:       input.Age,
		Class:     input.Class,
		CreatedAt: now,
		Served:    false,
	}

	position := s.state.Push(input.Class, ticket)
	if err := s.persist(ctx); err != nil {
		s.state.CutTail(input.Class)
		return nil, 0, err
	}
	return ticket.Clone(), position, nil
}

// DispatchResult is a successful dispatch: the served ticket, the class
// it came from and the per-class counts remaining after removal.
type DispatchResult struct {
	Ticket    *models.Ticket `json:"ticket"`
	Class     models.Class   `json:"class_served"`
	Remaining models.Counts  `json:"remaining"`
}

// DispatchNext pops the head of the first non-empty queue in precedence
// order, marks it served and persists. Empty queues across the board
// return status.ErrNoneWaiting.
func (s *TicketStore) DispatchNext(ctx context.Context) (*DispatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range models.DispatchOrder {
		ticket := s.state.Pop(c)
		if ticket == nil {
			continue
		}

		ticket.Served = true
		if err := s.persist(ctx); err != nil {
			ticket.Served = false
			s.state.PushHead(c, ticket)
			return nil, err
		}

		return &DispatchResult{
			Ticket:    ticket.Clone(),
			Class:     c,
			Remaining: s.state.Counts(),
		}, nil
	}

	return nil, status.ErrNoneWaiting
}

// Counts reports the current queue lengths.
func (s *TicketStore) Counts() models.Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Counts()
}

// Status reads counts and the head-first previews in one consistent
// snapshot of the state.
func (s *TicketStore) Status(previewLimit int) (models.Counts, models.Upcoming) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Counts(), models.Upcoming{
		VIP:      preview(s.state.VIP, previewLimit),
		Priority: preview(s.state.Priority, previewLimit),
		General:  preview(s.state.General, previewLimit),
	}
}

func preview(q []*models.Ticket, limit int) []*models.Ticket {
	if limit < 0 {
		limit = 0
	}
	if limit > len(q) {
		limit = len(q)
	}
	return cloneQueue(q[:limit])
}

func cloneQueue(q []*models.Ticket) []*models.Ticket {
	out := make([]*models.Ticket, len(q))
	for i, t := range q {
		out[i] = t.Clone()
	}
	return out
}

// FindByID scans all three queues for a waiting ticket. Served tickets
// leave the queues at dispatch and are no longer findable.
func (s *TicketStore) FindByID(id int64) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range models.DispatchOrder {
		for _, t := range s.state.Queue(c) {
			if t.ID == id {
				return t.Clone(), nil
			}
		}
	}
	return nil, status.ErrTicketNotFound
}

// Details returns a deep copy of the full queue state.
func (s *TicketStore) Details() *models.QueueState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &models.QueueState{
		VIP:      cloneQueue(s.state.VIP),
		Priority: cloneQueue(s.state.Priority),
		General:  cloneQueue(s.state.General),
	}
}

// Snapshot forces a save of the current state.
func (s *TicketStore) Snapshot(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx)
}
