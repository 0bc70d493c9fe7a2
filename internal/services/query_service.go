package services

import (
	"turn-dispatch/models"
)

// QueueStatus is the read-only view handed to status callers.
type QueueStatus struct {
	Counts   models.Counts   `json:"counts"`
	Upcoming models.Upcoming `json:"upcoming"`
}

// QueryService exposes read-only views over the store. Nothing here
// mutates or persists.
type QueryService struct {
	store        *TicketStore
	previewLimit int
}

func NewQueryService(store *TicketStore, previewLimit int) *QueryService {
	if previewLimit <= 0 {
		previewLimit = 5
	}
	return &QueryService{
		store:        store,
		previewLimit: previewLimit,
	}
}

func (s *QueryService) Status() QueueStatus {
	counts, upcoming := s.store.Status(s.previewLimit)
	return QueueStatus{Counts: counts, Upcoming: upcoming}
}

func (s *QueryService) Lookup(id int64) (*models.Ticket, error) {
	return s.store.FindByID(id)
}

func (s *QueryService) Details() *models.QueueState {
	return s.store.Details()
}
