package services

import (
	"context"

	pubnub "github.com/pubnub/go"

	"turn-dispatch/models"
	"turn-dispatch/monitoring"
)

// TurnService is the facade the transport layer calls. Submits flow
// through the validator into the store; dispatch and queries delegate
// to their services.
type TurnService struct {
	validator *Validator
	store     *TicketStore
	dispatch  *DispatchService
	query     *QueryService
	pubnub    *pubnub.PubNub
}

func NewTurnService(validator *Validator, store *TicketStore, dispatch *DispatchService, query *QueryService, pn *pubnub.PubNub) *TurnService {
	return &TurnService{
		validator: validator,
		store:     store,
		dispatch:  dispatch,
		query:     query,
		pubnub:    pn,
	}
}

// SubmitResult is a successful admission: the issued ticket and its
// 1-based position within its class queue.
type SubmitResult struct {
	Ticket          *models.Ticket `json:"ticket"`
	PositionInClass int            `json:"position_in_class"`
}

func (s *TurnService) SubmitTicket(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	input, verr := s.validator.Validate(req)
	if verr != nil {
		monitoring.TrackRejection(verr.Code)
		return nil, verr
	}

	ticket, position, err := s.store.Enqueue(ctx, input)
	if err != nil {
		return nil, err
	}

	monitoring.TrackIssued(input.Class.String())
	monitoring.SetQueueLengths(s.store.Counts())
	s.notifyIssued(ticket, position)

	return &SubmitResult{Ticket: ticket, PositionInClass: position}, nil
}

func (s *TurnService) DispatchNext(ctx context.Context) (*DispatchResult, error) {
	return s.dispatch.DispatchNext(ctx)
}

func (s *TurnService) QueueStatus() QueueStatus {
	return s.query.Status()
}

func (s *TurnService) LookupTicket(id int64) (*models.Ticket, error) {
	return s.query.Lookup(id)
}

func (s *TurnService) QueueDetails() *models.QueueState {
	return s.query.Details()
}

func (s *TurnService) ForceSnapshot(ctx context.Context) error {
	return s.store.Snapshot(ctx)
}

func (s *TurnService) notifyIssued(ticket *models.Ticket, position int) {
	if s.pubnub == nil {
		return
	}

	s.pubnub.Publish().
		Channel("queue-updates").
		Message(map[string]any{
			"type":      "ticket_issued",
			"ticket_id": ticket.ID,
			"class":     ticket.Class.String(),
			"position":  position,
		}).
		Execute()
}
