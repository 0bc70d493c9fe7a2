package services

import (
	"context"
	"errors"

	pubnub "github.com/pubnub/go"

	"turn-dispatch/internal/status"
	"turn-dispatch/monitoring"
)

// DispatchService hands out the next ticket to serve and fans the
// result out to metrics and realtime subscribers.
type DispatchService struct {
	store  *TicketStore
	pubnub *pubnub.PubNub
}

func NewDispatchService(store *TicketStore, pn *pubnub.PubNub) *DispatchService {
	return &DispatchService{
		store:  store,
		pubnub: pn,
	}
}

func (s *DispatchService) DispatchNext(ctx context.Context) (*DispatchResult, error) {
	result, err := s.store.DispatchNext(ctx)
	if err != nil {
		if errors.Is(err, status.ErrNoneWaiting) {
			monitoring.TrackEmptyDispatch()
		}
		return nil, err
	}

	monitoring.TrackServed(result.Class.String())
	monitoring.SetQueueLengths(result.Remaining)
	s.notifyServing(result)

	return result, nil
}

func (s *DispatchService) notifyServing(result *DispatchResult) {
	if s.pubnub == nil {
		return
	}

	s.pubnub.Publish().
		Channel("now-serving").
		Message(map[string]any{
			"type":      "now_serving",
			"ticket_id": result.Ticket.ID,
			"name":      result.Ticket.Name,
			"class":     result.Class.String(),
			"remaining": result.Remaining.Total,
		}).
		Execute()
}
