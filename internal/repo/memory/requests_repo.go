package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/domain/request"
	"github.com/afisha-dev/afisha/internal/domain/user"
)

// RequestsRepo keeps requests and the events ledger consistent under one
// mutex, mirroring what the postgres repo does with row locks.
type RequestsRepo struct {
	mu     sync.Mutex
	items  map[string]request.ParticipationRequest
	events *EventsRepo
	users  map[string]bool
}

func NewRequestsRepo(events *EventsRepo) *RequestsRepo {
	return &RequestsRepo{
		items:  make(map[string]request.ParticipationRequest),
		events: events,
		users:  make(map[string]bool),
	}
}

// AddUser registers a known requester id for existence checks.
func (r *RequestsRepo) AddUser(id string) {
	r.mu.Lock()
	r.users[id] = true
	r.mu.Unlock()
}

func (r *RequestsRepo) Create(ctx context.Context, requesterID, eventID string) (request.ParticipationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.users[requesterID] {
		return request.ParticipationRequest{}, user.ErrNotFound
	}

	e, err := r.events.GetByID(ctx, eventID)
	if err != nil {
		return request.ParticipationRequest{}, err
	}

	if e.State != event.StatePublished {
		return request.ParticipationRequest{}, request.ErrEventNotPublished
	}

	if e.InitiatorID == requesterID {
		return request.ParticipationRequest{}, request.ErrOwnEvent
	}

	for _, existing := range r.items {
		if existing.RequesterID == requesterID && existing.EventID == eventID &&
			existing.Status != request.StatusCanceled {
			return request.ParticipationRequest{}, request.ErrDuplicate
		}
	}

	if !e.HasCapacity() {
		return request.ParticipationRequest{}, request.ErrLimitReached
	}

	status := request.InitialStatus(e)
	req := request.New(requesterID, eventID, status)

	if status == request.StatusConfirmed {
		e.Reserve()
		if _, err := r.events.Save(ctx, e); err != nil {
			return request.ParticipationRequest{}, err
		}
	}

	r.items[req.ID] = req

	return req, nil
}

func (r *RequestsRepo) UpdateStatuses(ctx context.Context, initiatorID, eventID string, upd request.StatusUpdateRequest) (request.StatusUpdateResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.events.GetByID(ctx, eventID)
	if err != nil {
		return request.StatusUpdateResult{}, err
	}

	if e.InitiatorID != initiatorID {
		return request.StatusUpdateResult{}, request.ErrNotInitiator
	}

	if !e.RequestModeration {
		return request.StatusUpdateResult{}, request.ErrModerationDisabled
	}

	result := request.StatusUpdateResult{
		ConfirmedRequests: []request.ParticipationRequest{},
		RejectedRequests:  []request.ParticipationRequest{},
	}

	// staged writes; committed only if every id goes through
	staged := make(map[string]request.ParticipationRequest, len(upd.RequestIDs))

	for _, id := range upd.RequestIDs {
		req, ok := r.items[id]
		if !ok || req.EventID != eventID {
			return request.StatusUpdateResult{}, request.ErrNotFound
		}

		if req.Status != request.StatusPending {
			return request.StatusUpdateResult{}, request.ErrNotPending
		}

		if upd.Status == request.StatusConfirmed {
			if !e.Reserve() {
				return request.StatusUpdateResult{}, request.ErrLimitReached
			}
			req.Status = request.StatusConfirmed
			result.ConfirmedRequests = append(result.ConfirmedRequests, req)
		} else {
			req.Status = request.StatusRejected
			result.RejectedRequests = append(result.RejectedRequests, req)
		}

		staged[id] = req
	}

	for id, req := range staged {
		r.items[id] = req
	}
	if _, err := r.events.Save(ctx, e); err != nil {
		return request.StatusUpdateResult{}, err
	}

	return result, nil
}

func (r *RequestsRepo) Cancel(ctx context.Context, requesterID, requestID string) (request.ParticipationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.items[requestID]
	if !ok || req.RequesterID != requesterID {
		return request.ParticipationRequest{}, request.ErrNotFound
	}

	switch req.Status {
	case request.StatusCanceled:
		return req, nil
	case request.StatusRejected:
		return request.ParticipationRequest{}, request.ErrAlreadyRejected
	case request.StatusConfirmed:
		e, err := r.events.GetByID(ctx, req.EventID)
		if err != nil {
			return request.ParticipationRequest{}, err
		}
		e.Release()
		if _, err := r.events.Save(ctx, e); err != nil {
			return request.ParticipationRequest{}, err
		}
	}

	req.Status = request.StatusCanceled
	r.items[requestID] = req

	return req, nil
}

func (r *RequestsRepo) ListByRequester(_ context.Context, requesterID string) ([]request.ParticipationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.users[requesterID] {
		return nil, user.ErrNotFound
	}

	out := make([]request.ParticipationRequest, 0)
	for _, req := range r.items {
		if req.RequesterID == requesterID {
			out = append(out, req)
		}
	}

	sortByCreated(out)

	return out, nil
}

func (r *RequestsRepo) ListByEvent(ctx context.Context, initiatorID, eventID string) ([]request.ParticipationRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, err := r.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}

	if e.InitiatorID != initiatorID {
		return nil, request.ErrNotInitiator
	}

	out := make([]request.ParticipationRequest, 0)
	for _, req := range r.items {
		if req.EventID == eventID {
			out = append(out, req)
		}
	}

	sortByCreated(out)

	return out, nil
}

func sortByCreated(requests []request.ParticipationRequest) {
	sort.Slice(requests, func(i, j int) bool {
		if requests[i].Created.Equal(requests[j].Created) {
			return requests[i].ID < requests[j].ID
		}
		return requests[i].Created.Before(requests[j].Created)
	})
}
