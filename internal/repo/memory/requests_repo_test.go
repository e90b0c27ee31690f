package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/domain/request"
	"github.com/afisha-dev/afisha/internal/domain/user"
	"github.com/google/uuid"
)

func newFixture(t *testing.T, limit int, moderation bool) (*EventsRepo, *RequestsRepo, event.Event) {
	t.Helper()

	events := NewEventsRepo()
	requests := NewRequestsRepo(events)

	e := event.Event{
		ID:                uuid.NewString(),
		Title:             "City marathon",
		InitiatorID:       "initiator",
		State:             event.StatePublished,
		EventDate:         time.Now().Add(24 * time.Hour),
		ParticipantLimit:  limit,
		RequestModeration: moderation,
		CreatedOn:         time.Now(),
	}

	if _, err := events.Create(context.Background(), e); err != nil {
		t.Fatalf("seed event: %v", err)
	}

	requests.AddUser("initiator")

	return events, requests, e
}

func addRequester(requests *RequestsRepo, id string) string {
	requests.AddUser(id)
	return id
}

func TestCreateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown user", func(t *testing.T) {
		_, requests, e := newFixture(t, 10, true)

		_, err := requests.Create(ctx, "ghost", e.ID)
		if !errors.Is(err, user.ErrNotFound) {
			t.Fatalf("error = %v, want user.ErrNotFound", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		_, requests, _ := newFixture(t, 10, true)
		u := addRequester(requests, "alice")

		_, err := requests.Create(ctx, u, uuid.NewString())
		if !errors.Is(err, event.ErrNotFound) {
			t.Fatalf("error = %v, want event.ErrNotFound", err)
		}
	})

	t.Run("unpublished event", func(t *testing.T) {
		events, requests, e := newFixture(t, 10, true)
		u := addRequester(requests, "alice")

		e.State = event.StatePending
		if _, err := events.Save(ctx, e); err != nil {
			t.Fatal(err)
		}

		_, err := requests.Create(ctx, u, e.ID)
		if !errors.Is(err, request.ErrEventNotPublished) {
			t.Fatalf("error = %v, want ErrEventNotPublished", err)
		}
	})

	t.Run("own event", func(t *testing.T) {
		_, requests, e := newFixture(t, 10, true)

		_, err := requests.Create(ctx, "initiator", e.ID)
		if !errors.Is(err, request.ErrOwnEvent) {
			t.Fatalf("error = %v, want ErrOwnEvent", err)
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		_, requests, e := newFixture(t, 10, true)
		u := addRequester(requests, "alice")

		if _, err := requests.Create(ctx, u, e.ID); err != nil {
			t.Fatalf("first create: %v", err)
		}

		_, err := requests.Create(ctx, u, e.ID)
		if !errors.Is(err, request.ErrDuplicate) {
			t.Fatalf("error = %v, want ErrDuplicate", err)
		}
	})

	t.Run("canceled request does not block a new one", func(t *testing.T) {
		_, requests, e := newFixture(t, 10, true)
		u := addRequester(requests, "alice")

		first, err := requests.Create(ctx, u, e.ID)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := requests.Cancel(ctx, u, first.ID); err != nil {
			t.Fatal(err)
		}

		if _, err := requests.Create(ctx, u, e.ID); err != nil {
			t.Fatalf("create after cancel: %v", err)
		}
	})

	t.Run("auto-confirm without moderation", func(t *testing.T) {
		events, requests, e := newFixture(t, 10, false)
		u := addRequester(requests, "alice")

		req, err := requests.Create(ctx, u, e.ID)
		if err != nil {
			t.Fatal(err)
		}
		if req.Status != request.StatusConfirmed {
			t.Fatalf("status = %s, want CONFIRMED", req.Status)
		}

		got, _ := events.GetByID(ctx, e.ID)
		if got.ConfirmedRequests != 1 {
			t.Fatalf("confirmedRequests = %d, want 1", got.ConfirmedRequests)
		}
	})

	t.Run("pending with moderation", func(t *testing.T) {
		events, requests, e := newFixture(t, 10, true)
		u := addRequester(requests, "alice")

		req, err := requests.Create(ctx, u, e.ID)
		if err != nil {
			t.Fatal(err)
		}
		if req.Status != request.StatusPending {
			t.Fatalf("status = %s, want PENDING", req.Status)
		}

		got, _ := events.GetByID(ctx, e.ID)
		if got.ConfirmedRequests != 0 {
			t.Fatalf("confirmedRequests = %d, want 0", got.ConfirmedRequests)
		}
	})

	t.Run("limit reached", func(t *testing.T) {
		_, requests, e := newFixture(t, 1, false)
		first := addRequester(requests, "alice")
		second := addRequester(requests, "bob")

		if _, err := requests.Create(ctx, first, e.ID); err != nil {
			t.Fatal(err)
		}

		_, err := requests.Create(ctx, second, e.ID)
		if !errors.Is(err, request.ErrLimitReached) {
			t.Fatalf("error = %v, want ErrLimitReached", err)
		}
	})
}

// With limit 1 and no moderation, concurrent joins must confirm exactly one.
func TestCreateRequestConcurrentLimit(t *testing.T) {
	ctx := context.Background()
	events, requests, e := newFixture(t, 1, false)

	const n = 32
	var wg sync.WaitGroup
	confirmed := make(chan request.ParticipationRequest, n)

	for i := 0; i < n; i++ {
		u := addRequester(requests, fmt.Sprintf("user-%d", i))
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if req, err := requests.Create(ctx, id, e.ID); err == nil {
				confirmed <- req
			}
		}(u)
	}

	wg.Wait()
	close(confirmed)

	var count int
	for range confirmed {
		count++
	}

	if count != 1 {
		t.Fatalf("confirmed = %d, want exactly 1", count)
	}

	got, _ := events.GetByID(ctx, e.ID)
	if got.ConfirmedRequests != 1 {
		t.Fatalf("confirmedRequests = %d, want 1", got.ConfirmedRequests)
	}
}

func TestUpdateStatuses(t *testing.T) {
	ctx := context.Background()

	seedPending := func(t *testing.T, requests *RequestsRepo, e event.Event, n int) []string {
		t.Helper()
		ids := make([]string, 0, n)
		for i := 0; i < n; i++ {
			u := addRequester(requests, fmt.Sprintf("user-%d", i))
			req, err := requests.Create(ctx, u, e.ID)
			if err != nil {
				t.Fatalf("seed request: %v", err)
			}
			ids = append(ids, req.ID)
		}
		return ids
	}

	t.Run("confirm within limit", func(t *testing.T) {
		events, requests, e := newFixture(t, 3, true)
		ids := seedPending(t, requests, e, 2)

		result, err := requests.UpdateStatuses(ctx, "initiator", e.ID, request.StatusUpdateRequest{
			RequestIDs: ids,
			Status:     request.StatusConfirmed,
		})
		if err != nil {
			t.Fatal(err)
		}

		if len(result.ConfirmedRequests) != 2 || len(result.RejectedRequests) != 0 {
			t.Fatalf("unexpected result: %+v", result)
		}

		got, _ := events.GetByID(ctx, e.ID)
		if got.ConfirmedRequests != 2 {
			t.Fatalf("confirmedRequests = %d, want 2", got.ConfirmedRequests)
		}
	})

	t.Run("conflict aborts the whole batch", func(t *testing.T) {
		events, requests, e := newFixture(t, 1, true)
		ids := seedPending(t, requests, e, 3)

		_, err := requests.UpdateStatuses(ctx, "initiator", e.ID, request.StatusUpdateRequest{
			RequestIDs: ids,
			Status:     request.StatusConfirmed,
		})
		if !errors.Is(err, request.ErrLimitReached) {
			t.Fatalf("error = %v, want ErrLimitReached", err)
		}

		// nothing committed
		got, _ := events.GetByID(ctx, e.ID)
		if got.ConfirmedRequests != 0 {
			t.Fatalf("confirmedRequests = %d, want 0 after abort", got.ConfirmedRequests)
		}

		all, err := requests.ListByEvent(ctx, "initiator", e.ID)
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range all {
			if r.Status != request.StatusPending {
				t.Fatalf("request %s status = %s, want PENDING after abort", r.ID, r.Status)
			}
		}
	})

	t.Run("not initiator", func(t *testing.T) {
		_, requests, e := newFixture(t, 3, true)
		ids := seedPending(t, requests, e, 1)
		outsider := addRequester(requests, "outsider")

		_, err := requests.UpdateStatuses(ctx, outsider, e.ID, request.StatusUpdateRequest{
			RequestIDs: ids,
			Status:     request.StatusConfirmed,
		})
		if !errors.Is(err, request.ErrNotInitiator) {
			t.Fatalf("error = %v, want ErrNotInitiator", err)
		}
	})

	t.Run("moderation disabled", func(t *testing.T) {
		_, requests, e := newFixture(t, 0, false)

		_, err := requests.UpdateStatuses(ctx, "initiator", e.ID, request.StatusUpdateRequest{
			RequestIDs: []string{uuid.NewString()},
			Status:     request.StatusConfirmed,
		})
		if !errors.Is(err, request.ErrModerationDisabled) {
			t.Fatalf("error = %v, want ErrModerationDisabled", err)
		}
	})

	t.Run("non-pending request conflicts", func(t *testing.T) {
		_, requests, e := newFixture(t, 3, true)
		ids := seedPending(t, requests, e, 1)

		if _, err := requests.UpdateStatuses(ctx, "initiator", e.ID, request.StatusUpdateRequest{
			RequestIDs: ids,
			Status:     request.StatusRejected,
		}); err != nil {
			t.Fatal(err)
		}

		_, err := requests.UpdateStatuses(ctx, "initiator", e.ID, request.StatusUpdateRequest{
			RequestIDs: ids,
			Status:     request.StatusConfirmed,
		})
		if !errors.Is(err, request.ErrNotPending) {
			t.Fatalf("error = %v, want ErrNotPending", err)
		}
	})
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel confirmed releases the slot", func(t *testing.T) {
		events, requests, e := newFixture(t, 1, false)
		u := addRequester(requests, "alice")

		req, err := requests.Create(ctx, u, e.ID)
		if err != nil {
			t.Fatal(err)
		}

		canceled, err := requests.Cancel(ctx, u, req.ID)
		if err != nil {
			t.Fatal(err)
		}
		if canceled.Status != request.StatusCanceled {
			t.Fatalf("status = %s, want CANCELED", canceled.Status)
		}

		got, _ := events.GetByID(ctx, e.ID)
		if got.ConfirmedRequests != 0 {
			t.Fatalf("confirmedRequests = %d, want 0", got.ConfirmedRequests)
		}
	})

	t.Run("cancel is idempotent", func(t *testing.T) {
		events, requests, e := newFixture(t, 1, false)
		u := addRequester(requests, "alice")

		req, _ := requests.Create(ctx, u, e.ID)
		if _, err := requests.Cancel(ctx, u, req.ID); err != nil {
			t.Fatal(err)
		}

		again, err := requests.Cancel(ctx, u, req.ID)
		if err != nil {
			t.Fatalf("second cancel: %v", err)
		}
		if again.Status != request.StatusCanceled {
			t.Fatalf("status = %s, want CANCELED", again.Status)
		}

		// counter must not go below zero
		got, _ := events.GetByID(ctx, e.ID)
		if got.ConfirmedRequests != 0 {
			t.Fatalf("confirmedRequests = %d, want 0", got.ConfirmedRequests)
		}
	})

	t.Run("rejected request cannot be canceled", func(t *testing.T) {
		_, requests, e := newFixture(t, 3, true)
		u := addRequester(requests, "alice")

		req, _ := requests.Create(ctx, u, e.ID)
		if _, err := requests.UpdateStatuses(ctx, "initiator", e.ID, request.StatusUpdateRequest{
			RequestIDs: []string{req.ID},
			Status:     request.StatusRejected,
		}); err != nil {
			t.Fatal(err)
		}

		_, err := requests.Cancel(ctx, u, req.ID)
		if !errors.Is(err, request.ErrAlreadyRejected) {
			t.Fatalf("error = %v, want ErrAlreadyRejected", err)
		}
	})

	t.Run("someone else's request reads as absent", func(t *testing.T) {
		_, requests, e := newFixture(t, 3, true)
		owner := addRequester(requests, "alice")
		other := addRequester(requests, "bob")

		req, _ := requests.Create(ctx, owner, e.ID)

		_, err := requests.Cancel(ctx, other, req.ID)
		if !errors.Is(err, request.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})
}
