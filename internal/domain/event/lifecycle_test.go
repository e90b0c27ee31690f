package event

import (
	"errors"
	"testing"
	"time"
)

func pendingEvent(eventDate time.Time) Event {
	return Event{
		ID:                "e1",
		Title:             "Evening concert",
		Annotation:        "An evening of live music downtown",
		Description:       "A long description of the evening concert program",
		State:             StatePending,
		EventDate:         eventDate,
		ParticipantLimit:  10,
		RequestModeration: true,
	}
}

func TestPublish(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		state     State
		eventDate time.Time
		wantErr   error
	}{
		{"pending and far enough", StatePending, now.Add(2 * time.Hour), nil},
		{"too soon", StatePending, now.Add(30 * time.Minute), ErrDateTooSoon},
		{"exactly one hour is allowed", StatePending, now.Add(time.Hour), nil},
		{"already published", StatePublished, now.Add(2 * time.Hour), ErrNotPending},
		{"canceled", StateCanceled, now.Add(2 * time.Hour), ErrNotPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := pendingEvent(tt.eventDate)
			e.State = tt.state

			err := e.Publish(now)

			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Publish() error = %v, want %v", err, tt.wantErr)
			}

			if tt.wantErr == nil {
				if e.State != StatePublished {
					t.Fatalf("state = %s, want PUBLISHED", e.State)
				}
				if e.PublishedOn == nil || !e.PublishedOn.Equal(now) {
					t.Fatalf("publishedOn = %v, want %v", e.PublishedOn, now)
				}
			}
		})
	}
}

func TestReject(t *testing.T) {
	e := pendingEvent(time.Now().Add(2 * time.Hour))

	if err := e.Reject(); err != nil {
		t.Fatalf("Reject() on pending: %v", err)
	}
	if e.State != StateCanceled {
		t.Fatalf("state = %s, want CANCELED", e.State)
	}

	published := pendingEvent(time.Now().Add(2 * time.Hour))
	published.State = StatePublished

	if err := published.Reject(); !errors.Is(err, ErrAlreadyPublished) {
		t.Fatalf("Reject() on published: %v, want ErrAlreadyPublished", err)
	}
}

func TestCapacityLedger(t *testing.T) {
	e := pendingEvent(time.Now().Add(2 * time.Hour))
	e.ParticipantLimit = 2

	if !e.Reserve() || !e.Reserve() {
		t.Fatal("first two reserves must succeed")
	}
	if e.Reserve() {
		t.Fatal("reserve past the limit must fail")
	}
	if e.ConfirmedRequests != 2 {
		t.Fatalf("confirmedRequests = %d, want 2", e.ConfirmedRequests)
	}

	e.Release()
	if e.ConfirmedRequests != 1 {
		t.Fatalf("confirmedRequests = %d, want 1", e.ConfirmedRequests)
	}

	// floored at zero
	e.Release()
	e.Release()
	if e.ConfirmedRequests != 0 {
		t.Fatalf("confirmedRequests = %d, want 0", e.ConfirmedRequests)
	}
}

func TestUnlimitedCapacity(t *testing.T) {
	e := pendingEvent(time.Now().Add(2 * time.Hour))
	e.ParticipantLimit = 0

	for i := 0; i < 100; i++ {
		if !e.Reserve() {
			t.Fatal("unlimited event must always have capacity")
		}
	}
}

func TestApplyUserUpdate(t *testing.T) {
	now := time.Now()

	t.Run("published event is frozen", func(t *testing.T) {
		e := pendingEvent(now.Add(2 * time.Hour))
		e.State = StatePublished

		title := "New title"
		err := e.ApplyUserUpdate(UpdateEventUserRequest{Title: &title}, now)
		if !errors.Is(err, ErrAlreadyPublished) {
			t.Fatalf("error = %v, want ErrAlreadyPublished", err)
		}
	})

	t.Run("title below bound", func(t *testing.T) {
		e := pendingEvent(now.Add(2 * time.Hour))

		title := "ab"
		err := e.ApplyUserUpdate(UpdateEventUserRequest{Title: &title}, now)

		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("error = %v, want ValidationError", err)
		}
		if validationErr.Field != "title" {
			t.Fatalf("field = %s, want title", validationErr.Field)
		}
	})

	t.Run("past date rejected", func(t *testing.T) {
		e := pendingEvent(now.Add(2 * time.Hour))

		past := now.Add(-time.Hour)
		err := e.ApplyUserUpdate(UpdateEventUserRequest{EventDate: &past}, now)
		if !errors.Is(err, ErrDateInPast) {
			t.Fatalf("error = %v, want ErrDateInPast", err)
		}
	})

	t.Run("cancel review then resubmit", func(t *testing.T) {
		e := pendingEvent(now.Add(2 * time.Hour))

		cancel := ActionCancelReview
		if err := e.ApplyUserUpdate(UpdateEventUserRequest{StateAction: &cancel}, now); err != nil {
			t.Fatalf("cancel review: %v", err)
		}
		if e.State != StateCanceled {
			t.Fatalf("state = %s, want CANCELED", e.State)
		}

		resend := ActionSendToReview
		if err := e.ApplyUserUpdate(UpdateEventUserRequest{StateAction: &resend}, now); err != nil {
			t.Fatalf("send to review: %v", err)
		}
		if e.State != StatePending {
			t.Fatalf("state = %s, want PENDING", e.State)
		}
	})
}

func TestApplyAdminUpdate(t *testing.T) {
	now := time.Now()

	t.Run("field edit on published conflicts", func(t *testing.T) {
		e := pendingEvent(now.Add(2 * time.Hour))
		e.State = StatePublished

		paid := true
		err := e.ApplyAdminUpdate(UpdateEventAdminRequest{Paid: &paid}, now)
		if !errors.Is(err, ErrAlreadyPublished) {
			t.Fatalf("error = %v, want ErrAlreadyPublished", err)
		}
	})

	t.Run("publish action", func(t *testing.T) {
		e := pendingEvent(now.Add(2 * time.Hour))

		publish := ActionPublish
		if err := e.ApplyAdminUpdate(UpdateEventAdminRequest{StateAction: &publish}, now); err != nil {
			t.Fatalf("publish: %v", err)
		}
		if e.State != StatePublished {
			t.Fatalf("state = %s, want PUBLISHED", e.State)
		}
	})

	t.Run("reject published conflicts", func(t *testing.T) {
		e := pendingEvent(now.Add(2 * time.Hour))
		e.State = StatePublished

		reject := ActionReject
		err := e.ApplyAdminUpdate(UpdateEventAdminRequest{StateAction: &reject}, now)
		if !errors.Is(err, ErrAlreadyPublished) {
			t.Fatalf("error = %v, want ErrAlreadyPublished", err)
		}
	})
}
