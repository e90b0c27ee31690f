package event

import (
	"fmt"
	"time"
)

// ValidationError reports a rejected field value. Handlers map it to a 400
// with the offending field and value spelled out.
type ValidationError struct {
	Field   string
	Message string
	Value   any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("Field: %s. Error: %s. Value: %v", e.Field, e.Message, e.Value)
}

func validateLength(field, value string, min, max int) error {
	n := len([]rune(value))

	if n < min {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters long", min),
			Value:   value,
		}
	}

	if n > max {
		return &ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be no more than %d characters long", max),
			Value:   value,
		}
	}

	return nil
}

// HasCapacity reports whether one more participant fits under the limit.
func (e *Event) HasCapacity() bool {
	return e.ParticipantLimit == 0 || e.ConfirmedRequests < e.ParticipantLimit
}

// Reserve takes one confirmed slot. It must run under the per-event
// serialization boundary (row lock or single mutex).
func (e *Event) Reserve() bool {
	if !e.HasCapacity() {
		return false
	}
	e.ConfirmedRequests++
	return true
}

// Release gives one confirmed slot back, floored at zero.
func (e *Event) Release() {
	if e.ConfirmedRequests > 0 {
		e.ConfirmedRequests--
	}
}

// ApplyUserAction toggles PENDING <-> CANCELED before publication.
func (e *Event) ApplyUserAction(action UserStateAction) error {
	if e.State == StatePublished {
		return ErrAlreadyPublished
	}

	switch action {
	case ActionSendToReview:
		e.State = StatePending
	case ActionCancelReview:
		e.State = StateCanceled
	}

	return nil
}

// Publish moves PENDING -> PUBLISHED. The event date must be at least one
// hour past the moment of publication.
func (e *Event) Publish(now time.Time) error {
	if e.State != StatePending {
		return ErrNotPending
	}

	if e.EventDate.Before(now.Add(time.Hour)) {
		return ErrDateTooSoon
	}

	e.State = StatePublished
	publishedOn := now
	e.PublishedOn = &publishedOn

	return nil
}

// Reject moves a not-yet-published event to CANCELED.
func (e *Event) Reject() error {
	if e.State == StatePublished {
		return ErrAlreadyPublished
	}

	e.State = StateCanceled

	return nil
}

type patch struct {
	Title            *string
	Annotation       *string
	Description      *string
	CategoryID       *string
	EventDate        *time.Time
	Location         *Location
	Paid             *bool
	ParticipantLimit *int
}

func (e *Event) applyPatch(p patch, now time.Time) error {
	if p.Title != nil {
		if err := validateLength("title", *p.Title, 3, 120); err != nil {
			return err
		}
		e.Title = *p.Title
	}
	if p.Annotation != nil {
		if err := validateLength("annotation", *p.Annotation, 20, 2000); err != nil {
			return err
		}
		e.Annotation = *p.Annotation
	}
	if p.Description != nil {
		if err := validateLength("description", *p.Description, 20, 7000); err != nil {
			return err
		}
		e.Description = *p.Description
	}
	if p.EventDate != nil {
		if p.EventDate.Before(now) {
			return ErrDateInPast
		}
		e.EventDate = *p.EventDate
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Location != nil {
		e.Location = *p.Location
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		if *p.ParticipantLimit < 0 {
			return &ValidationError{Field: "participantLimit", Message: "must not be negative", Value: *p.ParticipantLimit}
		}
		e.ParticipantLimit = *p.ParticipantLimit
	}

	return nil
}

// ApplyUserUpdate edits fields and optionally toggles the review state.
// Published events are frozen entirely.
func (e *Event) ApplyUserUpdate(req UpdateEventUserRequest, now time.Time) error {
	if e.State == StatePublished {
		return ErrAlreadyPublished
	}

	err := e.applyPatch(patch{
		Title:            req.Title,
		Annotation:       req.Annotation,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		EventDate:        req.EventDate,
		Location:         req.Location,
		Paid:             req.Paid,
		ParticipantLimit: req.ParticipantLimit,
	}, now)
	if err != nil {
		return err
	}

	if req.StateAction != nil {
		return e.ApplyUserAction(*req.StateAction)
	}

	return nil
}

// ApplyAdminUpdate edits fields and optionally publishes or rejects.
func (e *Event) ApplyAdminUpdate(req UpdateEventAdminRequest, now time.Time) error {
	if req.hasFieldEdits() && e.State == StatePublished {
		return ErrAlreadyPublished
	}

	err := e.applyPatch(patch{
		Title:            req.Title,
		Annotation:       req.Annotation,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		EventDate:        req.EventDate,
		Location:         req.Location,
		Paid:             req.Paid,
		ParticipantLimit: req.ParticipantLimit,
	}, now)
	if err != nil {
		return err
	}

	if req.StateAction != nil {
		switch *req.StateAction {
		case ActionPublish:
			return e.Publish(now)
		case ActionReject:
			return e.Reject()
		}
	}

	return nil
}

func (req UpdateEventAdminRequest) hasFieldEdits() bool {
	return req.Title != nil || req.Annotation != nil || req.Description != nil ||
		req.CategoryID != nil || req.EventDate != nil || req.Location != nil ||
		req.Paid != nil || req.ParticipantLimit != nil
}
