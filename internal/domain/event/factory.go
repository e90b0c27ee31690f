package event

import (
	"time"

	"github.com/google/uuid"
)

func NewFromCreateRequest(initiatorID string, req CreateEventRequest) Event {
	moderation := true
	if req.RequestModeration != nil {
		moderation = *req.RequestModeration
	}

	return Event{
		ID:                uuid.NewString(),
		Title:             req.Title,
		Annotation:        req.Annotation,
		Description:       req.Description,
		CategoryID:        req.CategoryID,
		InitiatorID:       initiatorID,
		EventDate:         req.EventDate,
		Location:          req.Location,
		Paid:              req.Paid,
		ParticipantLimit:  req.ParticipantLimit,
		RequestModeration: moderation,
		State:             StatePending,
		CreatedOn:         time.Now().UTC(),
	}
}
