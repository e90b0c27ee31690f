package request

import (
	"errors"
	"time"

	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusRejected  Status = "REJECTED"
	StatusCanceled  Status = "CANCELED"
)

type ParticipationRequest struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event"`
	RequesterID string    `json:"requester"`
	Status      Status    `json:"status"`
	Created     time.Time `json:"created"`
}

var ErrNotFound = errors.New("request not found")

// one live (non-canceled) request per requester/event pair
var ErrDuplicate = errors.New("request already exists")

var ErrEventNotPublished = errors.New("event is not published")
var ErrOwnEvent = errors.New("initiator cannot request participation")
var ErrLimitReached = errors.New("participant limit reached")
var ErrNotPending = errors.New("request must be pending")
var ErrAlreadyRejected = errors.New("request already rejected")
var ErrNotInitiator = errors.New("user is not the event initiator")
var ErrModerationDisabled = errors.New("request moderation is disabled")

// InitialStatus decides how a freshly created request starts out: straight
// to CONFIRMED when the event does not moderate requests or has no limit,
// PENDING otherwise.
func InitialStatus(e event.Event) Status {
	if !e.RequestModeration || e.ParticipantLimit == 0 {
		return StatusConfirmed
	}
	return StatusPending
}

func New(requesterID, eventID string, status Status) ParticipationRequest {
	return ParticipationRequest{
		ID:          uuid.NewString(),
		EventID:     eventID,
		RequesterID: requesterID,
		Status:      status,
		Created:     time.Now().UTC(),
	}
}

type StatusUpdateRequest struct {
	RequestIDs []string `json:"requestIds" binding:"required,min=1"`
	Status     Status   `json:"status" binding:"required,oneof=CONFIRMED REJECTED"`
}

// StatusUpdateResult carries value snapshots, not live rows.
type StatusUpdateResult struct {
	ConfirmedRequests []ParticipationRequest `json:"confirmedRequests"`
	RejectedRequests  []ParticipationRequest `json:"rejectedRequests"`
}
