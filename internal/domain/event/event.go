package event

import (
	"errors"
	"time"
)

type State string

const (
	StatePending   State = "PENDING"
	StatePublished State = "PUBLISHED"
	StateCanceled  State = "CANCELED"
)

// state-action directives, split by actor role so each maps to its own
// constrained transition
type UserStateAction string

const (
	ActionSendToReview UserStateAction = "SEND_TO_REVIEW"
	ActionCancelReview UserStateAction = "CANCEL_REVIEW"
)

type AdminStateAction string

const (
	ActionPublish AdminStateAction = "PUBLISH_EVENT"
	ActionReject  AdminStateAction = "REJECT_EVENT"
)

type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Event struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Annotation        string     `json:"annotation"`
	Description       string     `json:"description"`
	CategoryID        string     `json:"category"`
	InitiatorID       string     `json:"initiator"`
	EventDate         time.Time  `json:"eventDate"`
	Location          Location   `json:"location"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participantLimit"` // 0 = unlimited
	RequestModeration bool       `json:"requestModeration"`
	State             State      `json:"state"`
	CreatedOn         time.Time  `json:"createdOn"`
	PublishedOn       *time.Time `json:"publishedOn,omitempty"`
	ConfirmedRequests int        `json:"confirmedRequests"`
}

var ErrNotFound = errors.New("event not found")

// mutation attempted after the event reached PUBLISHED
var ErrAlreadyPublished = errors.New("published event cannot be changed")

var ErrNotPending = errors.New("only pending events can be published")
var ErrDateTooSoon = errors.New("event date must be at least 1 hour in the future")
var ErrDateInPast = errors.New("event date cannot be in the past")

type CreateEventRequest struct {
	Title             string    `json:"title" binding:"required,min=3,max=120"`
	Annotation        string    `json:"annotation" binding:"required,min=20,max=2000"`
	Description       string    `json:"description" binding:"required,min=20,max=7000"`
	CategoryID        string    `json:"category" binding:"required"`
	EventDate         time.Time `json:"eventDate" binding:"required"`
	Location          Location  `json:"location"`
	Paid              bool      `json:"paid"`
	ParticipantLimit  int       `json:"participantLimit" binding:"omitempty,min=0"`
	RequestModeration *bool     `json:"requestModeration"` // defaults to true
}

// patch payload from the initiator: nil fields stay untouched
type UpdateEventUserRequest struct {
	Title            *string          `json:"title"`
	Annotation       *string          `json:"annotation"`
	Description      *string          `json:"description"`
	CategoryID       *string          `json:"category"`
	EventDate        *time.Time       `json:"eventDate"`
	Location         *Location        `json:"location"`
	Paid             *bool            `json:"paid"`
	ParticipantLimit *int             `json:"participantLimit"`
	StateAction      *UserStateAction `json:"stateAction" binding:"omitempty,oneof=SEND_TO_REVIEW CANCEL_REVIEW"`
}

type UpdateEventAdminRequest struct {
	Title            *string           `json:"title"`
	Annotation       *string           `json:"annotation"`
	Description      *string           `json:"description"`
	CategoryID       *string           `json:"category"`
	EventDate        *time.Time        `json:"eventDate"`
	Location         *Location         `json:"location"`
	Paid             *bool             `json:"paid"`
	ParticipantLimit *int              `json:"participantLimit"`
	StateAction      *AdminStateAction `json:"stateAction" binding:"omitempty,oneof=PUBLISH_EVENT REJECT_EVENT"`
}

type Sort string

const (
	SortEventDate Sort = "EVENT_DATE"
	SortViews     Sort = "VIEWS"
)

// admin search filter, nil/empty slices mean "any"
type AdminFilter struct {
	Users      []string
	States     []State
	Categories []string
	RangeStart *time.Time
	RangeEnd   *time.Time
	From       int
	Size       int
}

type PublicFilter struct {
	Text          *string
	Categories    []string
	Paid          *bool
	RangeStart    *time.Time
	RangeEnd      *time.Time
	OnlyAvailable bool
	Sort          Sort
	From          int
	Size          int
}
