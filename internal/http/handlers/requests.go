package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/domain/request"
	"github.com/afisha-dev/afisha/internal/domain/user"
	"github.com/afisha-dev/afisha/internal/utils"
	"github.com/gin-gonic/gin"
)

type RequestsStore interface {
	Create(ctx context.Context, requesterID, eventID string) (request.ParticipationRequest, error)
	UpdateStatuses(ctx context.Context, initiatorID, eventID string, upd request.StatusUpdateRequest) (request.StatusUpdateResult, error)
	Cancel(ctx context.Context, requesterID, requestID string) (request.ParticipationRequest, error)
	ListByRequester(ctx context.Context, requesterID string) ([]request.ParticipationRequest, error)
	ListByEvent(ctx context.Context, initiatorID, eventID string) ([]request.ParticipationRequest, error)
}

type RequestsHandler struct {
	repo RequestsStore
}

func NewRequestsHandler(repo RequestsStore) *RequestsHandler {
	return &RequestsHandler{repo: repo}
}

func (h *RequestsHandler) Create(ctx *gin.Context) {
	userID := ctx.Param("userId")
	eventID := ctx.Query("eventId")

	if eventID == "" {
		RespondBadRequest(ctx, "eventId query parameter is required")
		return
	}

	if !utils.IsUUID(eventID) {
		RespondBadRequest(ctx, "event id must be a valid UUID")
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	req, err := h.repo.Create(cctx, userID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "User with id="+userID+" was not found")
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event with id="+eventID+" was not found")
		case errors.Is(err, request.ErrEventNotPublished):
			RespondConflict(ctx, "Cannot participate in an unpublished event")
		case errors.Is(err, request.ErrOwnEvent):
			RespondConflict(ctx, "Initiator cannot request participation in own event")
		case errors.Is(err, request.ErrDuplicate):
			RespondConflict(ctx, "Request already exists")
		case errors.Is(err, request.ErrLimitReached):
			RespondConflict(ctx, "The participant limit has been reached")
		default:
			RespondInternal(ctx, "Could not create request")
		}
		return
	}

	ctx.JSON(http.StatusCreated, req)
}

func (h *RequestsHandler) ListOwn(ctx *gin.Context) {
	userID := ctx.Param("userId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	requests, err := h.repo.ListByRequester(cctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User with id="+userID+" was not found")
			return
		}
		RespondInternal(ctx, "Could not list requests")
		return
	}

	ctx.JSON(http.StatusOK, requests)
}

func (h *RequestsHandler) Cancel(ctx *gin.Context) {
	userID := ctx.Param("userId")
	requestID := ctx.Param("requestId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	req, err := h.repo.Cancel(cctx, userID, requestID)
	if err != nil {
		switch {
		case errors.Is(err, request.ErrNotFound):
			RespondNotFound(ctx, "Request with id="+requestID+" was not found")
		case errors.Is(err, request.ErrAlreadyRejected):
			RespondConflict(ctx, "Rejected request cannot be canceled")
		default:
			RespondInternal(ctx, "Could not cancel request")
		}
		return
	}

	ctx.JSON(http.StatusOK, req)
}

// ListForEvent returns an event's requests to its initiator.
func (h *RequestsHandler) ListForEvent(ctx *gin.Context) {
	userID := ctx.Param("userId")
	eventID := ctx.Param("eventId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	requests, err := h.repo.ListByEvent(cctx, userID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event with id="+eventID+" was not found")
		case errors.Is(err, request.ErrNotInitiator):
			RespondConflict(ctx, "Only the event initiator can view its requests")
		default:
			RespondInternal(ctx, "Could not list requests")
		}
		return
	}

	ctx.JSON(http.StatusOK, requests)
}

// UpdateStatuses is the bulk confirm/reject endpoint. A conflict anywhere in
// the batch aborts the whole call.
func (h *RequestsHandler) UpdateStatuses(ctx *gin.Context) {
	userID := ctx.Param("userId")
	eventID := ctx.Param("eventId")

	var upd request.StatusUpdateRequest

	if !BindJSON(ctx, &upd) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	result, err := h.repo.UpdateStatuses(cctx, userID, eventID, upd)
	if err != nil {
		switch {
		case errors.Is(err, event.ErrNotFound):
			RespondNotFound(ctx, "Event with id="+eventID+" was not found")
		case errors.Is(err, request.ErrNotFound):
			RespondNotFound(ctx, "One of the listed requests was not found for this event")
		case errors.Is(err, request.ErrNotInitiator):
			RespondConflict(ctx, "Only the event initiator can moderate its requests")
		case errors.Is(err, request.ErrModerationDisabled):
			RespondConflict(ctx, "Request moderation is disabled for this event")
		case errors.Is(err, request.ErrNotPending):
			RespondConflict(ctx, "Request must have status PENDING")
		case errors.Is(err, request.ErrLimitReached):
			RespondConflict(ctx, "The participant limit has been reached")
		default:
			RespondInternal(ctx, "Could not update requests")
		}
		return
	}

	ctx.JSON(http.StatusOK, result)
}
