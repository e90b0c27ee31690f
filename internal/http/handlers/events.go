package handlers

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/afisha-dev/afisha/internal/config"
	"github.com/afisha-dev/afisha/internal/domain/category"
	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/domain/stats"
	"github.com/afisha-dev/afisha/internal/statsclient"
	"github.com/afisha-dev/afisha/internal/utils"
	"github.com/gin-gonic/gin"
)

type EventsStore interface {
	Create(ctx context.Context, e event.Event) (event.Event, error)
	GetByID(ctx context.Context, id string) (event.Event, error)
	GetPublishedByID(ctx context.Context, id string) (event.Event, error)
	GetByIDAndInitiator(ctx context.Context, id, initiatorID string) (event.Event, error)
	Save(ctx context.Context, e event.Event) (event.Event, error)
	ListByInitiator(ctx context.Context, initiatorID string, from, size int) ([]event.Event, error)
	SearchAdmin(ctx context.Context, filter event.AdminFilter) ([]event.Event, error)
	SearchPublic(ctx context.Context, filter event.PublicFilter) ([]event.Event, error)
}

type CategoryChecker interface {
	GetByID(ctx context.Context, id string) (category.Category, error)
}

// StatsRecorder is the best-effort stats side channel. Both calls must be
// safe to fail.
type StatsRecorder interface {
	Hit(ctx context.Context, uri, ip string)
	Views(ctx context.Context, uris []string, start, end time.Time, unique bool) map[string]int64
}

type ViewCounter interface {
	Get(ctx context.Context, eventID string) (int64, bool)
	Set(ctx context.Context, eventID string, views int64)
}

type EventsHandler struct {
	repo       EventsStore
	categories CategoryChecker
	stats      StatsRecorder
	viewCache  ViewCounter
}

func NewEventsHandler(repo EventsStore, categories CategoryChecker, statsRec StatsRecorder, viewCache ViewCounter) *EventsHandler {
	return &EventsHandler{repo: repo, categories: categories, stats: statsRec, viewCache: viewCache}
}

// eventView is the public shape: the event plus its derived view count.
type eventView struct {
	event.Event
	Views int64 `json:"views"`
}

// ---- private (initiator) endpoints ----

func (h *EventsHandler) Create(ctx *gin.Context) {
	userID := ctx.Param("userId")

	var req event.CreateEventRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.EventDate.Before(time.Now()) {
		RespondBadRequest(ctx, "Field: eventDate. Error: must not be in the past. Value: "+
			req.EventDate.Format(time.RFC3339))
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	if _, err := h.categories.GetByID(cctx, req.CategoryID); err != nil {
		if errors.Is(err, category.ErrNotFound) {
			RespondNotFound(ctx, "Category with id="+req.CategoryID+" was not found")
			return
		}
		RespondInternal(ctx, "Could not create event")
		return
	}

	e, err := h.repo.Create(cctx, event.NewFromCreateRequest(userID, req))
	if err != nil {
		RespondInternal(ctx, "Could not create event")
		return
	}

	ctx.JSON(http.StatusCreated, e)
}

func (h *EventsHandler) ListOwn(ctx *gin.Context) {
	userID := ctx.Param("userId")

	from, size, err := utils.ParseFromSize(ctx.Query("from"), ctx.Query("size"))
	if err != nil {
		RespondBadRequest(ctx, err.Error())
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.repo.ListByInitiator(cctx, userID, from, size)
	if err != nil {
		RespondInternal(ctx, "Could not list events")
		return
	}

	ctx.JSON(http.StatusOK, events)
}

func (h *EventsHandler) GetOwn(ctx *gin.Context) {
	userID := ctx.Param("userId")
	eventID := ctx.Param("eventId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByIDAndInitiator(cctx, eventID, userID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event with id="+eventID+" was not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	ctx.JSON(http.StatusOK, e)
}

func (h *EventsHandler) UserUpdate(ctx *gin.Context) {
	userID := ctx.Param("userId")
	eventID := ctx.Param("eventId")

	var req event.UpdateEventUserRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByIDAndInitiator(cctx, eventID, userID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event with id="+eventID+" was not found")
			return
		}
		RespondInternal(ctx, "Could not update event")
		return
	}

	if err := e.ApplyUserUpdate(req, time.Now()); err != nil {
		respondEventStateError(ctx, err)
		return
	}

	saved, err := h.repo.Save(cctx, e)
	if err != nil {
		RespondInternal(ctx, "Could not update event")
		return
	}

	ctx.JSON(http.StatusOK, saved)
}

// ---- admin endpoints ----

func (h *EventsHandler) SearchAdmin(ctx *gin.Context) {
	from, size, err := utils.ParseFromSize(ctx.Query("from"), ctx.Query("size"))
	if err != nil {
		RespondBadRequest(ctx, err.Error())
		return
	}

	filter := event.AdminFilter{
		Users:      ctx.QueryArray("users"),
		Categories: ctx.QueryArray("categories"),
		From:       from,
		Size:       size,
	}

	for _, raw := range ctx.QueryArray("states") {
		filter.States = append(filter.States, event.State(raw))
	}

	filter.RangeStart, err = parseOptionalTime(ctx.Query("rangeStart"))
	if err != nil {
		RespondBadRequest(ctx, "rangeStart must use format "+stats.DateTimeLayout)
		return
	}

	filter.RangeEnd, err = parseOptionalTime(ctx.Query("rangeEnd"))
	if err != nil {
		RespondBadRequest(ctx, "rangeEnd must use format "+stats.DateTimeLayout)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.repo.SearchAdmin(cctx, filter)
	if err != nil {
		RespondInternal(ctx, "Could not search events")
		return
	}

	ctx.JSON(http.StatusOK, events)
}

func (h *EventsHandler) AdminUpdate(ctx *gin.Context) {
	eventID := ctx.Param("eventId")

	var req event.UpdateEventAdminRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetByID(cctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event with id="+eventID+" was not found")
			return
		}
		RespondInternal(ctx, "Could not update event")
		return
	}

	if err := e.ApplyAdminUpdate(req, time.Now()); err != nil {
		respondEventStateError(ctx, err)
		return
	}

	saved, err := h.repo.Save(cctx, e)
	if err != nil {
		RespondInternal(ctx, "Could not update event")
		return
	}

	ctx.JSON(http.StatusOK, saved)
}

// ---- public endpoints ----

func (h *EventsHandler) SearchPublic(ctx *gin.Context) {
	from, size, err := utils.ParseFromSize(ctx.Query("from"), ctx.Query("size"))
	if err != nil {
		RespondBadRequest(ctx, err.Error())
		return
	}

	filter := event.PublicFilter{
		Categories: ctx.QueryArray("categories"),
		Sort:       event.SortEventDate,
		From:       from,
		Size:       size,
	}

	if text := ctx.Query("text"); text != "" {
		filter.Text = &text
	}

	if raw := ctx.Query("paid"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondBadRequest(ctx, "paid must be a boolean")
			return
		}
		filter.Paid = &v
	}

	if raw := ctx.Query("onlyAvailable"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			RespondBadRequest(ctx, "onlyAvailable must be a boolean")
			return
		}
		filter.OnlyAvailable = v
	}

	if raw := ctx.Query("sort"); raw != "" {
		switch event.Sort(raw) {
		case event.SortEventDate, event.SortViews:
			filter.Sort = event.Sort(raw)
		default:
			RespondBadRequest(ctx, "sort must be EVENT_DATE or VIEWS")
			return
		}
	}

	filter.RangeStart, err = parseOptionalTime(ctx.Query("rangeStart"))
	if err != nil {
		RespondBadRequest(ctx, "rangeStart must use format "+stats.DateTimeLayout)
		return
	}

	filter.RangeEnd, err = parseOptionalTime(ctx.Query("rangeEnd"))
	if err != nil {
		RespondBadRequest(ctx, "rangeEnd must use format "+stats.DateTimeLayout)
		return
	}

	if filter.RangeStart != nil && filter.RangeEnd != nil && filter.RangeStart.After(*filter.RangeEnd) {
		RespondBadRequest(ctx, "rangeStart must not be after rangeEnd")
		return
	}

	// no window means "upcoming events only"
	if filter.RangeStart == nil && filter.RangeEnd == nil {
		now := time.Now()
		filter.RangeStart = &now
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	events, err := h.repo.SearchPublic(cctx, filter)
	if err != nil {
		RespondInternal(ctx, "Could not search events")
		return
	}

	// Each listed event counts as a view of its page, so view counts and
	// sort=VIEWS also reflect events only ever seen through listings.
	for _, e := range events {
		h.stats.Hit(ctx.Request.Context(), statsclient.EventURI(e.ID), ctx.ClientIP())
	}

	views := h.viewsFor(cctx, events)

	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{Event: e, Views: views[e.ID]})
	}

	if filter.Sort == event.SortViews {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Views > out[j].Views
		})
	}

	ctx.JSON(http.StatusOK, out)
}

func (h *EventsHandler) GetPublic(ctx *gin.Context) {
	eventID := ctx.Param("eventId")

	cctx, cancel := config.WithTimeout(2 * time.Second)
	defer cancel()

	e, err := h.repo.GetPublishedByID(cctx, eventID)
	if err != nil {
		if errors.Is(err, event.ErrNotFound) {
			RespondNotFound(ctx, "Event with id="+eventID+" was not found")
			return
		}
		RespondInternal(ctx, "Could not fetch event")
		return
	}

	h.stats.Hit(ctx.Request.Context(), ctx.Request.URL.Path, ctx.ClientIP())

	views := h.viewsFor(cctx, []event.Event{e})

	RespondJSONWithETag(ctx, http.StatusOK, eventView{Event: e, Views: views[e.ID]})
}

// viewsFor resolves unique view counts per event, consulting the redis cache
// first. A stats outage degrades every count to zero.
func (h *EventsHandler) viewsFor(ctx context.Context, events []event.Event) map[string]int64 {
	out := make(map[string]int64, len(events))
	if len(events) == 0 {
		return out
	}

	missing := make([]event.Event, 0, len(events))
	for _, e := range events {
		if h.viewCache != nil {
			if views, ok := h.viewCache.Get(ctx, e.ID); ok {
				out[e.ID] = views
				continue
			}
		}
		missing = append(missing, e)
	}

	if len(missing) == 0 {
		return out
	}

	start := missing[0].CreatedOn
	uris := make([]string, 0, len(missing))
	uriToID := make(map[string]string, len(missing))

	for _, e := range missing {
		uri := statsclient.EventURI(e.ID)
		uris = append(uris, uri)
		uriToID[uri] = e.ID
		if e.CreatedOn.Before(start) {
			start = e.CreatedOn
		}
	}

	views := h.stats.Views(ctx, uris, start, time.Now(), true)

	for uri, hits := range views {
		if id, ok := uriToID[uri]; ok {
			out[id] = hits
			if h.viewCache != nil {
				h.viewCache.Set(ctx, id, hits)
			}
		}
	}

	return out
}

func respondEventStateError(ctx *gin.Context, err error) {
	var validationErr *event.ValidationError

	switch {
	case errors.As(err, &validationErr):
		RespondBadRequest(ctx, validationErr.Error())
	case errors.Is(err, event.ErrDateInPast):
		RespondBadRequest(ctx, "Event date cannot be in the past")
	case errors.Is(err, event.ErrAlreadyPublished):
		RespondConflict(ctx, "Cannot change the event because it is already published")
	case errors.Is(err, event.ErrNotPending):
		RespondConflict(ctx, "Cannot publish the event because it is not in the right state: PENDING")
	case errors.Is(err, event.ErrDateTooSoon):
		RespondConflict(ctx, "Cannot publish the event because the event date is less than one hour away")
	default:
		RespondInternal(ctx, "Could not update event")
	}
}

func parseOptionalTime(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}

	t, err := time.Parse(stats.DateTimeLayout, raw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}
