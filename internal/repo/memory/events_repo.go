package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/afisha-dev/afisha/internal/domain/event"
)

// EventsRepo is the in-memory twin of the postgres repo. A single RWMutex is
// the serialization boundary the capacity ledger needs.
type EventsRepo struct {
	mu    sync.RWMutex
	items map[string]event.Event
}

func NewEventsRepo() *EventsRepo {
	return &EventsRepo{
		items: make(map[string]event.Event),
	}
}

func (r *EventsRepo) Create(_ context.Context, e event.Event) (event.Event, error) {
	r.mu.Lock()
	r.items[e.ID] = e
	r.mu.Unlock()

	return e, nil
}

func (r *EventsRepo) GetByID(_ context.Context, id string) (event.Event, error) {
	r.mu.RLock()
	e, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return event.Event{}, event.ErrNotFound
	}

	return e, nil
}

func (r *EventsRepo) GetPublishedByID(_ context.Context, id string) (event.Event, error) {
	e, err := r.GetByID(nil, id)
	if err != nil {
		return event.Event{}, err
	}

	if e.State != event.StatePublished {
		return event.Event{}, event.ErrNotFound
	}

	return e, nil
}

func (r *EventsRepo) GetByIDAndInitiator(_ context.Context, id, initiatorID string) (event.Event, error) {
	e, err := r.GetByID(nil, id)
	if err != nil {
		return event.Event{}, err
	}

	if e.InitiatorID != initiatorID {
		return event.Event{}, event.ErrNotFound
	}

	return e, nil
}

func (r *EventsRepo) Save(_ context.Context, e event.Event) (event.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[e.ID]; !ok {
		return event.Event{}, event.ErrNotFound
	}

	r.items[e.ID] = e

	return e, nil
}

func (r *EventsRepo) ListByInitiator(_ context.Context, initiatorID string, from, size int) ([]event.Event, error) {
	r.mu.RLock()
	out := make([]event.Event, 0)
	for _, e := range r.items {
		if e.InitiatorID == initiatorID {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sortByDate(out)

	return page(out, from, size), nil
}

func (r *EventsRepo) SearchAdmin(_ context.Context, filter event.AdminFilter) ([]event.Event, error) {
	r.mu.RLock()
	out := make([]event.Event, 0)
	for _, e := range r.items {
		if matchesAdmin(e, filter) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sortByDate(out)

	return page(out, filter.From, filter.Size), nil
}

func (r *EventsRepo) SearchPublic(_ context.Context, filter event.PublicFilter) ([]event.Event, error) {
	r.mu.RLock()
	out := make([]event.Event, 0)
	for _, e := range r.items {
		if matchesPublic(e, filter) {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sortByDate(out)

	return page(out, filter.From, filter.Size), nil
}

func (r *EventsRepo) GetByIDs(_ context.Context, ids []string) ([]event.Event, error) {
	r.mu.RLock()
	out := make([]event.Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.items[id]; ok {
			out = append(out, e)
		}
	}
	r.mu.RUnlock()

	sortByDate(out)

	return out, nil
}

func matchesAdmin(e event.Event, f event.AdminFilter) bool {
	if len(f.Users) > 0 && !containsString(f.Users, e.InitiatorID) {
		return false
	}
	if len(f.States) > 0 && !containsState(f.States, e.State) {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, e.CategoryID) {
		return false
	}
	return inRange(e.EventDate, f.RangeStart, f.RangeEnd)
}

func matchesPublic(e event.Event, f event.PublicFilter) bool {
	if e.State != event.StatePublished {
		return false
	}
	if f.Text != nil && !matchesText(e, *f.Text) {
		return false
	}
	if len(f.Categories) > 0 && !containsString(f.Categories, e.CategoryID) {
		return false
	}
	if f.Paid != nil && e.Paid != *f.Paid {
		return false
	}
	if f.OnlyAvailable && !e.HasCapacity() {
		return false
	}
	return inRange(e.EventDate, f.RangeStart, f.RangeEnd)
}

func matchesText(e event.Event, text string) bool {
	needle := strings.ToLower(text)
	return strings.Contains(strings.ToLower(e.Title), needle) ||
		strings.Contains(strings.ToLower(e.Annotation), needle) ||
		strings.Contains(strings.ToLower(e.Description), needle)
}

func inRange(t time.Time, start, end *time.Time) bool {
	if start != nil && t.Before(*start) {
		return false
	}
	if end != nil && t.After(*end) {
		return false
	}
	return true
}

func containsString(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func containsState(xs []event.State, x event.State) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func sortByDate(events []event.Event) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].EventDate.Equal(events[j].EventDate) {
			return events[i].ID < events[j].ID
		}
		return events[i].EventDate.Before(events[j].EventDate)
	})
}

func page(events []event.Event, from, size int) []event.Event {
	if from >= len(events) {
		return []event.Event{}
	}
	end := from + size
	if size <= 0 || end > len(events) {
		end = len(events)
	}
	return events[from:end]
}
