package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `id, title, annotation, description, category_id, initiator_id,
	event_date, lat, lon, paid, participant_limit, request_moderation,
	state, created_on, published_on, confirmed_requests`

type EventsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewEventsRepo(pool *pgxpool.Pool, prom *observability.Prom) *EventsRepo {
	return &EventsRepo{pool: pool, prom: prom}
}

func (repo *EventsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func scanEvent(row pgx.Row) (event.Event, error) {
	var e event.Event
	err := row.Scan(&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID,
		&e.InitiatorID, &e.EventDate, &e.Location.Lat, &e.Location.Lon, &e.Paid,
		&e.ParticipantLimit, &e.RequestModeration, &e.State, &e.CreatedOn,
		&e.PublishedOn, &e.ConfirmedRequests)
	return e, err
}

func (repo *EventsRepo) Create(ctx context.Context, e event.Event) (event.Event, error) {
	err := repo.observe("events.create", func() error {
		_, err := repo.pool.Exec(ctx,
			`INSERT INTO events (id, title, annotation, description, category_id, initiator_id,
				event_date, lat, lon, paid, participant_limit, request_moderation,
				state, created_on, published_on, confirmed_requests)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
			e.ID, e.Title, e.Annotation, e.Description, e.CategoryID, e.InitiatorID,
			e.EventDate, e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit,
			e.RequestModeration, e.State, e.CreatedOn, e.PublishedOn, e.ConfirmedRequests)
		return err
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (repo *EventsRepo) GetByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	err := repo.observe("events.get_by_id", func() error {
		var serr error
		e, serr = scanEvent(repo.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
		return serr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// GetPublishedByID is the public lookup: anything not PUBLISHED is a 404.
func (repo *EventsRepo) GetPublishedByID(ctx context.Context, id string) (event.Event, error) {
	var e event.Event
	err := repo.observe("events.get_published_by_id", func() error {
		var serr error
		e, serr = scanEvent(repo.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1 AND state = $2`,
			id, event.StatePublished))
		return serr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

func (repo *EventsRepo) GetByIDAndInitiator(ctx context.Context, id, initiatorID string) (event.Event, error) {
	var e event.Event
	err := repo.observe("events.get_by_id_and_initiator", func() error {
		var serr error
		e, serr = scanEvent(repo.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1 AND initiator_id = $2`,
			id, initiatorID))
		return serr
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, err
	}

	return e, nil
}

// Save writes back every mutable column. Used after the domain applied an
// update or a state transition.
func (repo *EventsRepo) Save(ctx context.Context, e event.Event) (event.Event, error) {
	err := repo.observe("events.save", func() error {
		tag, err := repo.pool.Exec(ctx,
			`UPDATE events
				SET title = $2,
					annotation = $3,
					description = $4,
					category_id = $5,
					event_date = $6,
					lat = $7,
					lon = $8,
					paid = $9,
					participant_limit = $10,
					request_moderation = $11,
					state = $12,
					published_on = $13
			 WHERE id = $1`,
			e.ID, e.Title, e.Annotation, e.Description, e.CategoryID, e.EventDate,
			e.Location.Lat, e.Location.Lon, e.Paid, e.ParticipantLimit,
			e.RequestModeration, e.State, e.PublishedOn)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return event.ErrNotFound
		}
		return nil
	})

	if err != nil {
		return event.Event{}, err
	}

	return e, nil
}

func (repo *EventsRepo) ListByInitiator(ctx context.Context, initiatorID string, from, size int) ([]event.Event, error) {
	var rows pgx.Rows
	err := repo.observe("events.list_by_initiator", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx,
			`SELECT `+eventColumns+` FROM events
			 WHERE initiator_id = $1
			 ORDER BY event_date ASC, id ASC
			 LIMIT $2 OFFSET $3`,
			initiatorID, size, from)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows, size)
}

func (repo *EventsRepo) SearchAdmin(ctx context.Context, filter event.AdminFilter) ([]event.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`

	var conds []string
	var args []interface{}
	pos := 1

	if len(filter.Users) > 0 {
		conds = append(conds, fmt.Sprintf("initiator_id = ANY($%d)", pos))
		args = append(args, filter.Users)
		pos++
	}

	if len(filter.States) > 0 {
		states := make([]string, 0, len(filter.States))
		for _, s := range filter.States {
			states = append(states, string(s))
		}
		conds = append(conds, fmt.Sprintf("state = ANY($%d)", pos))
		args = append(args, states)
		pos++
	}

	if len(filter.Categories) > 0 {
		conds = append(conds, fmt.Sprintf("category_id = ANY($%d)", pos))
		args = append(args, filter.Categories)
		pos++
	}

	if filter.RangeStart != nil {
		conds = append(conds, fmt.Sprintf("event_date >= $%d", pos))
		args = append(args, *filter.RangeStart)
		pos++
	}

	if filter.RangeEnd != nil {
		conds = append(conds, fmt.Sprintf("event_date <= $%d", pos))
		args = append(args, *filter.RangeEnd)
		pos++
	}

	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}

	// stable ordering for pagination
	q += fmt.Sprintf(" ORDER BY event_date ASC, id ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Size, filter.From)

	var rows pgx.Rows
	err := repo.observe("events.search_admin", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows, filter.Size)
}

func (repo *EventsRepo) SearchPublic(ctx context.Context, filter event.PublicFilter) ([]event.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`

	conds := []string{"state = 'PUBLISHED'"}
	var args []interface{}
	pos := 1

	if filter.Text != nil {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR annotation ILIKE $%d OR description ILIKE $%d)", pos, pos, pos))
		args = append(args, "%"+*filter.Text+"%")
		pos++
	}

	if len(filter.Categories) > 0 {
		conds = append(conds, fmt.Sprintf("category_id = ANY($%d)", pos))
		args = append(args, filter.Categories)
		pos++
	}

	if filter.Paid != nil {
		conds = append(conds, fmt.Sprintf("paid = $%d", pos))
		args = append(args, *filter.Paid)
		pos++
	}

	if filter.RangeStart != nil {
		conds = append(conds, fmt.Sprintf("event_date >= $%d", pos))
		args = append(args, *filter.RangeStart)
		pos++
	}

	if filter.RangeEnd != nil {
		conds = append(conds, fmt.Sprintf("event_date <= $%d", pos))
		args = append(args, *filter.RangeEnd)
		pos++
	}

	if filter.OnlyAvailable {
		conds = append(conds, "(participant_limit = 0 OR confirmed_requests < participant_limit)")
	}

	q += " WHERE " + strings.Join(conds, " AND ")
	q += fmt.Sprintf(" ORDER BY event_date ASC, id ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Size, filter.From)

	var rows pgx.Rows
	err := repo.observe("events.search_public", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows, filter.Size)
}

func (repo *EventsRepo) GetByIDs(ctx context.Context, ids []string) ([]event.Event, error) {
	if len(ids) == 0 {
		return []event.Event{}, nil
	}

	var rows pgx.Rows
	err := repo.observe("events.get_by_ids", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = ANY($1) ORDER BY event_date ASC, id ASC`, ids)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows, len(ids))
}

func collectEvents(rows pgx.Rows, capacity int) ([]event.Event, error) {
	out := make([]event.Event, 0, capacity)

	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}

	return out, rows.Err()
}
