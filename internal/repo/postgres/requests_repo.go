package postgres

import (
	"context"
	"errors"

	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/domain/request"
	"github.com/afisha-dev/afisha/internal/domain/user"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RequestsRepo owns every write to events.confirmed_requests. Reserve and
// release always happen in the same transaction as the request-status write,
// with the event row locked FOR UPDATE so concurrent confirmations cannot
// both see stale capacity.
type RequestsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewRequestsRepo(pool *pgxpool.Pool, prom *observability.Prom) *RequestsRepo {
	return &RequestsRepo{pool: pool, prom: prom}
}

func (repo *RequestsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *RequestsRepo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func lockEvent(ctx context.Context, tx pgx.Tx, eventID string) (event.Event, error) {
	var e event.Event
	err := tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID).
		Scan(&e.ID, &e.Title, &e.Annotation, &e.Description, &e.CategoryID,
			&e.InitiatorID, &e.EventDate, &e.Location.Lat, &e.Location.Lon, &e.Paid,
			&e.ParticipantLimit, &e.RequestModeration, &e.State, &e.CreatedOn,
			&e.PublishedOn, &e.ConfirmedRequests)

	if errors.Is(err, pgx.ErrNoRows) {
		return event.Event{}, event.ErrNotFound
	}

	return e, err
}

func setConfirmedCount(ctx context.Context, tx pgx.Tx, eventID string, count int) error {
	_, err := tx.Exec(ctx,
		`UPDATE events SET confirmed_requests = $2 WHERE id = $1`, eventID, count)
	return err
}

// Create runs the whole §create contract in one transaction: existence
// checks, publication check, duplicate check, capacity check and the
// optional auto-confirm increment.
func (repo *RequestsRepo) Create(ctx context.Context, requesterID, eventID string) (req request.ParticipationRequest, err error) {
	err = repo.observe("requests.create", func() error {
		return repo.inTx(ctx, func(tx pgx.Tx) error {
			var requesterExists bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, requesterID).Scan(&requesterExists); err != nil {
				return err
			}
			if !requesterExists {
				return user.ErrNotFound
			}

			e, err := lockEvent(ctx, tx, eventID)
			if err != nil {
				return err
			}

			if e.State != event.StatePublished {
				return request.ErrEventNotPublished
			}

			if e.InitiatorID == requesterID {
				return request.ErrOwnEvent
			}

			var duplicate bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS(
					SELECT 1 FROM requests
					WHERE requester_id = $1 AND event_id = $2 AND status <> 'CANCELED'
				)`, requesterID, eventID).Scan(&duplicate); err != nil {
				return err
			}
			if duplicate {
				return request.ErrDuplicate
			}

			if !e.HasCapacity() {
				return request.ErrLimitReached
			}

			status := request.InitialStatus(e)
			req = request.New(requesterID, eventID, status)

			if status == request.StatusConfirmed {
				e.Reserve()
				if err := setConfirmedCount(ctx, tx, e.ID, e.ConfirmedRequests); err != nil {
					return err
				}
			}

			_, err = tx.Exec(ctx,
				`INSERT INTO requests (id, event_id, requester_id, status, created)
				 VALUES ($1,$2,$3,$4,$5)`,
				req.ID, req.EventID, req.RequesterID, req.Status, req.Created)

			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return request.ErrDuplicate
			}

			return err
		})
	})

	if err != nil {
		return request.ParticipationRequest{}, err
	}

	return req, nil
}

// UpdateStatuses confirms or rejects the given pending requests, in the
// order supplied. The whole call is one transaction: the first conflict
// aborts it and nothing is committed.
func (repo *RequestsRepo) UpdateStatuses(ctx context.Context, initiatorID, eventID string, upd request.StatusUpdateRequest) (result request.StatusUpdateResult, err error) {
	err = repo.observe("requests.update_statuses", func() error {
		return repo.inTx(ctx, func(tx pgx.Tx) error {
			e, err := lockEvent(ctx, tx, eventID)
			if err != nil {
				return err
			}

			if e.InitiatorID != initiatorID {
				return request.ErrNotInitiator
			}

			if !e.RequestModeration {
				return request.ErrModerationDisabled
			}

			result = request.StatusUpdateResult{
				ConfirmedRequests: []request.ParticipationRequest{},
				RejectedRequests:  []request.ParticipationRequest{},
			}

			for _, id := range upd.RequestIDs {
				var r request.ParticipationRequest
				err := tx.QueryRow(ctx,
					`SELECT id, event_id, requester_id, status, created FROM requests WHERE id = $1`, id).
					Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Status, &r.Created)
				if errors.Is(err, pgx.ErrNoRows) {
					return request.ErrNotFound
				}
				if err != nil {
					return err
				}

				if r.EventID != eventID {
					return request.ErrNotFound
				}

				if r.Status != request.StatusPending {
					return request.ErrNotPending
				}

				if upd.Status == request.StatusConfirmed {
					if !e.Reserve() {
						return request.ErrLimitReached
					}
					r.Status = request.StatusConfirmed
					result.ConfirmedRequests = append(result.ConfirmedRequests, r)
				} else {
					r.Status = request.StatusRejected
					result.RejectedRequests = append(result.RejectedRequests, r)
				}

				if _, err := tx.Exec(ctx,
					`UPDATE requests SET status = $2 WHERE id = $1`, r.ID, r.Status); err != nil {
					return err
				}
			}

			return setConfirmedCount(ctx, tx, e.ID, e.ConfirmedRequests)
		})
	})

	if err != nil {
		return request.StatusUpdateResult{}, err
	}

	return result, nil
}

// Cancel is idempotent for already-canceled requests and releases a slot
// when a confirmed request is withdrawn.
func (repo *RequestsRepo) Cancel(ctx context.Context, requesterID, requestID string) (req request.ParticipationRequest, err error) {
	err = repo.observe("requests.cancel", func() error {
		return repo.inTx(ctx, func(tx pgx.Tx) error {
			var r request.ParticipationRequest
			err := tx.QueryRow(ctx,
				`SELECT id, event_id, requester_id, status, created
				 FROM requests WHERE id = $1 AND requester_id = $2`,
				requestID, requesterID).
				Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Status, &r.Created)
			if errors.Is(err, pgx.ErrNoRows) {
				return request.ErrNotFound
			}
			if err != nil {
				return err
			}

			switch r.Status {
			case request.StatusCanceled:
				req = r
				return nil
			case request.StatusRejected:
				return request.ErrAlreadyRejected
			case request.StatusConfirmed:
				e, err := lockEvent(ctx, tx, r.EventID)
				if err != nil {
					return err
				}
				e.Release()
				if err := setConfirmedCount(ctx, tx, e.ID, e.ConfirmedRequests); err != nil {
					return err
				}
			}

			r.Status = request.StatusCanceled
			if _, err := tx.Exec(ctx,
				`UPDATE requests SET status = $2 WHERE id = $1`, r.ID, r.Status); err != nil {
				return err
			}

			req = r
			return nil
		})
	})

	if err != nil {
		return request.ParticipationRequest{}, err
	}

	return req, nil
}

func (repo *RequestsRepo) ListByRequester(ctx context.Context, requesterID string) ([]request.ParticipationRequest, error) {
	var exists bool
	err := repo.observe("requests.list_by_requester.user_check", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, requesterID).Scan(&exists)
	})
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, user.ErrNotFound
	}

	var rows pgx.Rows
	err = repo.observe("requests.list_by_requester", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx,
			`SELECT id, event_id, requester_id, status, created
			 FROM requests
			 WHERE requester_id = $1
			 ORDER BY created ASC, id ASC`, requesterID)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRequests(rows)
}

// ListByEvent returns every request for an event; only the initiator may see
// them.
func (repo *RequestsRepo) ListByEvent(ctx context.Context, initiatorID, eventID string) ([]request.ParticipationRequest, error) {
	var e event.Event
	err := repo.observe("requests.list_by_event.event_check", func() error {
		var serr error
		e, serr = scanEvent(repo.pool.QueryRow(ctx,
			`SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID))
		return serr
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}

	if e.InitiatorID != initiatorID {
		return nil, request.ErrNotInitiator
	}

	var rows pgx.Rows
	err = repo.observe("requests.list_by_event", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx,
			`SELECT id, event_id, requester_id, status, created
			 FROM requests
			 WHERE event_id = $1
			 ORDER BY created ASC, id ASC`, eventID)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectRequests(rows)
}

func collectRequests(rows pgx.Rows) ([]request.ParticipationRequest, error) {
	out := make([]request.ParticipationRequest, 0)

	for rows.Next() {
		var r request.ParticipationRequest
		if err := rows.Scan(&r.ID, &r.EventID, &r.RequesterID, &r.Status, &r.Created); err != nil {
			return nil, err
		}
		out = append(out, r)
	}

	return out, rows.Err()
}
