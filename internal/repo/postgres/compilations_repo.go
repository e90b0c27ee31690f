package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/afisha-dev/afisha/internal/domain/compilation"
	"github.com/afisha-dev/afisha/internal/domain/event"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CompilationsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCompilationsRepo(pool *pgxpool.Pool, prom *observability.Prom) *CompilationsRepo {
	return &CompilationsRepo{pool: pool, prom: prom}
}

func (repo *CompilationsRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func replaceEvents(ctx context.Context, tx pgx.Tx, compilationID string, eventIDs []string) error {
	if _, err := tx.Exec(ctx,
		`DELETE FROM compilation_events WHERE compilation_id = $1`, compilationID); err != nil {
		return err
	}

	for _, eventID := range eventIDs {
		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return event.ErrNotFound
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO compilation_events (compilation_id, event_id) VALUES ($1,$2)
			 ON CONFLICT DO NOTHING`, compilationID, eventID); err != nil {
			return err
		}
	}

	return nil
}

func (repo *CompilationsRepo) loadEvents(ctx context.Context, compilationID string) ([]event.Event, error) {
	rows, err := repo.pool.Query(ctx,
		`SELECT `+eventColumns+`
		 FROM events
		 JOIN compilation_events ce ON ce.event_id = events.id
		 WHERE ce.compilation_id = $1
		 ORDER BY event_date ASC, events.id ASC`, compilationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows, 0)
}

func (repo *CompilationsRepo) Create(ctx context.Context, req compilation.CreateCompilationRequest) (compilation.Compilation, error) {
	c := compilation.NewFromCreateRequest(req)

	err := repo.observe("compilations.create", func() error {
		tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		if _, err := tx.Exec(ctx,
			`INSERT INTO compilations (id, title, pinned) VALUES ($1,$2,$3)`,
			c.ID, c.Title, c.Pinned); err != nil {
			return err
		}

		if err := replaceEvents(ctx, tx, c.ID, req.Events); err != nil {
			return err
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return compilation.Compilation{}, err
	}

	events, err := repo.loadEvents(ctx, c.ID)
	if err != nil {
		return compilation.Compilation{}, err
	}
	c.Events = events

	return c, nil
}

func (repo *CompilationsRepo) Update(ctx context.Context, id string, req compilation.UpdateCompilationRequest) (compilation.Compilation, error) {
	err := repo.observe("compilations.update", func() error {
		tx, err := repo.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		var exists bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM compilations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return compilation.ErrNotFound
		}

		if req.Title != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE compilations SET title = $2 WHERE id = $1`, id, *req.Title); err != nil {
				return err
			}
		}
		if req.Pinned != nil {
			if _, err := tx.Exec(ctx,
				`UPDATE compilations SET pinned = $2 WHERE id = $1`, id, *req.Pinned); err != nil {
				return err
			}
		}
		if req.Events != nil {
			if err := replaceEvents(ctx, tx, id, *req.Events); err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return compilation.Compilation{}, err
	}

	return repo.GetByID(ctx, id)
}

func (repo *CompilationsRepo) Delete(ctx context.Context, id string) error {
	return repo.observe("compilations.delete", func() error {
		tag, err := repo.pool.Exec(ctx, `DELETE FROM compilations WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return compilation.ErrNotFound
		}
		return nil
	})
}

func (repo *CompilationsRepo) GetByID(ctx context.Context, id string) (compilation.Compilation, error) {
	var c compilation.Compilation

	err := repo.observe("compilations.get_by_id", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT id, title, pinned FROM compilations WHERE id = $1`, id).
			Scan(&c.ID, &c.Title, &c.Pinned)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return compilation.Compilation{}, compilation.ErrNotFound
		}
		return compilation.Compilation{}, err
	}

	events, err := repo.loadEvents(ctx, c.ID)
	if err != nil {
		return compilation.Compilation{}, err
	}
	c.Events = events

	return c, nil
}

// List filters by pinned when given and pages with from/size.
func (repo *CompilationsRepo) List(ctx context.Context, pinned *bool, from, size int) ([]compilation.Compilation, error) {
	query := `SELECT id, title, pinned FROM compilations`
	args := []any{}
	argsPosition := 1

	if pinned != nil {
		query += ` WHERE pinned = $1`
		args = append(args, *pinned)
		argsPosition++
	}

	query += fmt.Sprintf(` ORDER BY title ASC, id ASC LIMIT $%d OFFSET $%d`, argsPosition, argsPosition+1)
	args = append(args, size, from)

	var rows pgx.Rows
	err := repo.observe("compilations.list", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, query, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	out := make([]compilation.Compilation, 0, size)
	for rows.Next() {
		var c compilation.Compilation
		if err := rows.Scan(&c.ID, &c.Title, &c.Pinned); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		events, err := repo.loadEvents(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Events = events
	}

	return out, nil
}
