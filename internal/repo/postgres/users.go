package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/afisha-dev/afisha/internal/domain/user"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (repo *UsersRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *UsersRepo) Create(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	u := user.NewFromCreateRequest(req)

	err := repo.observe("users.create", func() error {
		_, e := repo.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, created_at) VALUES ($1,$2,$3,$4)`,
			u.ID, u.Name, u.Email, u.CreatedAt)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (repo *UsersRepo) List(ctx context.Context, filter user.ListUsersFilter) ([]user.User, error) {
	q := `SELECT id, name, email, created_at FROM users`

	var args []interface{}
	pos := 1

	if len(filter.IDs) > 0 {
		q += fmt.Sprintf(" WHERE id = ANY($%d)", pos)
		args = append(args, filter.IDs)
		pos++
	}

	q += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", pos, pos+1)
	args = append(args, filter.Size, filter.From)

	var rows pgx.Rows
	err := repo.observe("users.list", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx, q, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0, filter.Size)
	for rows.Next() {
		var u user.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (repo *UsersRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := repo.observe("users.exists", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists)
	})
	return exists, err
}

func (repo *UsersRepo) Delete(ctx context.Context, id string) error {
	var tag pgconn.CommandTag
	err := repo.observe("users.delete", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return user.ErrInUse
		}
		return err
	}

	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}

	return nil
}
