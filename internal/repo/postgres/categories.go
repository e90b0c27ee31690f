package postgres

import (
	"context"
	"errors"

	"github.com/afisha-dev/afisha/internal/domain/category"
	"github.com/afisha-dev/afisha/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CategoriesRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewCategoriesRepo(pool *pgxpool.Pool, prom *observability.Prom) *CategoriesRepo {
	return &CategoriesRepo{pool: pool, prom: prom}
}

func (repo *CategoriesRepo) observe(op string, fn func() error) error {
	if repo.prom != nil {
		return repo.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (repo *CategoriesRepo) Create(ctx context.Context, req category.CreateCategoryRequest) (category.Category, error) {
	c := category.NewFromCreateRequest(req)

	err := repo.observe("categories.create", func() error {
		_, e := repo.pool.Exec(ctx,
			`INSERT INTO categories (id, name) VALUES ($1,$2)`, c.ID, c.Name)
		return e
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return category.Category{}, category.ErrNameTaken
		}
		return category.Category{}, err
	}

	return c, nil
}

func (repo *CategoriesRepo) Update(ctx context.Context, id string, req category.UpdateCategoryRequest) (category.Category, error) {
	var c category.Category

	err := repo.observe("categories.update", func() error {
		return repo.pool.QueryRow(ctx,
			`UPDATE categories SET name = $2 WHERE id = $1 RETURNING id, name`,
			id, req.Name).Scan(&c.ID, &c.Name)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return category.Category{}, category.ErrNameTaken
		}
		return category.Category{}, err
	}

	return c, nil
}

// Delete refuses to remove a category that still has events.
func (repo *CategoriesRepo) Delete(ctx context.Context, id string) error {
	var inUse bool
	err := repo.observe("categories.delete.in_use_check", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM events WHERE category_id = $1)`, id).Scan(&inUse)
	})
	if err != nil {
		return err
	}

	if inUse {
		return category.ErrInUse
	}

	var tag pgconn.CommandTag
	err = repo.observe("categories.delete", func() error {
		var e error
		tag, e = repo.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
		return e
	})
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}

	return nil
}

func (repo *CategoriesRepo) GetByID(ctx context.Context, id string) (category.Category, error) {
	var c category.Category
	err := repo.observe("categories.get_by_id", func() error {
		return repo.pool.QueryRow(ctx,
			`SELECT id, name FROM categories WHERE id = $1`, id).Scan(&c.ID, &c.Name)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return category.Category{}, category.ErrNotFound
		}
		return category.Category{}, err
	}

	return c, nil
}

func (repo *CategoriesRepo) List(ctx context.Context, from, size int) ([]category.Category, error) {
	var rows pgx.Rows
	err := repo.observe("categories.list", func() error {
		var qerr error
		rows, qerr = repo.pool.Query(ctx,
			`SELECT id, name FROM categories ORDER BY name ASC, id ASC LIMIT $1 OFFSET $2`,
			size, from)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]category.Category, 0, size)
	for rows.Next() {
		var c category.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}

	return out, rows.Err()
}
