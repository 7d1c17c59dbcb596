package turso

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pm33/abtest/internal/domain"
	"github.com/pm33/abtest/internal/util"
)

type TestRepository struct {
	db *sql.DB
}

func NewTestRepository(db *sql.DB) *TestRepository {
	return &TestRepository{db: db}
}

func (r *TestRepository) Create(ctx context.Context, test *domain.Test) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tests (id, name, description, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, test.ID, test.Name, util.NullStringPtr(test.Description),
		util.BoolToInt64(test.IsActive), test.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert test: %w", err)
	}

	if err := insertVariants(ctx, tx, test.ID, test.Variants); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TestRepository) GetByID(ctx context.Context, id string) (*domain.Test, error) {
	return r.getOne(ctx, `SELECT id, name, description, is_active, created_at FROM tests WHERE id = ?`, id)
}

func (r *TestRepository) GetByName(ctx context.Context, name string) (*domain.Test, error) {
	return r.getOne(ctx, `SELECT id, name, description, is_active, created_at FROM tests WHERE name = ?`, name)
}

func (r *TestRepository) getOne(ctx context.Context, query, arg string) (*domain.Test, error) {
	row := r.db.QueryRowContext(ctx, query, arg)

	test, err := scanTest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get test: %w", err)
	}

	if err := r.loadVariants(ctx, test); err != nil {
		return nil, err
	}
	return test, nil
}

func (r *TestRepository) List(ctx context.Context) ([]*domain.Test, error) {
	return r.list(ctx, `SELECT id, name, description, is_active, created_at FROM tests ORDER BY created_at DESC`)
}

func (r *TestRepository) ListActive(ctx context.Context) ([]*domain.Test, error) {
	return r.list(ctx, `SELECT id, name, description, is_active, created_at FROM tests WHERE is_active = 1 ORDER BY created_at DESC`)
}

func (r *TestRepository) list(ctx context.Context, query string) ([]*domain.Test, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tests: %w", err)
	}
	defer rows.Close()

	var tests []*domain.Test
	for rows.Next() {
		test, err := scanTest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test: %w", err)
		}
		tests = append(tests, test)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, test := range tests {
		if err := r.loadVariants(ctx, test); err != nil {
			return nil, err
		}
	}
	return tests, nil
}

// Update replaces the test row and its full variant set.
func (r *TestRepository) Update(ctx context.Context, test *domain.Test) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE tests SET name = ?, description = ?, is_active = ? WHERE id = ?
	`, test.Name, util.NullStringPtr(test.Description), util.BoolToInt64(test.IsActive), test.ID)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "test", ID: test.ID}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM variants WHERE test_id = ?`, test.ID); err != nil {
		return fmt.Errorf("failed to clear variants: %w", err)
	}
	if err := insertVariants(ctx, tx, test.ID, test.Variants); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *TestRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tests WHERE id = ?`, id)
	return err
}

func (r *TestRepository) Activate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, 1)
}

func (r *TestRepository) Deactivate(ctx context.Context, id string) error {
	return r.setActive(ctx, id, 0)
}

func (r *TestRepository) setActive(ctx context.Context, id string, active int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tests SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update test: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Kind: "test", ID: id}
	}
	return nil
}

func (r *TestRepository) loadVariants(ctx context.Context, test *domain.Test) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, weight, payload FROM variants WHERE test_id = ? ORDER BY position
	`, test.ID)
	if err != nil {
		return fmt.Errorf("failed to load variants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var v domain.Variant
		if err := rows.Scan(&v.ID, &v.Weight, &v.Payload); err != nil {
			return fmt.Errorf("failed to scan variant: %w", err)
		}
		test.Variants = append(test.Variants, v)
	}
	return rows.Err()
}

func insertVariants(ctx context.Context, tx *sql.Tx, testID string, variants []domain.Variant) error {
	for i, v := range variants {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO variants (test_id, id, weight, payload, position)
			VALUES (?, ?, ?, ?, ?)
		`, testID, v.ID, v.Weight, v.Payload, i)
		if err != nil {
			return fmt.Errorf("failed to insert variant %s: %w", v.ID, err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTest(row rowScanner) (*domain.Test, error) {
	var (
		test        domain.Test
		description sql.NullString
		isActive    int64
		createdAt   string
	)
	if err := row.Scan(&test.ID, &test.Name, &description, &isActive, &createdAt); err != nil {
		return nil, err
	}
	test.Description = util.NullStringToPtr(description)
	test.IsActive = isActive == 1
	test.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &test, nil
}
