package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

var _ CompanyRepository = (*CompanyRepo)(nil)

type CompanyRepo struct {
	db *DB
}

func NewCompanyRepository(db *DB) *CompanyRepo {
	return &CompanyRepo{db: db}
}

func (r *CompanyRepo) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, alias, created_at FROM companies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query companies: %w", err)
	}
	defer rows.Close()

	companies := []Company{}
	for rows.Next() {
		var (
			c         Company
			alias     sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &alias, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		c.Alias = alias.String
		c.CreatedAt = time.Unix(createdAt, 0)
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate companies: %w", err)
	}

	return companies, nil
}

// UpsertCompany inserts a company or replaces the alias of an existing one.
// An empty alias is stored as NULL.
func (r *CompanyRepo) UpsertCompany(ctx context.Context, name, alias string) error {
	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO companies (name, alias, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET alias = excluded.alias
	`), name, sql.NullString{String: alias, Valid: alias != ""}, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert company %s: %w", name, err)
	}
	return nil
}

func (r *CompanyRepo) GetCompanyCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count companies: %w", err)
	}
	return count, nil
}
