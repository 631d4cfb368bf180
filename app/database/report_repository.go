package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var _ ReportRepository = (*ReportRepo)(nil)

type ReportRepo struct {
	db *DB
}

func NewReportRepository(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

func (r *ReportRepo) CreateReport(ctx context.Context, profile []byte) (int64, error) {
	now := time.Now().Unix()

	var id int64
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		INSERT INTO reports (status, profile, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`), string(ReportStatusPending), string(profile), now, now).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create report: %w", err)
	}

	return id, nil
}

func (r *ReportRepo) GetReport(ctx context.Context, id int64) (*Report, error) {
	var (
		report               Report
		status, profile      string
		content, errMessage  sql.NullString
		createdAt, updatedAt int64
	)

	err := r.db.QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, status, profile, content, error_message, created_at, updated_at
		FROM reports WHERE id = ?
	`), id).Scan(&report.ID, &status, &profile, &content, &errMessage, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("report %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	st, ok := ParseReportStatus(status)
	if !ok {
		return nil, fmt.Errorf("report %d has unknown status %q", id, status)
	}

	report.Status = st
	report.Profile = []byte(profile)
	if content.Valid {
		report.Content = &content.String
	}
	if errMessage.Valid {
		report.ErrorMessage = &errMessage.String
	}
	report.CreatedAt = time.Unix(createdAt, 0)
	report.UpdatedAt = time.Unix(updatedAt, 0)

	return &report, nil
}

func (r *ReportRepo) MarkReportRunning(ctx context.Context, id int64) error {
	return r.transition(ctx, id, ReportStatusPending, ReportStatusRunning, "", nil)
}

func (r *ReportRepo) CompleteReport(ctx context.Context, id int64, content string) error {
	return r.transition(ctx, id, ReportStatusRunning, ReportStatusCompleted, "content", content)
}

func (r *ReportRepo) FailReport(ctx context.Context, id int64, message string) error {
	return r.transition(ctx, id, ReportStatusRunning, ReportStatusFailed, "error_message", message)
}

// transition moves a report from one status to the next in a single
// conditional update, optionally setting one extra column. It fails with
// ErrInvalidTransition when the report is not in the expected status.
func (r *ReportRepo) transition(ctx context.Context, id int64, from, to ReportStatus, column string, value any) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, ErrInvalidTransition)
	}

	set := `status = ?, updated_at = ?`
	args := []any{string(to), time.Now().Unix()}
	if column != "" {
		set += `, ` + column + ` = ?`
		args = append(args, value)
	}
	args = append(args, id, string(from))

	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE reports SET `+set+` WHERE id = ? AND status = ?`), args...)
	if err != nil {
		return fmt.Errorf("failed to update report %d to %s: %w", id, to, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 1 {
		return nil
	}

	current, err := r.GetReport(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("report %d is %s, cannot move %s -> %s: %w", id, current.Status, from, to, ErrInvalidTransition)
}
