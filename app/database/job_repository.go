package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

var _ JobRepository = (*JobRepo)(nil)

// existingIDsChunk bounds the number of bind parameters per IN clause.
const existingIDsChunk = 500

const jobColumns = `id, company_name, job_title, employment_type, start_date, end_date,
	company_type, company_logo, apply_link, job_id, created_at`

type JobRepo struct {
	db *DB
}

func NewJobRepository(db *DB) *JobRepo {
	return &JobRepo{db: db}
}

// ExistingJobIDs returns which of the candidate job ids are already stored.
func (r *JobRepo) ExistingJobIDs(ctx context.Context, candidates []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{})

	for start := 0; start < len(candidates); start += existingIDsChunk {
		end := min(start+existingIDsChunk, len(candidates))
		chunk := candidates[start:end]

		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		query := r.db.Rebind(`SELECT job_id FROM jobs WHERE job_id IN (` + placeholders(len(chunk)) + `)`)
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to query existing job ids: %w", err)
		}

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan job id: %w", err)
			}
			existing[id] = struct{}{}
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate job ids: %w", err)
		}
	}

	return existing, nil
}

// UpsertNew persists postings whose job id is not stored yet and returns the
// number of affected rows. An empty input performs no database call.
//
// The existence check and the insert are not atomic: a posting stored by a
// concurrent run in between is overwritten by the ON CONFLICT clause.
func (r *JobRepo) UpsertNew(ctx context.Context, postings []Posting) (int64, error) {
	if len(postings) == 0 {
		return 0, nil
	}

	// Last occurrence of a job id within the batch wins.
	byID := make(map[string]int, len(postings))
	batch := make([]Posting, 0, len(postings))
	for _, p := range postings {
		if p.JobID == "" {
			slog.Warn("Skipping posting without job id", "company", p.CompanyName, "title", p.JobTitle)
			continue
		}
		if i, ok := byID[p.JobID]; ok {
			batch[i] = p
			continue
		}
		byID[p.JobID] = len(batch)
		batch = append(batch, p)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	ids := make([]string, len(batch))
	for i, p := range batch {
		ids[i] = p.JobID
	}

	existing, err := r.ExistingJobIDs(ctx, ids)
	if err != nil {
		return 0, err
	}

	fresh := make([]Posting, 0, len(batch))
	for _, p := range batch {
		if _, ok := existing[p.JobID]; !ok {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		slog.Debug("No new postings to store", "candidates", len(batch))
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(`
		INSERT INTO jobs (
			company_name, job_title, employment_type, start_date, end_date,
			company_type, company_logo, apply_link, job_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			company_name = excluded.company_name,
			job_title = excluded.job_title,
			employment_type = excluded.employment_type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			company_type = excluded.company_type,
			company_logo = excluded.company_logo,
			apply_link = excluded.apply_link
	`))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare job upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Unix()
	var affected int64
	for _, p := range fresh {
		res, err := stmt.ExecContext(ctx,
			p.CompanyName, p.JobTitle, p.EmploymentType, p.StartDate, p.EndDate,
			p.CompanyType, p.CompanyLogo, p.ApplyLink, p.JobID, now)
		if err != nil {
			return 0, fmt.Errorf("failed to upsert job %s: %w", p.JobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		affected += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit job upsert: %w", err)
	}

	return affected, nil
}

// Search returns jobs whose title or company name contains any of the
// keywords, newest first. LIKE wildcards inside keywords match literally.
func (r *JobRepo) Search(ctx context.Context, keywords []string, limit int) ([]Job, error) {
	if len(keywords) == 0 || limit <= 0 {
		return []Job{}, nil
	}

	conds := make([]string, 0, len(keywords))
	args := make([]any, 0, len(keywords)*2+1)
	for _, kw := range keywords {
		pattern := "%" + escapeLike(kw) + "%"
		conds = append(conds, `job_title LIKE ? ESCAPE '\' OR company_name LIKE ? ESCAPE '\'`)
		args = append(args, pattern, pattern)
	}
	args = append(args, limit)

	query := r.db.Rebind(`SELECT ` + jobColumns + ` FROM jobs WHERE ` +
		strings.Join(conds, " OR ") + ` ORDER BY id DESC LIMIT ?`)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		var (
			job       Job
			createdAt int64
		)
		err := rows.Scan(&job.ID, &job.CompanyName, &job.JobTitle, &job.EmploymentType,
			&job.StartDate, &job.EndDate, &job.CompanyType, &job.CompanyLogo,
			&job.ApplyLink, &job.JobID, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		job.CreatedAt = time.Unix(createdAt, 0)
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}

	return jobs, nil
}

func (r *JobRepo) GetJobCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
