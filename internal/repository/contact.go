package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/attec/attec-api/internal/model"
)

// ErrSubmissionNotFound is returned when no submission has the given id.
var ErrSubmissionNotFound = errors.New("contact submission not found")

const submissionColumns = `id::text, name, email, company, message, status::text, ip_address, user_agent,
	assigned_to, notes, submitted_at, created_at, updated_at`

// CreateSubmission inserts a new contact submission.
func (r *Repository) CreateSubmission(ctx context.Context, s *model.ContactSubmission) error {
	query := `
		INSERT INTO contact_submissions (
			id, name, email, company, message, status, ip_address, user_agent,
			assigned_to, notes, submitted_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6::contact_status, $7, $8, $9, $10, $11, $12, $13)
	`

	now := r.now().UTC()
	if s.Status == "" {
		s.Status = model.ContactStatusNew
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = now
	}
	s.CreatedAt = now
	s.UpdatedAt = now

	_, err := r.pool.Exec(ctx, query,
		s.ID,
		s.Name,
		s.Email,
		s.Company,
		s.Message,
		string(s.Status),
		nullableString(s.IPAddress),
		nullableString(s.UserAgent),
		s.AssignedTo,
		s.Notes,
		s.SubmittedAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create contact submission: %w", err)
	}

	return nil
}

// GetSubmission retrieves a submission by id.
func (r *Repository) GetSubmission(ctx context.Context, id string) (*model.ContactSubmission, error) {
	if !validUUID(id) {
		return nil, ErrSubmissionNotFound
	}

	query := `SELECT ` + submissionColumns + ` FROM contact_submissions WHERE id = $1`

	s, err := scanSubmission(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to get contact submission: %w", err)
	}

	return s, nil
}

// ListSubmissions returns one page of submissions, newest first, and the
// total number matching the filter.
func (r *Repository) ListSubmissions(ctx context.Context, filter model.ContactFilter) ([]*model.ContactSubmission, int64, error) {
	where := ""
	args := []any{}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = ` WHERE status::text = ANY($1)`
		args = append(args, pq.Array(statuses))
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contact_submissions`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count contact submissions: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM contact_submissions%s
		ORDER BY submitted_at DESC, id DESC
		OFFSET $%d LIMIT $%d`, submissionColumns, where, len(args)+1, len(args)+2)
	args = append(args, filter.Skip, filter.Limit)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list contact submissions: %w", err)
	}
	defer rows.Close()

	items := make([]*model.ContactSubmission, 0, filter.Limit)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan contact submission: %w", err)
		}
		items = append(items, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating contact submissions: %w", err)
	}

	return items, total, nil
}

// UpdateSubmission applies update to the submission with id and returns
// the updated row.
func (r *Repository) UpdateSubmission(ctx context.Context, id string, update model.ContactUpdate) (*model.ContactSubmission, error) {
	if !validUUID(id) {
		return nil, ErrSubmissionNotFound
	}

	var status *string
	if update.Status != nil {
		s := string(*update.Status)
		status = &s
	}

	query := `
		UPDATE contact_submissions
		SET status = COALESCE($2::contact_status, status),
		    assigned_to = COALESCE($3, assigned_to),
		    notes = COALESCE($4, notes),
		    updated_at = $5
		WHERE id = $1
		RETURNING ` + submissionColumns

	s, err := scanSubmission(r.pool.QueryRow(ctx, query,
		id,
		status,
		update.AssignedTo,
		update.Notes,
		r.now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("failed to update contact submission: %w", err)
	}

	return s, nil
}

// CountSubmissions counts submissions made in [from, to).
func (r *Repository) CountSubmissions(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM contact_submissions WHERE submitted_at >= $1 AND submitted_at < $2`,
		from, to,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count contact submissions: %w", err)
	}
	return n, nil
}

// CountSubmissionsByStatus counts submissions made in [from, to) per status.
// Statuses without submissions are absent from the map.
func (r *Repository) CountSubmissionsByStatus(ctx context.Context, from, to time.Time) (map[model.ContactStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status::text, COUNT(*)
		FROM contact_submissions
		WHERE submitted_at >= $1 AND submitted_at < $2
		GROUP BY status
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to count submissions by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ContactStatus]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[model.ContactStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	return counts, nil
}

func scanSubmission(row pgx.Row) (*model.ContactSubmission, error) {
	var (
		s         model.ContactSubmission
		status    string
		ip, agent *string
	)
	err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.Company,
		&s.Message,
		&status,
		&ip,
		&agent,
		&s.AssignedTo,
		&s.Notes,
		&s.SubmittedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.Status = model.ContactStatus(status)
	s.IPAddress = stringOrEmpty(ip)
	s.UserAgent = stringOrEmpty(agent)

	return &s, nil
}
