package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"issue-service/internal/model"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type IssueRepository struct {
	db *sql.DB
}

func NewIssueRepository(db *sql.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

const issueColumns = `
	i.id, i.issue_id, i.title, i.description, i.status, i.priority, i.location, i.media,
	i.is_anonymous, i.reporter_name, i.upvotes, i.user_id, i.category_id, i.subcategory_id,
	i.assigned_officials, i.assigned_authority_id, i.authority_contacts, i.representatives,
	i.resolution_notes, i.resolution_media, i.rejection_reason,
	i.resolved_at, i.verified_at, i.escalated_at, i.escalated_to, i.created_at, i.updated_at,
	c.name, s.name
`

const issueFrom = `
	FROM issues i
	JOIN categories c ON c.id = i.category_id
	JOIN subcategories s ON s.id = i.subcategory_id
`

// FormatIssueNumber renders the human-readable id, e.g. JR-2026-0042.
func FormatIssueNumber(year int, seq int64) string {
	return fmt.Sprintf("JR-%d-%04d", year, seq)
}

// Create assigns the next issue number, inserts the issue and queues the
// created event in one transaction.
func (r *IssueRepository) Create(ctx context.Context, issue *model.Issue) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT nextval('issue_number_seq')`).Scan(&seq); err != nil {
			return fmt.Errorf("next issue number: %w", err)
		}
		issue.IssueID = FormatIssueNumber(issue.CreatedAt.Year(), seq)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO issues (id, issue_id, title, description, status, priority, location, media,
				is_anonymous, reporter_name, upvotes, user_id, category_id, subcategory_id,
				assigned_officials, assigned_authority_id, authority_contacts, representatives,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 0, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, issue.ID, issue.IssueID, issue.Title, issue.Description, issue.Status, issue.Priority,
			issue.Location, textArray(issue.Media), issue.IsAnonymous, issue.ReporterName,
			issue.UserID, issue.CategoryID, issue.SubcategoryID,
			pq.Array(uuidStrings(issue.AssignedOfficials)), issue.AssignedAuthorityID,
			issue.AuthorityContacts, issue.Representatives, issue.CreatedAt, issue.UpdatedAt)
		if err != nil {
			return translate(err)
		}

		return enqueue(ctx, tx, model.EventIssueCreated, model.NewIssueEvent(issue, issue.CreatedAt))
	})
}

func (r *IssueRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Issue, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+issueColumns+issueFrom+` WHERE i.id = $1`, id)
	if err != nil {
		return nil, err
	}
	issues, err := scanIssues(rows)
	if err != nil {
		return nil, err
	}
	if len(issues) == 0 {
		return nil, ErrNotFound
	}
	return &issues[0], nil
}

// GetByIDs returns the issues in the order of ids, skipping unknown ids.
func (r *IssueRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Issue, error) {
	if len(ids) == 0 {
		return []model.Issue{}, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+issueColumns+issueFrom+` WHERE i.id = ANY($1::uuid[])`,
		pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, err
	}
	issues, err := scanIssues(rows)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]model.Issue, len(issues))
	for _, is := range issues {
		byID[is.ID] = is
	}
	ordered := make([]model.Issue, 0, len(issues))
	for _, id := range ids {
		if is, ok := byID[id]; ok {
			ordered = append(ordered, is)
		}
	}
	return ordered, nil
}

// List filters and pages issues. Query is matched with ILIKE against title,
// description and address; it is the fallback when the search index is down.
func (r *IssueRepository) List(ctx context.Context, f model.IssueFilter) ([]model.Issue, int, error) {
	var conds []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("i.status = $%d", f.Status)
	}
	if f.CategoryID != nil {
		add("i.category_id = $%d", *f.CategoryID)
	}
	if f.SubcategoryID != nil {
		add("i.subcategory_id = $%d", *f.SubcategoryID)
	}
	if f.Priority != "" {
		add("i.priority = $%d", f.Priority)
	}
	if f.UserID != nil {
		add("i.user_id = $%d", *f.UserID)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		args = append(args, pattern)
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(i.title ILIKE $%d OR i.description ILIKE $%d OR i.location->>'address' ILIKE $%d OR i.issue_id ILIKE $%d)", n, n, n, n))
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues i`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "i.created_at DESC"
	switch f.Sort {
	case "upvotes":
		order = "i.upvotes DESC, i.created_at DESC"
	case "oldest":
		order = "i.created_at ASC"
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`SELECT %s %s %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		issueColumns, issueFrom, where, order, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	issues, err := scanIssues(rows)
	return issues, total, err
}

// Update writes the reporter-editable fields.
func (r *IssueRepository) Update(ctx context.Context, issue *model.Issue) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE issues
			SET title = $2, description = $3, priority = $4, media = $5, updated_at = $6
			WHERE id = $1
		`, issue.ID, issue.Title, issue.Description, issue.Priority, textArray(issue.Media), issue.UpdatedAt)
		if err := affected(res, err); err != nil {
			return err
		}
		return enqueue(ctx, tx, model.EventIssueUpdated, model.NewIssueEvent(issue, issue.UpdatedAt))
	})
}

// UpdateStatus persists a transition only if the stored status still equals
// expected. A concurrent change yields ErrStaleStatus.
func (r *IssueRepository) UpdateStatus(ctx context.Context, issue *model.Issue, expected model.IssueStatus, actor model.Role) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE issues
			SET status = $3, resolution_notes = $4, resolution_media = $5, rejection_reason = $6,
				resolved_at = $7, verified_at = $8, updated_at = $9
			WHERE id = $1 AND status = $2
		`, issue.ID, expected, issue.Status, issue.ResolutionNotes, textArray(issue.ResolutionMedia),
			issue.RejectionReason, issue.ResolvedAt, issue.VerifiedAt, issue.UpdatedAt)
		if err != nil {
			return translate(err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			var exists bool
			if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM issues WHERE id = $1)`, issue.ID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return ErrNotFound
			}
			return ErrStaleStatus
		}

		ev := model.NewIssueEvent(issue, issue.UpdatedAt)
		ev.PreviousStatus = expected
		ev.ActorRole = actor
		return enqueue(ctx, tx, model.EventIssueStatusUpdated, ev)
	})
}

func (r *IssueRepository) Escalate(ctx context.Context, issue *model.Issue) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE issues SET escalated_at = $2, escalated_to = $3, updated_at = $2 WHERE id = $1
		`, issue.ID, issue.EscalatedAt, issue.EscalatedTo)
		if err := affected(res, err); err != nil {
			return err
		}
		return enqueue(ctx, tx, model.EventIssueEscalated, model.NewIssueEvent(issue, *issue.EscalatedAt))
	})
}

func (r *IssueRepository) AddComment(ctx context.Context, c *model.Comment) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, issue_id, content, is_official, is_internal, user_id, official_id, author_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, c.ID, c.IssueID, c.Content, c.IsOfficial, c.IsInternal, c.UserID, c.OfficialID, c.AuthorName, c.CreatedAt)
	return translate(err)
}

func (r *IssueRepository) ListComments(ctx context.Context, issueID uuid.UUID, includeInternal bool) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, issue_id, content, is_official, is_internal, user_id, official_id, author_name, created_at
		FROM comments
		WHERE issue_id = $1 AND ($2 OR NOT is_internal)
		ORDER BY created_at
	`, issueID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		var userID, officialID uuid.NullUUID
		if err := rows.Scan(&c.ID, &c.IssueID, &c.Content, &c.IsOfficial, &c.IsInternal,
			&userID, &officialID, &c.AuthorName, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.UserID = nullUUIDPtr(userID)
		c.OfficialID = nullUUIDPtr(officialID)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func scanIssues(rows *sql.Rows) ([]model.Issue, error) {
	defer rows.Close()

	issues := []model.Issue{}
	for rows.Next() {
		var is model.Issue
		var userID, authorityID, escalatedTo uuid.NullUUID
		var assigned []string
		var notes, reason sql.NullString
		var resolvedAt, verifiedAt, escalatedAt sql.NullTime
		var categoryName, subcategoryName string

		err := rows.Scan(
			&is.ID, &is.IssueID, &is.Title, &is.Description, &is.Status, &is.Priority, &is.Location,
			pq.Array(&is.Media), &is.IsAnonymous, &is.ReporterName, &is.Upvotes, &userID,
			&is.CategoryID, &is.SubcategoryID, pq.Array(&assigned), &authorityID,
			&is.AuthorityContacts, &is.Representatives, &notes, pq.Array(&is.ResolutionMedia), &reason,
			&resolvedAt, &verifiedAt, &escalatedAt, &escalatedTo, &is.CreatedAt, &is.UpdatedAt,
			&categoryName, &subcategoryName,
		)
		if err != nil {
			return nil, err
		}

		is.UserID = nullUUIDPtr(userID)
		is.AssignedAuthorityID = nullUUIDPtr(authorityID)
		is.EscalatedTo = nullUUIDPtr(escalatedTo)
		is.AssignedOfficials = parseUUIDs(assigned)
		is.ResolutionNotes = nullStringPtr(notes)
		is.RejectionReason = nullStringPtr(reason)
		is.ResolvedAt = nullTimePtr(resolvedAt)
		is.VerifiedAt = nullTimePtr(verifiedAt)
		is.EscalatedAt = nullTimePtr(escalatedAt)
		is.Category = &model.Category{ID: is.CategoryID, Name: categoryName}
		is.Subcategory = &model.Subcategory{ID: is.SubcategoryID, CategoryID: is.CategoryID, Name: subcategoryName}
		if is.Media == nil {
			is.Media = []string{}
		}
		issues = append(issues, is)
	}
	return issues, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func nullUUIDPtr(n uuid.NullUUID) *uuid.UUID {
	if !n.Valid {
		return nil
	}
	id := n.UUID
	return &id
}

func nullStringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nullTimePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}
