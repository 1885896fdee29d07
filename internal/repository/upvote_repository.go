package repository

import (
	"context"
	"database/sql"

	"issue-service/internal/model"

	"github.com/google/uuid"
)

type UpvoteRepository struct {
	db *sql.DB
}

func NewUpvoteRepository(db *sql.DB) *UpvoteRepository {
	return &UpvoteRepository{db: db}
}

// Record inserts the upvote and recounts the issue's counter from the
// ledger in the same transaction. The partial unique indexes on upvotes
// reject a second vote from the same identity with ErrDuplicate, so two
// racing requests cannot both succeed. The issue row is locked first so the
// recount sees every vote committed before this one.
func (r *UpvoteRepository) Record(ctx context.Context, v *model.Upvote) (int, error) {
	var count int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockIssue(ctx, tx, v.IssueID); err != nil {
			return err
		}

		var ip sql.NullString
		if v.UserID == nil {
			ip = sql.NullString{String: v.IPAddress, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO upvotes (id, issue_id, user_id, ip_address, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, v.ID, v.IssueID, v.UserID, ip, v.CreatedAt)
		if err != nil {
			return translate(err)
		}

		count, err = recount(ctx, tx, v.IssueID)
		if err != nil {
			return err
		}

		return enqueue(ctx, tx, model.EventIssueUpvoted, model.IssueEvent{
			IssueID:   v.IssueID,
			Upvotes:   count,
			Timestamp: v.CreatedAt.Unix(),
		})
	})
	return count, err
}

// Recount repairs the denormalized counter from the ledger.
func (r *UpvoteRepository) Recount(ctx context.Context, issueID uuid.UUID) (int, error) {
	var count int
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockIssue(ctx, tx, issueID); err != nil {
			return err
		}
		var err error
		count, err = recount(ctx, tx, issueID)
		return err
	})
	return count, err
}

// HasVoted reports whether the identity already upvoted the issue.
func (r *UpvoteRepository) HasVoted(ctx context.Context, issueID uuid.UUID, userID *uuid.UUID, ip string) (bool, error) {
	var exists bool
	var err error
	if userID != nil {
		err = r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM upvotes WHERE issue_id = $1 AND user_id = $2)`, issueID, *userID).Scan(&exists)
	} else {
		err = r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM upvotes WHERE issue_id = $1 AND user_id IS NULL AND ip_address = $2)`, issueID, ip).Scan(&exists)
	}
	return exists, err
}

// lockIssue serializes counter writers on the issue row. Statements after
// it take a fresh snapshot under read committed.
func lockIssue(ctx context.Context, tx *sql.Tx, issueID uuid.UUID) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM issues WHERE id = $1 FOR UPDATE`, issueID).Scan(&one)
	return translate(err)
}

func recount(ctx context.Context, tx *sql.Tx, issueID uuid.UUID) (int, error) {
	var count int
	err := tx.QueryRowContext(ctx, `
		UPDATE issues
		SET upvotes = (SELECT COUNT(*) FROM upvotes WHERE issue_id = $1)
		WHERE id = $1
		RETURNING upvotes
	`, issueID).Scan(&count)
	if err != nil {
		return 0, translate(err)
	}
	return count, nil
}
