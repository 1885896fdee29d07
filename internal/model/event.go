package model

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys for issue domain events.
const (
	EventIssueCreated       = "issue.created"
	EventIssueUpdated       = "issue.updated"
	EventIssueStatusUpdated = "issue.status.updated"
	EventIssueUpvoted       = "issue.upvoted"
	EventIssueEscalated     = "issue.escalated"
)

type IssueEvent struct {
	IssueID        uuid.UUID   `json:"issue_id"`
	IssueNumber    string      `json:"issue_number"`
	Title          string      `json:"title"`
	Status         IssueStatus `json:"status"`
	PreviousStatus IssueStatus `json:"previous_status,omitempty"`
	CategoryID     uuid.UUID   `json:"category_id"`
	ReporterID     *uuid.UUID  `json:"reporter_id,omitempty"`
	Upvotes        int         `json:"upvotes"`
	AssignedTo     []uuid.UUID `json:"assigned_to,omitempty"`
	ActorRole      Role        `json:"actor_role,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

func NewIssueEvent(issue *Issue, at time.Time) IssueEvent {
	ev := IssueEvent{
		IssueID:     issue.ID,
		IssueNumber: issue.IssueID,
		Title:       issue.Title,
		Status:      issue.Status,
		CategoryID:  issue.CategoryID,
		Upvotes:     issue.Upvotes,
		AssignedTo:  issue.AssignedOfficials,
		Timestamp:   at.Unix(),
	}
	if !issue.IsAnonymous {
		ev.ReporterID = issue.UserID
	}
	return ev
}
