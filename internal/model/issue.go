package model

import (
	"time"

	"github.com/google/uuid"
)

type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
	StatusVerified   IssueStatus = "verified"
	StatusClosed     IssueStatus = "closed"
	StatusRejected   IssueStatus = "rejected"
)

func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusOpen, StatusInProgress, StatusResolved,
		StatusVerified, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether only an admin may move the issue out of s.
func (s IssueStatus) Terminal() bool {
	return s == StatusClosed || s == StatusRejected
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Issue struct {
	ID                  uuid.UUID         `json:"id"`
	IssueID             string            `json:"issueId"`
	Title               string            `json:"title"`
	Description         string            `json:"description"`
	Status              IssueStatus       `json:"status"`
	Priority            Priority          `json:"priority"`
	Location            Location          `json:"location"`
	Media               []string          `json:"media"`
	IsAnonymous         bool              `json:"isAnonymous"`
	ReporterName        string            `json:"reporterName,omitempty"`
	Upvotes             int               `json:"upvotes"`
	UserID              *uuid.UUID        `json:"userId,omitempty"`
	CategoryID          uuid.UUID         `json:"categoryId"`
	SubcategoryID       uuid.UUID         `json:"subcategoryId"`
	AssignedOfficials   []uuid.UUID       `json:"assignedOfficials"`
	AssignedAuthorityID *uuid.UUID        `json:"assignedAuthorityId,omitempty"`
	AuthorityContacts   AuthorityContacts `json:"authorityContacts,omitempty"`
	Representatives     Representatives   `json:"representatives"`
	ResolutionNotes     *string           `json:"resolutionNotes,omitempty"`
	ResolutionMedia     []string          `json:"resolutionMedia,omitempty"`
	RejectionReason     *string           `json:"rejectionReason,omitempty"`
	ResolvedAt          *time.Time        `json:"resolvedAt,omitempty"`
	VerifiedAt          *time.Time        `json:"verifiedAt,omitempty"`
	EscalatedAt         *time.Time        `json:"escalatedAt,omitempty"`
	EscalatedTo         *uuid.UUID        `json:"escalatedTo,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`

	Category    *Category    `json:"category,omitempty"`
	Subcategory *Subcategory `json:"subcategory,omitempty"`
	Comments    []Comment    `json:"comments,omitempty"`
}

// ReportedBy reports whether actor filed the issue: by user id, or for
// anonymous issues by matching the anonymous session's display name.
func (i *Issue) ReportedBy(actor Identity) bool {
	if i.UserID != nil && actor.UserID != nil && *i.UserID == *actor.UserID {
		return true
	}
	return i.IsAnonymous && actor.Anonymous && i.ReporterName != "" && actor.Name == i.ReporterName
}

// Redact hides reporter identity on anonymous issues. The user id never
// leaves the service; the display name is shown only to the reporter.
func (i *Issue) Redact(viewer Identity) {
	if !i.IsAnonymous {
		return
	}
	if !i.ReportedBy(viewer) {
		i.ReporterName = ""
	}
	i.UserID = nil
}

type Upvote struct {
	ID        uuid.UUID  `json:"id"`
	IssueID   uuid.UUID  `json:"issueId"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	IPAddress string     `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Comment struct {
	ID         uuid.UUID  `json:"id"`
	IssueID    uuid.UUID  `json:"issueId"`
	Content    string     `json:"content"`
	IsOfficial bool       `json:"isOfficial"`
	IsInternal bool       `json:"isInternal"`
	UserID     *uuid.UUID `json:"userId,omitempty"`
	OfficialID *uuid.UUID `json:"officialId,omitempty"`
	AuthorName string     `json:"authorName,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Request/Response DTOs

type LocationInput struct {
	Lat        *float64 `json:"lat" validate:"required,latitude"`
	Lng        *float64 `json:"lng" validate:"required,longitude"`
	Address    string   `json:"address" validate:"required,min=5"`
	Components *Address `json:"components,omitempty"`
}

type CreateIssueRequest struct {
	Title             string            `json:"title" validate:"required,min=5,max=200"`
	Description       string            `json:"description" validate:"required,min=10,max=2000"`
	CategoryID        string            `json:"categoryId" validate:"required,uuid"`
	SubcategoryID     string            `json:"subcategoryId" validate:"required,uuid"`
	Priority          Priority          `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Location          *LocationInput    `json:"location" validate:"required"`
	Media             []string          `json:"media" validate:"max=10,dive,required"`
	IsAnonymous       bool              `json:"isAnonymous"`
	AssignedOfficials []string          `json:"assignedOfficials" validate:"dive,uuid"`
	AuthorityContacts map[string]string `json:"authorityContacts"`
	MLAInfo           *Representative   `json:"mlaInfo"`
	MPInfo            *Representative   `json:"mpInfo"`
}

type UpdateIssueRequest struct {
	Title       *string   `json:"title" validate:"omitempty,min=5,max=200"`
	Description *string   `json:"description" validate:"omitempty,min=10,max=2000"`
	Priority    *Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Media       []string  `json:"media" validate:"omitempty,max=10,dive,required"`
}

type UpdateStatusRequest struct {
	Status          IssueStatus `json:"status" validate:"required,oneof=pending open in_progress resolved verified closed rejected"`
	ResolutionNotes *string     `json:"resolutionNotes" validate:"omitempty,max=2000"`
	ResolutionMedia []string    `json:"resolutionMedia" validate:"omitempty,max=10,dive,required"`
	Reason          string      `json:"reason" validate:"max=1000"`
}

type EscalateRequest struct {
	OfficialID string `json:"officialId" validate:"required,uuid"`
}

type CreateCommentRequest struct {
	Content    string `json:"content" validate:"required,min=1,max=1000"`
	IsInternal bool   `json:"isInternal"`
}

type UpvoteResponse struct {
	Upvotes int `json:"upvotes"`
}

type UpvoteStatus struct {
	Upvoted bool `json:"upvoted"`
	Upvotes int  `json:"upvotes"`
}

type IssueFilter struct {
	Status        IssueStatus
	CategoryID    *uuid.UUID
	SubcategoryID *uuid.UUID
	Priority      Priority
	UserID        *uuid.UUID
	Query         string
	IDs           []uuid.UUID
	Sort          string
	Page          int
	Limit         int
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

type IssueListResponse struct {
	Issues     []Issue    `json:"issues"`
	Pagination Pagination `json:"pagination"`
}
