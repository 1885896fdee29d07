// Package lifecycle holds the issue status state machine and the rules for
// who may move an issue between states.
package lifecycle

import (
	"errors"
	"strings"
	"time"

	"issue-service/internal/model"
)

var (
	ErrForbidden         = errors.New("not permitted to change this issue")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrReasonRequired    = errors.New("a reason is required to reject an issue")
	ErrUnknownStatus     = errors.New("unknown status")
)

// rank orders the states a participant may move through. Moves to a lower
// rank are backward transitions.
var rank = map[model.IssueStatus]int{
	model.StatusOpen:       1,
	model.StatusInProgress: 2,
	model.StatusResolved:   3,
	model.StatusVerified:   4,
}

// moderated states only an admin may enter or leave.
func moderated(s model.IssueStatus) bool {
	return s == model.StatusPending || s == model.StatusRejected || s == model.StatusClosed
}

type Change struct {
	Status          model.IssueStatus
	ResolutionNotes *string
	ResolutionMedia []string
	Reason          string
}

// IsParticipant reports whether actor may act on the issue at all: an
// admin, any official, the reporter by user id, or an anonymous session
// whose name matches the anonymous reporter's.
func IsParticipant(issue *model.Issue, actor model.Identity) bool {
	switch {
	case actor.IsAdmin(), actor.IsOfficial():
		return true
	case issue.UserID != nil && actor.UserID != nil && *issue.UserID == *actor.UserID:
		return true
	case issue.IsAnonymous && actor.Anonymous && issue.ReporterName != "" && actor.Name == issue.ReporterName:
		return true
	}
	return false
}

// Check validates a transition without applying it. A nil error with
// noop=true means the issue is already in the requested state.
func Check(issue *model.Issue, actor model.Identity, change Change) (noop bool, err error) {
	from, to := issue.Status, change.Status
	if !to.Valid() {
		return false, ErrUnknownStatus
	}
	if !IsParticipant(issue, actor) {
		return false, ErrForbidden
	}

	if actor.IsAdmin() {
		if from == to {
			return true, nil
		}
		if to == model.StatusRejected {
			if from != model.StatusPending && from != model.StatusOpen {
				return false, ErrInvalidTransition
			}
			if strings.TrimSpace(change.Reason) == "" {
				return false, ErrReasonRequired
			}
		}
		return false, nil
	}

	if moderated(from) || moderated(to) {
		return false, ErrForbidden
	}
	if from == to {
		return true, nil
	}
	if rank[to] < rank[from] {
		return false, ErrInvalidTransition
	}
	return false, nil
}

// Apply checks the transition and, when permitted, mutates issue in place
// and stamps the timestamps the target state requires. It reports whether
// anything changed.
func Apply(issue *model.Issue, actor model.Identity, change Change, now time.Time) (bool, error) {
	noop, err := Check(issue, actor, change)
	if err != nil || noop {
		return false, err
	}

	issue.Status = change.Status
	issue.UpdatedAt = now

	switch change.Status {
	case model.StatusResolved:
		issue.ResolvedAt = &now
		if change.ResolutionNotes != nil {
			notes := strings.TrimSpace(*change.ResolutionNotes)
			issue.ResolutionNotes = &notes
		}
		if len(change.ResolutionMedia) > 0 {
			issue.ResolutionMedia = append([]string(nil), change.ResolutionMedia...)
		}
	case model.StatusVerified:
		issue.VerifiedAt = &now
		if issue.ResolvedAt == nil {
			issue.ResolvedAt = &now
		}
	case model.StatusRejected:
		reason := strings.TrimSpace(change.Reason)
		issue.RejectionReason = &reason
	case model.StatusOpen, model.StatusPending:
		issue.RejectionReason = nil
	}
	return true, nil
}

// InitialStatus is pending when moderation is on, open otherwise.
func InitialStatus(moderation bool) model.IssueStatus {
	if moderation {
		return model.StatusPending
	}
	return model.StatusOpen
}
