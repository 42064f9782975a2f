package articles

import (
	"fmt"
	"slices"
	"time"

	"github.com/editorialhouse/newsroom/internal/rbac"
	"github.com/editorialhouse/newsroom/internal/shared"
)

type actorRule int

const (
	actorAuthor actorRule = iota + 1
	actorPrivileged
)

type transition struct {
	// from lists the statuses the operation accepts. Empty means any.
	from []Status
	// onPublishedFlag gates on the published boolean instead of the status.
	onPublishedFlag bool
	actor           actorRule
	privilege       rbac.Privilege
	// to is the resulting status. Empty leaves the status unchanged.
	to Status
}

var transitions = map[Operation]transition{
	OpCreate: {
		actor:     actorPrivileged,
		privilege: rbac.PrivilegeWrite,
		to:        StatusDraft,
	},
	OpUpdate: {
		from:  []Status{StatusDraft, StatusApproved, StatusRejected},
		actor: actorAuthor,
	},
	OpDelete: {
		actor: actorAuthor,
	},
	OpSubmit: {
		from:  []Status{StatusDraft, StatusRejected},
		actor: actorAuthor,
		to:    StatusPendingApproval,
	},
	OpApprove: {
		from:      []Status{StatusPendingApproval},
		actor:     actorPrivileged,
		privilege: rbac.PrivilegeApproveArticle,
		to:        StatusApproved,
	},
	OpReject: {
		from:      []Status{StatusPendingApproval},
		actor:     actorPrivileged,
		privilege: rbac.PrivilegeApproveArticle,
		to:        StatusRejected,
	},
	OpPublish: {
		from:      []Status{StatusApproved},
		actor:     actorPrivileged,
		privilege: rbac.PrivilegePublish,
		to:        StatusPublished,
	},
	OpUnpublish: {
		onPublishedFlag: true,
		actor:           actorPrivileged,
		privilege:       rbac.PrivilegeDeleteAnyArticle,
	},
}

// Authorize checks the caller against the actor rule of op. It never looks at
// the article's state, so a caller without rights always gets ErrForbidden
// ahead of any state error.
func Authorize(caller *rbac.Caller, op Operation, a Article) error {
	if err := rbac.Authenticated(caller); err != nil {
		return err
	}
	t, ok := transitions[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", shared.ErrInvalidArgument, op)
	}
	switch t.actor {
	case actorAuthor:
		if !caller.Is(a.AuthorID) {
			return fmt.Errorf("%w: only the author may %s this article", shared.ErrForbidden, op)
		}
	case actorPrivileged:
		if !caller.Can(t.privilege) {
			return fmt.Errorf("%w: %s requires %s", shared.ErrForbidden, op, t.privilege)
		}
	}
	return nil
}

// CheckState validates the precondition of op against a.
func CheckState(op Operation, a Article) error {
	t, ok := transitions[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", shared.ErrInvalidArgument, op)
	}
	if t.onPublishedFlag {
		if !a.Published {
			return &TransitionError{Op: op, Status: a.Status, Published: a.Published}
		}
		return nil
	}
	if len(t.from) > 0 && !slices.Contains(t.from, a.Status) {
		return &TransitionError{Op: op, Status: a.Status, Published: a.Published}
	}
	return nil
}

// Change carries the operation specific payload for Apply.
type Change struct {
	Content Content
	Reason  string
	Now     time.Time
}

// Apply returns a copy of a with op applied. Callers must run Authorize and
// CheckState first.
func Apply(op Operation, a Article, change Change) Article {
	t := transitions[op]
	if t.to != "" {
		a.Status = t.to
	}
	switch op {
	case OpCreate:
		a.Title = change.Content.Title
		a.Content = change.Content.Content
		a.ImageURL = change.Content.ImageURL
		a.AudioURL = change.Content.AudioURL
		a.VideoURL = change.Content.VideoURL
		a.RejectionReason = nil
		a.Published = false
		a.CreatedAt = change.Now
		a.UpdatedAt = change.Now
	case OpUpdate:
		a.Title = change.Content.Title
		a.Content = change.Content.Content
		a.ImageURL = change.Content.ImageURL
		a.AudioURL = change.Content.AudioURL
		a.VideoURL = change.Content.VideoURL
		a.UpdatedAt = change.Now
	case OpSubmit:
		a.RejectionReason = nil
	case OpReject:
		reason := change.Reason
		a.RejectionReason = &reason
	case OpPublish:
		a.Published = true
	case OpUnpublish:
		// status stays as is; only the flag flips
		a.Published = false
	}
	return a
}
