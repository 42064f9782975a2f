package articles

import (
	"fmt"
	"strings"
	"time"

	"github.com/editorialhouse/newsroom/internal/shared"
)

// Status is the editorial lifecycle state of an article.
type Status string

const (
	StatusDraft           Status = "DRAFT"
	StatusPendingApproval Status = "PENDING_APPROVAL"
	StatusApproved        Status = "APPROVED"
	StatusRejected        Status = "REJECTED"
	StatusPublished       Status = "PUBLISHED"
)

// Article is owned by exactly one author. Published mirrors StatusPublished
// except after an unpublish.
type Article struct {
	ID              int64     `json:"id"`
	AuthorID        int64     `json:"authorId"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	ImageURL        string    `json:"imageUrl,omitempty"`
	AudioURL        string    `json:"audioUrl,omitempty"`
	VideoURL        string    `json:"videoUrl,omitempty"`
	Status          Status    `json:"status"`
	RejectionReason *string   `json:"rejectionReason"`
	Published       bool      `json:"published"`
	CreatedAt       time.Time `json:"creationDate"`
	UpdatedAt       time.Time `json:"lastModifiedDate"`
}

// Content is the opaque payload an author controls.
type Content struct {
	Title    string `json:"title" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
	ImageURL string `json:"imageUrl" validate:"omitempty,max=2048"`
	AudioURL string `json:"audioUrl" validate:"omitempty,max=2048"`
	VideoURL string `json:"videoUrl" validate:"omitempty,max=2048"`
}

func (c Content) normalize() (Content, error) {
	c.Title = strings.TrimSpace(c.Title)
	c.ImageURL = strings.TrimSpace(c.ImageURL)
	c.AudioURL = strings.TrimSpace(c.AudioURL)
	c.VideoURL = strings.TrimSpace(c.VideoURL)
	if c.Title == "" {
		return c, fmt.Errorf("%w: title required", shared.ErrInvalidArgument)
	}
	if strings.TrimSpace(c.Content) == "" {
		return c, fmt.Errorf("%w: content required", shared.ErrInvalidArgument)
	}
	return c, nil
}

// Operation names a workflow operation.
type Operation string

const (
	OpCreate    Operation = "create"
	OpUpdate    Operation = "update"
	OpDelete    Operation = "delete"
	OpSubmit    Operation = "submit"
	OpApprove   Operation = "approve"
	OpReject    Operation = "reject"
	OpPublish   Operation = "publish"
	OpUnpublish Operation = "unpublish"
)

// TransitionError reports an operation invalid for the article's current state.
type TransitionError struct {
	Op        Operation
	Status    Status
	Published bool
}

func (e *TransitionError) Error() string {
	if e.Op == OpUnpublish {
		return fmt.Sprintf("articles: cannot %s article that is not published (status %s)", e.Op, e.Status)
	}
	return fmt.Sprintf("articles: cannot %s article in status %s", e.Op, e.Status)
}

// Unwrap ties TransitionError to the shared taxonomy.
func (e *TransitionError) Unwrap() error {
	return shared.ErrConflictingState
}
