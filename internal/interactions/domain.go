package interactions

import (
	"fmt"
	"strings"
	"time"

	"github.com/editorialhouse/newsroom/internal/shared"
)

const (
	// MinScore is the lowest accepted rating.
	MinScore = 1
	// MaxScore is the highest accepted rating.
	MaxScore = 5
)

// Comment is a reader remark on a published article.
type Comment struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	UserID    int64     `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"creationDate"`
	Moderated bool      `json:"moderated"`
}

// Rating is unique per article and user.
type Rating struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"articleId"`
	UserID    int64     `json:"userId"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"creationDate"`
}

// Report flags an article for review.
type Report struct {
	ID          int64      `json:"id"`
	ArticleID   int64      `json:"articleId"`
	ReporterID  int64      `json:"reporterId"`
	Reason      string     `json:"reason"`
	ReportedAt  time.Time  `json:"reportDate"`
	Reviewed    bool       `json:"reviewed"`
	ActionTaken bool       `json:"actionTaken"`
	ReviewedBy  *int64     `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
}

// RatingSummary aggregates the ratings of one article.
type RatingSummary struct {
	ArticleID int64   `json:"articleId"`
	Count     int64   `json:"count"`
	Average   float64 `json:"average"`
}

// CommentInput is the payload for AddComment.
type CommentInput struct {
	Content string `json:"content" validate:"required,max=5000"`
}

// RatingInput is the payload for AddRating. The score range is checked by
// the service after the duplicate check.
type RatingInput struct {
	Score int `json:"score"`
}

// ReportInput is the payload for Report.
type ReportInput struct {
	Reason string `json:"reason" validate:"required,max=2000"`
}

// ReviewInput is the payload for ReviewReport.
type ReviewInput struct {
	ActionTaken *bool `json:"actionTaken" validate:"required"`
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s required", shared.ErrInvalidArgument, field)
	}
	return value, nil
}

func validScore(score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: rating score must be between %d and %d", shared.ErrInvalidArgument, MinScore, MaxScore)
	}
	return nil
}
