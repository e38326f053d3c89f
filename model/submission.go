package model

import "time"

// Kind identifies one of the supported submission flows. It is a closed set;
// code branching on Kind must handle every value explicitly.
type Kind string

const (
	// KindRequest is a user request for content that does not exist yet.
	KindRequest Kind = "request"
	// KindContribution is user-provided content offered for publication.
	KindContribution Kind = "contribution"
	// KindFeedback is free-form feedback addressed to the moderators.
	KindFeedback Kind = "feedback"
)

// Valid reports whether k is one of the known submission kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindRequest, KindContribution, KindFeedback:
		return true
	}
	return false
}

// Status is the moderation state of a submission.
type Status string

const (
	// StatusPending marks a submission awaiting a moderator decision.
	StatusPending Status = "pending"
	// StatusApproved is a terminal state; the submission was accepted.
	StatusApproved Status = "approved"
	// StatusRejected is a terminal state; the submission was declined.
	StatusRejected Status = "rejected"
)

// Decided reports whether the status is terminal.
func (s Status) Decided() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submission is a user-authored record moving through the moderation queue.
// Records are append-only: once decided they are never mutated again.
type Submission struct {
	ID         string     `db:"id"`
	Kind       Kind       `db:"kind"`
	UserID     int64      `db:"user_id"`
	CategoryID *int64     `db:"category_id"`
	Title      string     `db:"title"`
	Content    string     `db:"content"`
	Attachment *string    `db:"attachment"`
	Status     Status     `db:"status"`
	CreatedAt  time.Time  `db:"created_at"`
	ReviewedAt *time.Time `db:"reviewed_at"`
	ReviewerID *int64     `db:"reviewer_id"`
	ReviewNote *string    `db:"review_note"`
}

// HasAttachment reports whether the submission carries a media reference.
func (s *Submission) HasAttachment() bool {
	return s.Attachment != nil && *s.Attachment != ""
}

// Note returns the review note or an empty string.
func (s *Submission) Note() string {
	if s.ReviewNote == nil {
		return ""
	}
	return *s.ReviewNote
}

// Category is a read-only directory entry used by capture flows.
type Category struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Active    bool   `db:"active"`
	SortOrder int    `db:"sort_order"`
}
