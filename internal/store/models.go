package store

import "time"

const (
	PlanStatusInReview = "in_review"
	PlanStatusApproved = "approved"
	PlanStatusDenied   = "denied"
)

type Plan struct {
	ID          string
	Slug        string
	Title       string
	Status      string
	CurrentHash string
	CreatedBy   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Decision struct {
	ID           int64
	PlanID       string
	Outcome      string
	Feedback     string
	DecidedBy    string
	DecidedAt    time.Time
	CommitHash   string
	Tag          string
	MarkersAdded int
}

type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
