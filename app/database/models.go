package database

import (
	"time"
)

// Posting is a single job advertisement as scraped from the feed.
// JobID is the feed's own identifier and the upsert key.
type Posting struct {
	CompanyName    string
	JobTitle       string
	EmploymentType string
	StartDate      string
	EndDate        string
	CompanyType    string
	CompanyLogo    string
	ApplyLink      string
	JobID          string
}

type Job struct {
	ID int64
	Posting
	CreatedAt time.Time
}

type Company struct {
	ID        int64
	Name      string
	Alias     string // empty when the company has no alias
	CreatedAt time.Time
}

type ReportStatus string

const (
	ReportStatusPending   ReportStatus = "PENDING"
	ReportStatusRunning   ReportStatus = "RUNNING"
	ReportStatusCompleted ReportStatus = "COMPLETED"
	ReportStatusFailed    ReportStatus = "FAILED"
)

var reportTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusPending: {ReportStatusRunning},
	ReportStatusRunning: {ReportStatusCompleted, ReportStatusFailed},
}

func ParseReportStatus(s string) (ReportStatus, bool) {
	switch st := ReportStatus(s); st {
	case ReportStatusPending, ReportStatusRunning, ReportStatusCompleted, ReportStatusFailed:
		return st, true
	default:
		return "", false
	}
}

// CanTransition reports whether a report may move from one status to another.
// Terminal statuses have no outgoing transitions.
func CanTransition(from, to ReportStatus) bool {
	for _, next := range reportTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusCompleted || s == ReportStatusFailed
}

type Report struct {
	ID           int64
	Status       ReportStatus
	Profile      []byte // JSON document as submitted
	Content      *string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
