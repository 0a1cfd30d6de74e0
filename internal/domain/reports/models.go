package reports

import "time"

// CaseSummary carries everything the PDF export renders for one case.
type CaseSummary struct {
	CaseID         string
	CaseType       string
	Country        string
	Title          string
	Description    string
	Status         string
	DecisionNotes  string
	SubmissionDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	ClientName  string
	ClientEmail string
	AgentName   string

	Documents []DocumentLine
}

// DocumentLine is one row of the document table in the summary.
type DocumentLine struct {
	FileName    string
	ContentType string
	FileSize    int64
	Status      string
	UploadedAt  time.Time
}
