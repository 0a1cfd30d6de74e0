package cases

import "time"

type Case struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"clientId"`
	AssignedAgentID *string    `json:"assignedAgentId,omitempty"`
	CaseType        string     `json:"caseType"`
	Country         string     `json:"country"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	Status          string     `json:"status"`
	DecisionNotes   string     `json:"decisionNotes,omitempty"`
	SubmissionDate  *time.Time `json:"submissionDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type CreateInput struct {
	ClientID    string
	CaseType    string
	Country     string
	Title       string
	Description string
}

type UpdateInput struct {
	CaseType    string
	Country     string
	Title       string
	Description string
}

type Filter struct {
	ClientID        string
	AssignedAgentID string
	Status          string
	CaseType        string
}
