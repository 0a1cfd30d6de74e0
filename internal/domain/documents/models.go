package documents

import "time"

type Document struct {
	ID          string     `json:"id"`
	CaseID      string     `json:"caseId"`
	UploadedBy  string     `json:"uploadedBy"`
	FileName    string     `json:"fileName"`
	ContentType string     `json:"contentType"`
	FileSize    int64      `json:"fileSize"`
	StorageKey  string     `json:"-"`
	Status      string     `json:"status"`
	ReviewNotes string     `json:"reviewNotes,omitempty"`
	ReviewedBy  *string    `json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time `json:"reviewedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type UploadInput struct {
	CaseID      string
	UploadedBy  string
	FileName    string
	ContentType string
	FileSize    int64
}
