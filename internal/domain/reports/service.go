package reports

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"visapath/internal/domain/accounts"
)

type Service struct {
	store StoreAPI
}

func NewService(store StoreAPI) *Service {
	return &Service{store: store}
}

func staffRole(role string) bool {
	return role == accounts.RoleAgent || role == accounts.RoleAdmin
}

// CaseSummaryPDF renders the full case file as a downloadable PDF for staff
// review. It returns the document bytes and a suggested file name.
func (s *Service) CaseSummaryPDF(ctx context.Context, actorRole, caseID string) ([]byte, string, error) {
	if !staffRole(actorRole) {
		return nil, "", ErrForbidden
	}
	sum, err := s.store.CaseSummary(ctx, caseID)
	if err != nil {
		return nil, "", err
	}
	data, err := renderCaseSummary(sum)
	if err != nil {
		return nil, "", fmt.Errorf("render case summary: %w", err)
	}
	return data, fmt.Sprintf("case-%s.pdf", sum.CaseID), nil
}

func renderCaseSummary(sum *CaseSummary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Case Summary")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Client: %s", sum.ClientName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Email: %s", sum.ClientEmail))
	pdf.Ln(7)
	agent := sum.AgentName
	if agent == "" {
		agent = "unassigned"
	}
	pdf.Cell(0, 8, fmt.Sprintf("Assigned agent: %s", agent))
	pdf.Ln(10)

	pdf.Cell(0, 8, fmt.Sprintf("Case: %s (%s, %s)", sum.Title, sum.CaseType, sum.Country))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s", sum.Status))
	pdf.Ln(7)
	submitted := "not submitted"
	if sum.SubmissionDate != nil {
		submitted = sum.SubmissionDate.Format("2006-01-02")
	}
	pdf.Cell(0, 8, fmt.Sprintf("Submitted: %s", submitted))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Opened: %s    Last update: %s",
		sum.CreatedAt.Format("2006-01-02"), sum.UpdatedAt.Format("2006-01-02")))
	pdf.Ln(10)

	if sum.Description != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(40, 8, "Description")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, sum.Description, "", "L", false)
		pdf.Ln(4)
	}
	if sum.DecisionNotes != "" {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(40, 8, "Decision notes")
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, sum.DecisionNotes, "", "L", false)
		pdf.Ln(4)
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(40, 8, fmt.Sprintf("Documents (%d)", len(sum.Documents)))
	pdf.Ln(9)
	pdf.SetFont("Helvetica", "", 11)
	if len(sum.Documents) == 0 {
		pdf.Cell(0, 6, "No documents uploaded.")
		pdf.Ln(6)
	}
	for _, d := range sum.Documents {
		pdf.Cell(0, 6, fmt.Sprintf("%s (%s, %s) %s, uploaded %s",
			d.FileName, d.ContentType, formatSize(d.FileSize), d.Status,
			d.UploadedAt.Format("2006-01-02")))
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
