package cases

const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusInReview  = "in_review"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusNeedsInfo = "needs_info"
)

const (
	TypeWorkVisa            = "work_visa"
	TypeStudentVisa         = "student_visa"
	TypeFamilyReunification = "family_reunification"
	TypePermanentResidence  = "permanent_residence"
	TypeCitizenship         = "citizenship"
	TypeBusinessVisa        = "business_visa"
	TypeVisitorExtension    = "visitor_extension"
)

func ValidCaseType(caseType string) bool {
	switch caseType {
	case TypeWorkVisa, TypeStudentVisa, TypeFamilyReunification,
		TypePermanentResidence, TypeCitizenship, TypeBusinessVisa, TypeVisitorExtension:
		return true
	}
	return false
}
