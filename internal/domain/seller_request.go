package domain

// BusinessInfo is the payload a seller submits for approval.
type BusinessInfo struct {
	Name        string `json:"business_name"`
	Description string `json:"business_description"`
	Address     string `json:"business_address"`
	Phone       string `json:"business_phone"`
}

// DocumentRef points at an uploaded authorization document.
type DocumentRef struct {
	URL  string `json:"document_url"`
	Type string `json:"document_type"`
}

// SellerRequest is one attempt in a user's approval history.
type SellerRequest struct {
	Seq                 int64          `db:"seq" json:"-"`
	ID                  string         `db:"id" json:"id"`
	UserID              string         `db:"user_id" json:"user_id"`
	BusinessName        string         `db:"business_name" json:"business_name"`
	BusinessDescription string         `db:"business_description" json:"business_description"`
	BusinessAddress     string         `db:"business_address" json:"business_address"`
	BusinessPhone       string         `db:"business_phone" json:"business_phone"`
	DocumentURL         string         `db:"document_url" json:"document_url"`
	DocumentType        string         `db:"document_type" json:"document_type"`
	Status              ApprovalStatus `db:"status" json:"status"`
	SubmittedAt         string         `db:"submitted_at" json:"submitted_at"`
	ReviewedAt          string         `db:"reviewed_at" json:"reviewed_at,omitempty"`
	ReviewedBy          string         `db:"reviewed_by" json:"reviewed_by,omitempty"`
	RejectionReason     string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
}

// ApprovalAction is the admin decision on a pending request.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
)

// SellerApplication is a pending request joined with the applicant's display data.
type SellerApplication struct {
	SellerRequest
	Email    string `db:"email" json:"email"`
	FullName string `db:"full_name" json:"full_name"`
}
