package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleSeller   Role = "seller"
	RoleAdmin    Role = "admin"
)

type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// User is the identity record. ApprovalStatus is derived from the latest seller request.
type User struct {
	ID             string         `db:"id" json:"id"`
	Email          string         `db:"email" json:"email"`
	FullName       string         `db:"full_name" json:"full_name"`
	Hash           string         `db:"password_hash" json:"-"`
	Role           Role           `db:"role" json:"role"`
	ApprovalStatus ApprovalStatus `db:"approval_status" json:"seller_approval_status"`
	AverageRating  float64        `db:"average_rating" json:"average_rating"`
	TotalReviews   int            `db:"total_reviews" json:"total_reviews"`
	CreatedAt      string         `db:"created_at" json:"created_at"`
}

// DisplayName falls back to fallback when the user has no name on file.
func (u *User) DisplayName(fallback string) string {
	if u == nil || u.FullName == "" {
		return fallback
	}
	return u.FullName
}

// UserUpdate lists the identity fields the core is allowed to write. Nil fields are left untouched.
type UserUpdate struct {
	AverageRating *float64
	TotalReviews  *int
}

// Principal is the authenticated caller, resolved once per request.
type Principal struct {
	UserID string
	Role   Role
	Name   string
	Email  string
}

func (p Principal) IsAdmin() bool  { return p.Role == RoleAdmin }
func (p Principal) IsSeller() bool { return p.Role == RoleSeller }

// Shop is only read for display names.
type Shop struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id"`
	Name    string `db:"name" json:"name"`
}
