package accounts

import "time"

type Account struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	FullName             string     `json:"fullName"`
	Role                 string     `json:"role"`
	Phone                string     `json:"phone,omitempty"`
	CountryOfOrigin      string     `json:"countryOfOrigin,omitempty"`
	IsActive             bool       `json:"isActive"`
	IdentityUID          string     `json:"-"`
	PasswordHash         string     `json:"-"`
	LastLoginAt          *time.Time `json:"lastLoginAt,omitempty"`
	DeletionScheduledFor *time.Time `json:"deletionScheduledFor,omitempty"`
	DeletionReason       string     `json:"deletionReason,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

type RegisterInput struct {
	Email           string
	Password        string
	FullName        string
	Phone           string
	CountryOfOrigin string
	Role            string
}
