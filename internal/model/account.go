package model

import "time"

// Account is a single registered user. VerificationToken and
// VerificationTokenExpiry are either both set or both nil, and both are nil
// once IsVerified is true.
type Account struct {
	ID                      string     `gorm:"primaryKey;size:16" json:"id"`
	Username                string     `gorm:"uniqueIndex;size:30;not null" json:"username"`
	Email                   string     `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash            string     `gorm:"not null" json:"-"`
	Designation             string     `gorm:"size:100;not null;default:User" json:"designation"`
	IsVerified              bool       `gorm:"not null;default:false;index" json:"isVerified"`
	VerificationToken       *string    `gorm:"uniqueIndex;size:64" json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`
	IsBlocked               bool       `gorm:"not null;default:false" json:"isBlocked"`
	LastLoginAt             *time.Time `json:"lastLoginAt"`
	RegisteredAt            time.Time  `gorm:"not null;index" json:"registeredAt"`
	CreatedAt               time.Time  `json:"createdAt"`
	UpdatedAt               time.Time  `json:"-"`
}

// Verification is a pending email verification secret and its deadline.
type Verification struct {
	Token     string
	ExpiresAt time.Time
}

// Pending reports whether the account still carries a verification token.
func (a *Account) Pending() bool {
	return a.VerificationToken != nil && a.VerificationTokenExpiry != nil
}
