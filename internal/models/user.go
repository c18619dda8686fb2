package models

import "time"

// UserRole represents the role of an account
type UserRole string

const (
	RolePassenger UserRole = "passenger"
	RoleStaff     UserRole = "staff"
	RoleAdmin     UserRole = "admin"
)

// User is an account holder. Credits are mutated only through the credit
// ledger's conditional updates plus an audit row, never by direct writes.
type User struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	AffiliateID  string    `json:"affiliate_id" db:"affiliate_id"`
	Credits      float64   `json:"credits" db:"credits"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CreditTransactionType classifies a credit ledger entry
type CreditTransactionType string

const (
	CreditTxDebit  CreditTransactionType = "debit"
	CreditTxCredit CreditTransactionType = "credit"
)

// CreditTransaction is the audit row written alongside every balance change
type CreditTransaction struct {
	ID        string                `json:"id" db:"id"`
	UserID    string                `json:"user_id" db:"user_id"`
	Type      CreditTransactionType `json:"type" db:"type"`
	Amount    float64               `json:"amount" db:"amount"`
	Reason    string                `json:"reason" db:"reason"`
	BookingID *string               `json:"booking_id,omitempty" db:"booking_id"`
	CreatedAt time.Time             `json:"created_at" db:"created_at"`
}

// ReferralSetting is the single global row controlling the per-referral award
type ReferralSetting struct {
	ID                 string  `json:"id" db:"id"`
	CreditsPerReferral float64 `json:"credits_per_referral" db:"credits_per_referral"`
}

// RegisterRequest represents the account registration form
type RegisterRequest struct {
	Name     string  `json:"name" binding:"required"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8"`
	Referral *string `json:"referral,omitempty"`
}

// LoginRequest represents the login form
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the issued token pair plus the public profile
type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// ReferralStats summarizes a user's referral earnings for the dashboard
type ReferralStats struct {
	AffiliateID   string  `json:"affiliate_id"`
	ReferredCount int     `json:"referred_count" db:"referred_count"`
	TotalEarned   float64 `json:"total_earned" db:"total_earned"`
}
