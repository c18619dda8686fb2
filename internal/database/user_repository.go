package database

import (
	"database/sql"
	"fmt"

	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserRepository handles users, credit_transactions and referral_settings
// database operations. Credit balances are only ever changed through the
// conditional updates here, always paired with an audit row by the caller's
// transaction.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, email, password_hash, role, affiliate_id, credits, created_at, updated_at`

// Create inserts a new user
func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, affiliate_id, credits)
		VALUES ($1, $2, $3, $4, $5, $6, 0)
		RETURNING credits, created_at, updated_at
	`

	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	err := r.db.QueryRowx(
		query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role, user.AffiliateID,
	).Scan(&user.Credits, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetByID returns a user by id
func (r *UserRepository) GetByID(userID string) (*models.User, error) {
	var user models.User
	err := r.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "user", Key: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// GetByEmail returns a user by email, nil if none exists
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

// GetByAffiliateID returns the owner of a referral code, nil if the code is
// unknown
func (r *UserRepository) GetByAffiliateID(affiliateID string) (*models.User, error) {
	var user models.User
	err := r.db.Get(&user, `SELECT `+userColumns+` FROM users WHERE affiliate_id = $1`, affiliateID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by affiliate id: %w", err)
	}

	return &user, nil
}

// DebitCredits atomically decrements a balance iff it covers the amount.
// Zero rows affected means the balance was insufficient; the caller maps
// that to InsufficientCreditsError and aborts its transaction.
func (r *UserRepository) DebitCredits(ext sqlx.Ext, userID string, amount float64) error {
	query := `
		UPDATE users
		SET credits = credits - $2, updated_at = NOW()
		WHERE id = $1 AND credits >= $2
	`

	result, err := ext.Exec(query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to debit credits: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return &models.InsufficientCreditsError{UserID: userID, Amount: amount}
	}

	return nil
}

// CreditCredits atomically increments a balance
func (r *UserRepository) CreditCredits(ext sqlx.Ext, userID string, amount float64) error {
	query := `
		UPDATE users
		SET credits = credits + $2, updated_at = NOW()
		WHERE id = $1
	`

	result, err := ext.Exec(query, userID, amount)
	if err != nil {
		return fmt.Errorf("failed to credit user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return &models.NotFoundError{Entity: "user", Key: userID}
	}

	return nil
}

// RecordCreditTransaction writes the audit row that accompanies every
// balance change, on the same executor as the change itself
func (r *UserRepository) RecordCreditTransaction(ext sqlx.Ext, tx *models.CreditTransaction) error {
	query := `
		INSERT INTO credit_transactions (id, user_id, type, amount, reason, booking_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}

	err := ext.QueryRowx(query, tx.ID, tx.UserID, tx.Type, tx.Amount, tx.Reason, tx.BookingID).Scan(&tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record credit transaction: %w", err)
	}

	return nil
}

// GetCreditTransactions returns a user's ledger entries newest first
func (r *UserRepository) GetCreditTransactions(userID string, limit int) ([]models.CreditTransaction, error) {
	query := `
		SELECT id, user_id, type, amount, reason, booking_id, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var txs []models.CreditTransaction
	if err := r.db.Select(&txs, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get credit transactions: %w", err)
	}

	return txs, nil
}

// GetReferralSetting returns the single global referral settings row
func (r *UserRepository) GetReferralSetting() (*models.ReferralSetting, error) {
	var setting models.ReferralSetting
	err := r.db.Get(&setting, `SELECT id, credits_per_referral FROM referral_settings LIMIT 1`)
	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{Entity: "referral settings", Key: "global"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get referral settings: %w", err)
	}

	return &setting, nil
}

// GetReferralStats aggregates a user's referral earnings from the credit
// ledger for the dashboard
func (r *UserRepository) GetReferralStats(userID string) (*models.ReferralStats, error) {
	query := `
		SELECT COUNT(*) AS referred_count, COALESCE(SUM(amount), 0) AS total_earned
		FROM credit_transactions
		WHERE user_id = $1 AND type = 'credit' AND reason = 'referral_award'
	`

	var stats models.ReferralStats
	if err := r.db.Get(&stats, query, userID); err != nil {
		return nil, fmt.Errorf("failed to get referral stats: %w", err)
	}

	return &stats, nil
}
