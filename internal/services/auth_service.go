package services

import (
	"errors"
	"strings"

	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/dgctransports/booking-backend/internal/utils"
	"github.com/dgctransports/booking-backend/pkg/jwt"
	"github.com/jmoiron/sqlx"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for both a missing account and a wrong
// password so login responses don't leak which emails exist
var ErrInvalidCredentials = errors.New("invalid email or password")

// AuthService handles registration, login and token issuance
type AuthService struct {
	db         *sqlx.DB
	userRepo   *database.UserRepository
	jwtService *jwt.Service
	credits    *CreditService
	bcryptCost int
	logger     *logrus.Logger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	db *sqlx.DB,
	userRepo *database.UserRepository,
	jwtService *jwt.Service,
	credits *CreditService,
	bcryptCost int,
	logger *logrus.Logger,
) *AuthService {
	return &AuthService{
		db:         db,
		userRepo:   userRepo,
		jwtService: jwtService,
		credits:    credits,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Register creates a passenger account with a fresh affiliate code. A valid
// referral code on the form credits the referrer.
func (s *AuthService) Register(req *models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewValidationError("email", "an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, err
	}

	affiliateID, err := s.newAffiliateCode()
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RolePassenger,
		AffiliateID:  affiliateID,
	}

	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}

	if req.Referral != nil && *req.Referral != "" {
		if err := s.credits.AwardSignup(s.db, *req.Referral, user.ID); err != nil {
			s.logger.WithError(err).Warn("Signup referral award failed")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("Account registered")

	return s.issueTokens(user)
}

// Login verifies credentials and issues a token pair. Client IP and parsed
// user agent go to the audit log.
func (s *AuthService) Login(req *models.LoginRequest, clientIP, rawUserAgent string) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithFields(logrus.Fields{
			"email": email,
			"ip":    clientIP,
		}).Warn("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	ua := user_agent.New(rawUserAgent)
	browser, version := ua.Browser()
	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"ip":      clientIP,
		"os":      ua.OS(),
		"browser": browser + " " + version,
		"mobile":  ua.Mobile(),
	}).Info("Login")

	return s.issueTokens(user)
}

// Refresh exchanges a valid refresh token for a new access token
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return "", err
	}

	return s.jwtService.GenerateAccessToken(user.ID, user.Email, string(user.Role))
}

// Me returns the account profile
func (s *AuthService) Me(userID string) (*models.User, error) {
	return s.userRepo.GetByID(userID)
}

func (s *AuthService) issueTokens(user *models.User) (*models.AuthResponse, error) {
	access, err := s.jwtService.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, err
	}

	refresh, err := s.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	}, nil
}

// newAffiliateCode generates an affiliate code that no account carries yet
func (s *AuthService) newAffiliateCode() (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateAffiliateCode()
		if err != nil {
			return "", err
		}

		owner, err := s.userRepo.GetByAffiliateID(code)
		if err != nil {
			return "", err
		}
		if owner == nil {
			return code, nil
		}
	}

	return "", errors.New("failed to allocate a unique affiliate code")
}
