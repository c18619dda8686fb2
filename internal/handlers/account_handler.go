package handlers

import (
	"net/http"
	"strconv"

	"github.com/dgctransports/booking-backend/internal/database"
	"github.com/dgctransports/booking-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AccountHandler handles the signed-in user's dashboard reads: booking
// history, credit ledger and referral stats
type AccountHandler struct {
	userRepo    *database.UserRepository
	bookingRepo *database.BookingRepository
	logger      *logrus.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(userRepo *database.UserRepository, bookingRepo *database.BookingRepository, logger *logrus.Logger) *AccountHandler {
	return &AccountHandler{
		userRepo:    userRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
	}
}

// GetBookings handles GET /api/v1/account/bookings
func (h *AccountHandler) GetBookings(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	bookings, err := h.bookingRepo.GetByUserID(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

// GetCredits handles GET /api/v1/account/credits
// Returns the current balance plus recent ledger entries.
func (h *AccountHandler) GetCredits(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	user, err := h.userRepo.GetByID(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	transactions, err := h.userRepo.GetCreditTransactions(userCtx.UserID, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"balance":      user.Credits,
		"transactions": transactions,
	})
}

// GetReferrals handles GET /api/v1/account/referrals
func (h *AccountHandler) GetReferrals(c *gin.Context) {
	userCtx, _ := middleware.GetUserContext(c)

	user, err := h.userRepo.GetByID(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	stats, err := h.userRepo.GetReferralStats(userCtx.UserID)
	if err != nil {
		respondError(c, err)
		return
	}

	stats.AffiliateID = user.AffiliateID

	c.JSON(http.StatusOK, stats)
}
