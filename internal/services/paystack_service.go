package services

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dgctransports/booking-backend/internal/config"
	"github.com/dgctransports/booking-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// PaymentGateway is the slice of the gateway the booking flow needs. The
// concrete implementation talks to Paystack; tests substitute a stub.
type PaymentGateway interface {
	Initialize(params *InitializePaymentParams) (string, error)
	Verify(reference string) (*models.VerifyResult, error)
}

// InitializePaymentParams carries the fields sent to the gateway's
// initialize endpoint. Amount is in major units; the adapter converts to
// minor units (kobo) on the wire.
type InitializePaymentParams struct {
	Email     string
	Amount    float64
	Reference string
	Metadata  map[string]interface{}
}

// PaystackService handles payment gateway integration with Paystack
type PaystackService struct {
	config *config.PaymentConfig
	logger *logrus.Logger
	client *http.Client
}

// NewPaystackService creates a new PaystackService
func NewPaystackService(cfg *config.PaymentConfig, logger *logrus.Logger) *PaystackService {
	return &PaystackService{
		config: cfg,
		logger: logger,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// paystackInitRequest is the initialize request body
type paystackInitRequest struct {
	Email       string                 `json:"email"`
	Amount      int64                  `json:"amount"` // minor units (kobo)
	Reference   string                 `json:"reference"`
	CallbackURL string                 `json:"callback_url,omitempty"`
	Currency    string                 `json:"currency,omitempty"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// paystackInitResponse is the initialize response envelope
type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

// paystackVerifyResponse is the verify response envelope
type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string `json:"status"` // "success", "failed", "abandoned"
		Amount    int64  `json:"amount"` // minor units (kobo)
		Reference string `json:"reference"`
		Channel   string `json:"channel"`
		ID        int64  `json:"id"`
	} `json:"data"`
}

// Initialize asks the gateway for a checkout page and returns the
// authorization URL the customer is redirected to
func (s *PaystackService) Initialize(params *InitializePaymentParams) (string, error) {
	body := paystackInitRequest{
		Email:       params.Email,
		Amount:      int64(params.Amount * 100), // naira -> kobo
		Reference:   params.Reference,
		CallbackURL: s.config.CallbackURL,
		Currency:    s.config.Currency,
		Metadata:    params.Metadata,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal initialize request: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.config.BaseURL+"/transaction/initialize", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build initialize request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", &models.GatewayError{Unavailable: true, Reference: params.Reference, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &models.GatewayError{Unavailable: true, Reference: params.Reference, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"status":    resp.StatusCode,
			"reference": params.Reference,
		}).Error("Paystack initialize returned non-200")
		return "", &models.GatewayError{
			Unavailable: true,
			Reference:   params.Reference,
			Message:     fmt.Sprintf("initialize returned HTTP %d", resp.StatusCode),
		}
	}

	var initResp paystackInitResponse
	if err := json.Unmarshal(respBody, &initResp); err != nil {
		return "", &models.GatewayError{Unavailable: true, Reference: params.Reference, Message: "unparseable initialize response"}
	}

	if !initResp.Status || initResp.Data.AuthorizationURL == "" {
		return "", &models.GatewayError{Reference: params.Reference, Message: initResp.Message}
	}

	s.logger.WithFields(logrus.Fields{
		"reference": params.Reference,
		"amount":    params.Amount,
	}).Info("Payment initialized")

	return initResp.Data.AuthorizationURL, nil
}

// Verify asks the gateway for the authoritative outcome of a transaction.
// The returned PaidAmount is converted back to major units. Transport
// failures and non-200s surface as GatewayError{Unavailable} so the caller
// can leave the booking pending for a later retry.
func (s *PaystackService) Verify(reference string) (*models.VerifyResult, error) {
	req, err := http.NewRequest(http.MethodGet, s.config.BaseURL+"/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.SecretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &models.GatewayError{Unavailable: true, Reference: reference, Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &models.GatewayError{Unavailable: true, Reference: reference, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		s.logger.WithFields(logrus.Fields{
			"status":    resp.StatusCode,
			"reference": reference,
		}).Error("Paystack verify returned non-200")
		return nil, &models.GatewayError{
			Unavailable: true,
			Reference:   reference,
			Message:     fmt.Sprintf("verify returned HTTP %d", resp.StatusCode),
		}
	}

	var verifyResp paystackVerifyResponse
	if err := json.Unmarshal(respBody, &verifyResp); err != nil {
		return nil, &models.GatewayError{Unavailable: true, Reference: reference, Message: "unparseable verify response"}
	}

	result := &models.VerifyResult{
		Success:    verifyResp.Status && verifyResp.Data.Status == "success",
		PaidAmount: float64(verifyResp.Data.Amount) / 100, // kobo -> naira
		GatewayRef: fmt.Sprintf("%d", verifyResp.Data.ID),
		Channel:    verifyResp.Data.Channel,
		RawBody:    string(respBody),
	}

	if !result.Success {
		s.logger.WithFields(logrus.Fields{
			"reference": reference,
			"status":    verifyResp.Data.Status,
		}).Warn("Payment verification unsuccessful")
	}

	return result, nil
}

// VerifyWebhookSignature checks the x-paystack-signature header: an
// HMAC-SHA512 of the raw body keyed with the secret
func (s *PaystackService) VerifyWebhookSignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(s.config.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// IsConfigured reports whether the gateway credentials are present
func (s *PaystackService) IsConfigured() bool {
	return s.config.SecretKey != ""
}
