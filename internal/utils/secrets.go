package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateSecret generates a cryptographically secure random secret
func GenerateSecret(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateJWTSecrets generates two different JWT secrets (access and refresh)
func GenerateJWTSecrets() (accessSecret, refreshSecret string, err error) {
	accessSecret, err = GenerateSecret(32) // 256-bit
	if err != nil {
		return "", "", fmt.Errorf("failed to generate access secret: %w", err)
	}

	refreshSecret, err = GenerateSecret(32) // 256-bit
	if err != nil {
		return "", "", fmt.Errorf("failed to generate refresh secret: %w", err)
	}

	return accessSecret, refreshSecret, nil
}

// affiliateAlphabet excludes ambiguous characters so codes survive being
// read aloud or typed from a flyer
const affiliateAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateAffiliateCode generates an 8-character referral code
func GenerateAffiliateCode() (string, error) {
	code := make([]byte, 8)
	max := big.NewInt(int64(len(affiliateAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate affiliate code: %w", err)
		}
		code[i] = affiliateAlphabet[n.Int64()]
	}
	return string(code), nil
}
