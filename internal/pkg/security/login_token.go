package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// LoginTokenPurpose tags magic-link tokens so they cannot be replayed
// against other token-consuming endpoints.
const LoginTokenPurpose = "login"

type LoginTokenClaims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	Purpose   string `json:"purpose"`
	TokenID   string `json:"jti"`
	ExpiresAt int64  `json:"exp"`
}

// GenerateLoginToken creates a signed magic-link token. The tokenID is the
// single-use marker callers burn on consumption.
func GenerateLoginToken(userID uint, email, tokenID string, ttl time.Duration, secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret is required for token generation")
	}
	if tokenID == "" {
		return "", errors.New("token id is required")
	}
	claims := LoginTokenClaims{
		UserID:    userID,
		Email:     email,
		Purpose:   LoginTokenPurpose,
		TokenID:   tokenID,
		ExpiresAt: time.Now().Add(ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	sig := mac.Sum(nil)
	token := fmt.Sprintf("%s.%s", base64.RawURLEncoding.EncodeToString(payload), base64.RawURLEncoding.EncodeToString(sig))
	return token, nil
}

func VerifyLoginToken(token, secret string) (*LoginTokenClaims, error) {
	if secret == "" {
		return nil, errors.New("secret is required for token verification")
	}
	parts := strings.SplitN(token, ".", 2)
	if len(parts) != 2 {
		return nil, errors.New("invalid token format")
	}
	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, errors.New("invalid payload encoding")
	}
	sigBytes, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, errors.New("invalid signature encoding")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payloadBytes)
	expected := mac.Sum(nil)
	if !hmac.Equal(sigBytes, expected) {
		return nil, errors.New("invalid token signature")
	}
	var claims LoginTokenClaims
	if err := json.Unmarshal(payloadBytes, &claims); err != nil {
		return nil, errors.New("invalid payload")
	}
	if claims.Purpose != LoginTokenPurpose {
		return nil, errors.New("invalid token purpose")
	}
	if time.Now().Unix() > claims.ExpiresAt {
		return nil, errors.New("token expired")
	}
	return &claims, nil
}
