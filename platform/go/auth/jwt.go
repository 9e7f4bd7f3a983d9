package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the JWT payload issued at login. ClinicKey selects the
// tenant database for clinic-bound staff; platform admins carry no clinic.
type SessionClaims struct {
	Username  string `json:"username"`
	Role      string `json:"role"`
	ClinicKey string `json:"clinic_key,omitempty"`
	jwt.RegisteredClaims
}

// Signer signs and verifies HMAC session tokens.
type Signer struct {
	secret []byte
	ttl    time.Duration
}

// NewSigner builds a Signer from the shared secret.
func NewSigner(secret string, ttl time.Duration) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Signer{secret: []byte(secret), ttl: ttl}, nil
}

// Sign issues a session token for the given credentials.
func (s *Signer) Sign(creds UserCredentials) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		Username:  creds.Username,
		Role:      creds.Role,
		ClinicKey: creds.ClinicKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(creds.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Parse verifies a session token and returns the embedded credentials.
func (s *Signer) Parse(token string) (*UserCredentials, error) {
	var claims SessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid session token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse subject claim: %w", err)
	}

	return &UserCredentials{
		UserID:    userID,
		Username:  claims.Username,
		Role:      claims.Role,
		ClinicKey: claims.ClinicKey,
	}, nil
}
