package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"libretto/internal/apierror"
)

const (
	useAccess  = "access"
	useRefresh = "refresh"
)

// Claims carries the authenticated identity inside a signed token.
type Claims struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Role     Role      `json:"role"`
	TokenUse string    `json:"token_use"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful credential exchange returns.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenManager issues and verifies HS256-signed access and refresh tokens.
// Verification is stateless; nothing is stored between requests.
type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// IssuePair signs a fresh access/refresh token pair for the user.
func (m *TokenManager) IssuePair(userID uuid.UUID, username string, role Role) (*TokenPair, error) {
	access, err := m.sign(userID, username, role, useAccess, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(userID, username, role, useRefresh, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

func (m *TokenManager) sign(userID uuid.UUID, username string, role Role, use string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		Role:     role,
		TokenUse: use,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "libretto",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// VerifyAccess parses and validates an access token.
func (m *TokenManager) VerifyAccess(tokenString string) (*Claims, error) {
	return m.verify(tokenString, useAccess)
}

// Refresh validates a refresh token and issues a new access token for the
// same identity. The refresh token itself is not rotated.
func (m *TokenManager) Refresh(refreshToken string) (string, error) {
	claims, err := m.verify(refreshToken, useRefresh)
	if err != nil {
		return "", err
	}
	return m.sign(claims.UserID, claims.Username, claims.Role, useAccess, m.accessTTL)
}

func (m *TokenManager) verify(tokenString, expectedUse string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return m.secret, nil
		})
	if err != nil || !token.Valid {
		return nil, apierror.Authentication("invalid or expired token")
	}
	if claims.TokenUse != expectedUse {
		return nil, apierror.Authentication("wrong token type")
	}
	if !claims.Role.Valid() {
		return nil, apierror.Authentication("unknown role in token")
	}
	return claims, nil
}
