// Package auth issues and validates the bearer tokens of the admin API.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Roles understood by the API.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
	// RoleOperator is a platform operator. Operator tokens may omit the
	// company and then see every tenant.
	RoleOperator = "operator"
)

const issuer = "trail"

// Claims holds the JWT token payload.
type Claims struct {
	jwt.RegisteredClaims
	CompanyID *int64 `json:"cid,omitempty"`
	UserID    int64  `json:"uid"`
	Role      string `json:"role"`
}

var (
	// ErrInvalidToken is returned when a JWT cannot be parsed or has expired.
	ErrInvalidToken = errors.New("auth: invalid or expired token")
	ErrUnknownRole  = errors.New("auth: unknown role")
	// ErrCompanyRequired is returned for non-operator claims without a company.
	ErrCompanyRequired = errors.New("auth: company required")
)

// IssueAccessToken creates a signed JWT access token with a random token id.
func IssueAccessToken(secret string, companyID *int64, userID int64, role string, ttl time.Duration) (string, error) {
	if err := checkRole(companyID, role); err != nil {
		return "", fmt.Errorf("auth.IssueAccessToken: %w", err)
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		CompanyID: companyID,
		UserID:    userID,
		Role:      role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("auth.IssueAccessToken: %w", err)
	}

	return signed, nil
}

// ValidateToken parses and validates a JWT token string. Returns the embedded claims.
func ValidateToken(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if !token.Valid {
		return nil, fmt.Errorf("auth.ValidateToken: %w", ErrInvalidToken)
	}

	if err := checkRole(claims.CompanyID, claims.Role); err != nil {
		return nil, fmt.Errorf("auth.ValidateToken: %w: %w", ErrInvalidToken, err)
	}

	return claims, nil
}

func checkRole(companyID *int64, role string) error {
	switch role {
	case RoleOperator:
		return nil
	case RoleMember, RoleAdmin:
		if companyID == nil {
			return ErrCompanyRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
}
