package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles carried in the token. The chat transport calls the user-facing API
// as RoleTransport; humans log in as RoleOperator.
const (
	RoleTransport = "transport"
	RoleOperator  = "operator"
)

var ErrUnknownRole = errors.New("auth: unknown role")

type TokenService struct {
	Secret   []byte
	Issuer   string
	Duration time.Duration
}

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func ValidRole(role string) bool {
	return role == RoleTransport || role == RoleOperator
}

// Sign issues a token for subject with role. A zero Duration yields a token
// without expiry, which is how long-lived transport credentials are minted.
func (ts TokenService) Sign(subject, role string) (string, time.Time, error) {
	if !ValidRole(role) {
		return "", time.Time{}, fmt.Errorf("sign token: %w: %q", ErrUnknownRole, role)
	}
	now := time.Now()

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   ts.Issuer,
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	var exp time.Time
	if ts.Duration > 0 {
		exp = now.Add(ts.Duration)
		claims.ExpiresAt = jwt.NewNumericDate(exp)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(ts.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return s, exp, nil
}

func (ts TokenService) Parse(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if ts.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(ts.Issuer))
	}
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		return ts.Secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if !ValidRole(claims.Role) {
		return nil, ErrUnknownRole
	}
	return claims, nil
}
