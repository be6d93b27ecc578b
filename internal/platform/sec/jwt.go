// Copyright (c) 2026 Tablegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides bearer-token verification for the gateway.
//
// # Architecture
//
// This package isolates security-sensitive code (JWT parsing and signature
// checks) from the request pipeline. It is injected into the middleware via
// the TokenVerifier interface defined there.
//
// # Why a claim map instead of typed claims?
//
// The gateway has no fixed identity model: whatever claims the issuer puts in
// the token are forwarded verbatim to the database as session variables
// (`SET @request_jwt_claim_<key> = ...`) for row-level-security policies to
// consume. A heterogeneous map is therefore the honest representation.
package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the per-request claim map decoded from a verified bearer token.
//
// Values keep the shapes encoding/json produces: string, float64, bool, nil,
// map[string]any and []any. The executor serializes non-scalar values to JSON
// text before binding them as session variables.
type Claims map[string]any

// String returns the claim under key as a string, or "" when absent or not
// a string. Convenience for logging and tests.
func (c Claims) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// TokenService verifies (and, mainly for tests, issues) HS256 JWT tokens
// using the symmetric secret from configuration.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService around the shared secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// VerifyToken checks the signature and validity of a JWT string and returns
// its claim map.
//
// Only HMAC signing methods are accepted. Allowing the token header to pick
// the algorithm would permit the classic RS256→HS256 downgrade.
func (service *TokenService) VerifyToken(tokenString string) (Claims, error) {
	claims := jwt.MapClaims{}

	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sec: invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("sec: invalid token claims")
	}

	return Claims(claims), nil
}

// GenerateToken signs a claim map with HS256.
//
// The gateway itself never issues tokens in production; this exists for the
// administrative tooling and the test suite.
func (service *TokenService) GenerateToken(claims Claims, timeToLive time.Duration) (string, error) {
	payload := jwt.MapClaims{}
	for key, value := range claims {
		payload[key] = value
	}
	if timeToLive > 0 {
		payload["exp"] = jwt.NewNumericDate(time.Now().Add(timeToLive))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	signedToken, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}

	return signedToken, nil
}
