package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

// TokenClaims is the decoded content of a bearer token.
type TokenClaims struct {
	UserID   uint
	IssuedAt time.Time
}

// TokenCodec issues bearer tokens and decodes them back to claims.
// Decode failures always wrap ErrMalformedToken.
type TokenCodec interface {
	Issue(userID uint) (string, error)
	Decode(token string) (TokenClaims, error)
}

const legacyTokenPrefix = "token_"

// LegacyTokenCodec produces tokens of the form token_<userID>_<epochMillis>.
// They carry no signature and never expire: anyone who knows a user id can
// forge one. Use JWTTokenCodec unless clients depend on this format.
type LegacyTokenCodec struct {
	now func() time.Time
}

// NewLegacyTokenCodec creates a LegacyTokenCodec.
func NewLegacyTokenCodec() *LegacyTokenCodec {
	return &LegacyTokenCodec{now: time.Now}
}

// Issue returns a token for userID stamped with the current time.
func (c *LegacyTokenCodec) Issue(userID uint) (string, error) {
	return fmt.Sprintf("%s%d_%d", legacyTokenPrefix, userID, c.now().UnixMilli()), nil
}

// Decode parses a token produced by Issue.
func (c *LegacyTokenCodec) Decode(token string) (TokenClaims, error) {
	rest, ok := strings.CutPrefix(token, legacyTokenPrefix)
	if !ok {
		return TokenClaims{}, fmt.Errorf("%w: missing %q prefix", ErrMalformedToken, legacyTokenPrefix)
	}
	idPart, issuedPart, ok := strings.Cut(rest, "_")
	if !ok || strings.Contains(issuedPart, "_") {
		return TokenClaims{}, fmt.Errorf("%w: expected token_<id>_<millis>", ErrMalformedToken)
	}
	id, err := strconv.ParseUint(idPart, 10, 0)
	if err != nil || id == 0 {
		return TokenClaims{}, fmt.Errorf("%w: invalid user id", ErrMalformedToken)
	}
	millis, err := strconv.ParseUint(issuedPart, 10, 63)
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: invalid issue time", ErrMalformedToken)
	}
	return TokenClaims{UserID: uint(id), IssuedAt: time.UnixMilli(int64(millis))}, nil
}

// JWTTokenCodec issues HS256-signed JWTs with an expiry.
type JWTTokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTTokenCodec creates a JWTTokenCodec.
func NewJWTTokenCodec(secret string, ttl time.Duration) *JWTTokenCodec {
	return &JWTTokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token whose subject is userID.
func (c *JWTTokenCodec) Issue(userID uint) (string, error) {
	now := c.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(c.ttl).Unix(),
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of token and returns its claims.
func (c *JWTTokenCodec) Decode(token string) (TokenClaims, error) {
	claims := &jwt.StandardClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !parsed.Valid {
		return TokenClaims{}, ErrMalformedToken
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 0)
	if err != nil || id == 0 {
		return TokenClaims{}, fmt.Errorf("%w: invalid subject", ErrMalformedToken)
	}
	return TokenClaims{UserID: uint(id), IssuedAt: time.Unix(claims.IssuedAt, 0)}, nil
}
