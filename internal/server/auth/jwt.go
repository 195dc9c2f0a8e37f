// Package auth mints and verifies the HS256 tokens of the backend: access
// tokens carried by API calls, and object tokens embedded in the URLs of the
// local object store.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/SecurityWorks/ente/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const (
	audienceAccess = "access"
	audienceObject = "object"
)

// Claims are the claims of an access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// ObjectOp is what an object token allows.
type ObjectOp string

const (
	OpPut      ObjectOp = "put"
	OpGet      ObjectOp = "get"
	OpComplete ObjectOp = "complete"
)

// ObjectClaims authorize one operation on one object. Part is set for the
// parts of a multipart upload, UploadID for all its URLs.
type ObjectClaims struct {
	jwt.RegisteredClaims
	Op       ObjectOp `json:"op"`
	Key      string   `json:"key"`
	UploadID string   `json:"upl,omitempty"`
	Part     int      `json:"part,omitempty"`
}

func GenerateToken(userID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	return sign(&Claims{
		RegisteredClaims: registered(audienceAccess, validityDuration),
		UserID:           userID,
	}, secretKey)
}

// GetUserIDFromToken verifies an access token and returns its user.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}
	if err := parse(tokenString, claims, audienceAccess, secretKey); err != nil {
		return "", err
	}
	if claims.UserID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}

// GenerateObjectToken signs c with the given lifetime.
func GenerateObjectToken(c ObjectClaims, secretKey []byte, validityDuration time.Duration) (string, error) {
	c.RegisteredClaims = registered(audienceObject, validityDuration)
	return sign(&c, secretKey)
}

// ParseObjectToken verifies an object token and checks that it allows op.
func ParseObjectToken(tokenString string, op ObjectOp, secretKey []byte) (*ObjectClaims, error) {
	claims := &ObjectClaims{}
	if err := parse(tokenString, claims, audienceObject, secretKey); err != nil {
		return nil, err
	}
	if claims.Op != op || claims.Key == "" {
		return nil, fmt.Errorf("token is for %s, not %s: %w", claims.Op, op, common.ErrInvalidToken)
	}
	return claims, nil
}

func registered(audience string, validity time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}
}

func sign(claims jwt.Claims, secretKey []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

func parse(tokenString string, claims jwt.Claims, audience string, secretKey []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
