package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

type QuoteClaims struct {
	QuoteID string `json:"quoteId"`
	jwt.StandardClaims
}

// NewToken signs a token for the quote. The token expires together with the
// quote, QuoteDuration after issuedAt.
func NewToken(quoteID string, issuedAt time.Time) (string, error) {
	claims := QuoteClaims{
		QuoteID: quoteID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  issuedAt.Unix(),
			ExpiresAt: issuedAt.Add(config.QuoteDuration).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.Secret))
}

func ParseToken(token string) (*QuoteClaims, error) {
	var claims QuoteClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errInvalidToken
		}
		return []byte(config.Secret), nil
	})
	var validationErr *jwt.ValidationError
	if errors.As(err, &validationErr) && validationErr.Errors&jwt.ValidationErrorExpired != 0 {
		return nil, errTokenExpired
	}
	if err != nil {
		return nil, err
	}
	if !t.Valid || claims.QuoteID == "" {
		return nil, errInvalidToken
	}
	return &claims, nil
}

func NewSecret() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(b)), nil
}
