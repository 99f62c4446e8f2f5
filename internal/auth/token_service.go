package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mhemon/emon-blog-server/pkg"
)

// TokenTTL - issued tokens are valid for a fixed hour, no refresh, no
// rotation protocol; changing the signing secret invalidates all of them
const TokenTTL = time.Hour

var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity payload carried by an access token.
type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Photo string `json:"photo,omitempty"`
	jwt.RegisteredClaims
}

type TokenService struct {
	secret []byte
	ttl    time.Duration
	// injectable for unit and dev testing
	NowFunc        func() time.Time
	RandStringFunc func(s int) (string, error)
}

func NewTokenService(secret []byte) *TokenService {
	return &TokenService{
		secret:         secret,
		ttl:            TokenTTL,
		NowFunc:        time.Now,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Issue signs the given identity into a HS256 token, expiring TokenTTL
// from now.
func (ts *TokenService) Issue(email, name, photo string) (string, error) {
	jti, err := ts.RandStringFunc(16)
	if err != nil {
		return "", fmt.Errorf("generate token id: %w", err)
	}

	now := ts.NowFunc()
	claims := Claims{
		Email: email,
		Name:  name,
		Photo: photo,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ts.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify fails with ErrInvalidToken on a bad signature or expired token,
// otherwise returns the decoded claims.
func (ts *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return ts.secret, nil
		},
		jwt.WithTimeFunc(func() time.Time {
			return ts.NowFunc()
		}),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Email == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
