// Package token issues and verifies the HS256 bearer tokens handed out on login.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrMissingToken is returned when no token was presented.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken wraps parsing and validation errors, including expiry.
	ErrInvalidToken = errors.New("invalid bearer token")
)

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// Claims is the normalized payload of a verified token.
type Claims struct {
	Subject   string
	Role      string
	ExpiresAt time.Time
}

type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Issuer struct {
	conf  Config
	clock clockwork.Clock
}

func NewIssuer(conf Config, clock clockwork.Clock) *Issuer {
	return &Issuer{
		conf:  conf,
		clock: clock,
	}
}

// Issue signs a token for the given subject and role. It returns the token and its expiry.
func (i *Issuer) Issue(subject, role string) (string, time.Time, error) {
	now := i.clock.Now()
	exp := now.Add(i.conf.TTL)

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    i.conf.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})

	signed, err := t.SignedString([]byte(i.conf.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify validates a token and returns its claims.
func (i *Issuer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	var claims jwtClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(i.conf.Secret), nil
	},
		jwt.WithIssuer(i.conf.Issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
