// Package storage keeps private objects on local disk and hands out
// short-lived signed URLs for them.
package storage

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const objectRoute = "/storage/v1/object/"

var ErrInvalidToken = errors.New("invalid or expired token")

// Signer issues HS256 tokens bound to a single object path.
type Signer struct {
	secret  []byte
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

func NewSigner(secret, baseURL string, ttl time.Duration) *Signer {
	return &Signer{
		secret:  []byte(secret),
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SignURL returns a URL that serves the object at path until the TTL runs out.
func (s *Signer) SignURL(path string) (string, error) {
	clean, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	claims := jwt.MapClaims{
		"path": clean,
		"exp":  s.now().Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s: %w", clean, err)
	}
	return s.baseURL + objectRoute + escapePath(clean) + "?token=" + url.QueryEscape(token), nil
}

// Verify checks that token is unexpired and was issued for path.
func (s *Signer) Verify(token, path string) error {
	clean, err := cleanPath(path)
	if err != nil {
		return ErrInvalidToken
	}
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return ErrInvalidToken
	}
	if _, ok := claims["exp"]; !ok {
		return ErrInvalidToken
	}
	if p, _ := claims["path"].(string); p != clean {
		return ErrInvalidToken
	}
	return nil
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
