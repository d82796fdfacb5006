package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// DefaultSessionTTL is used when the service is built with a non-positive TTL.
const DefaultSessionTTL = 24 * time.Hour

// Claims carries the session fields inside the signed token.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTService signs and validates session tokens.
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret and session lifetime.
func NewJWTService(secret string, ttl time.Duration) *JWTService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &JWTService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// IssueSession starts a new authenticated session and returns it with its signed token.
func (s *JWTService) IssueSession(email, username string) (*Session, string, error) {
	now := s.now()
	sess := &Session{
		ID:            uuid.New().String(),
		Authenticated: true,
		Email:         email,
		Username:      username,
		ExpiresAt:     now.Add(s.ttl).Truncate(time.Second),
	}

	claims := &Claims{
		Email:    email,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, "", err
	}
	return sess, token, nil
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" || claims.Email == "" || claims.Username == "" {
		return nil, errors.New("incomplete session claims")
	}
	return claims, nil
}

// Session rebuilds the session carried by validated claims.
func (c *Claims) Session() *Session {
	sess := &Session{
		ID:            c.ID,
		Authenticated: true,
		Email:         c.Email,
		Username:      c.Username,
	}
	if c.ExpiresAt != nil {
		sess.ExpiresAt = c.ExpiresAt.Time
	}
	return sess
}
