package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tasktracker/internal/auth"
	"tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	User    *model.User
	Session *auth.Session
	Token   string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, name, username, email, password string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, token string) (*auth.Session, error)
	Logout(ctx context.Context, sess *auth.Session) error
}

type authService struct {
	userRepo     repository.UserRepository
	jwtService   *auth.JWTService
	sessionStore auth.SessionStoreInterface
	now          func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, sessionStore auth.SessionStoreInterface) AuthService {
	return &authService{
		userRepo:     userRepo,
		jwtService:   jwtService,
		sessionStore: sessionStore,
		now:          time.Now,
	}
}

// Register creates a credential record with a hashed password. It does not log the user in.
func (s *authService) Register(ctx context.Context, name, username, email, password string) (*model.User, error) {
	taken, err := s.userRepo.ExistsByIdentity(ctx, name, username, email)
	if err != nil {
		return nil, fmt.Errorf("check user existence: %w", err)
	}
	if taken {
		return nil, errors.ErrUserAlreadyExists
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:         name,
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if stderrors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// Login checks the password against the stored hash and starts a session.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, password) {
		return nil, errors.ErrInvalidCredentials
	}

	sess, token, err := s.jwtService.IssueSession(user.Email, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	return &LoginResult{User: user, Session: sess, Token: token}, nil
}

// Authenticate turns a session token into a session. Invalid, expired or
// logged out tokens yield errors.ErrUnauthenticated.
func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Session, error) {
	claims, err := s.jwtService.ValidateToken(token)
	if err != nil {
		return nil, errors.ErrUnauthenticated
	}

	revoked, err := s.sessionStore.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return nil, errors.ErrUnauthenticated
	}

	return claims.Session(), nil
}

// Logout revokes the session token and clears the session. It always succeeds.
func (s *authService) Logout(ctx context.Context, sess *auth.Session) error {
	if sess == nil {
		return nil
	}
	if sess.ID != "" {
		_ = s.sessionStore.Revoke(ctx, sess.ID, sess.ExpiresAt.Sub(s.now()))
	}
	sess.Clear()
	return nil
}
