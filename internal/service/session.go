package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-booking/internal/logger"
	"github.com/iliyamo/hotel-booking/internal/model"
	"github.com/iliyamo/hotel-booking/internal/repository"
	"github.com/iliyamo/hotel-booking/internal/utils"
)

// CredentialStore is the part of *repository.UserRepo the session flow uses.
type CredentialStore interface {
	Create(ctx context.Context, username, password string, role model.Role, hotelID *uint64, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// RefreshStore is the part of *repository.TokenRepo the session flow uses.
type RefreshStore interface {
	Issue(ctx context.Context, userID uint64) (repository.Issued, error)
	Rotate(ctx context.Context, raw string) (*repository.Rotation, error)
	Revoke(ctx context.Context, raw string) error
	RevokeAll(ctx context.Context, userID uint64) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// Session is what a successful login or refresh hands back.
type Session struct {
	Access  utils.AccessToken
	Refresh repository.Issued
	User    model.User
}

// SessionService implements login, refresh and logout.  It keeps no state
// of its own; every call goes to the stores.
type SessionService struct {
	Users      CredentialStore
	Tokens     RefreshStore
	Codec      *utils.TokenCodec
	BcryptCost int
}

func NewSessionService(users CredentialStore, tokens RefreshStore, codec *utils.TokenCodec, bcryptCost int) *SessionService {
	return &SessionService{Users: users, Tokens: tokens, Codec: codec, BcryptCost: bcryptCost}
}

// Register creates a guest account.
func (s *SessionService) Register(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("", "username and password are required")
	}
	id, err := s.Users.Create(ctx, username, password, model.RoleUser, nil, s.BcryptCost)
	if err != nil {
		return nil, err
	}
	return &model.User{ID: id, Username: username, Role: model.RoleUser}, nil
}

// Login checks credentials and opens a session.  Unknown usernames and
// wrong passwords fail identically.  If the refresh token cannot be stored
// the login fails.
func (s *SessionService) Login(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, invalid("", "username and password are required")
	}

	u, err := s.Users.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		utils.BurnPasswordCheck(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	access, err := s.Codec.Issue(*u)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := s.Tokens.Issue(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Access: access, Refresh: refresh, User: *u}, nil
}

// Refresh rotates the refresh token and signs a new access token for its
// owner.  Any unusable token is ErrInvalidOrExpiredToken.  A persistence
// failure during rotation is returned as is; the old token is already dead
// at that point so the client has to log in again.
func (s *SessionService) Refresh(ctx context.Context, raw string) (*Session, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	rot, err := s.Tokens.Rotate(ctx, raw)
	if errors.Is(err, repository.ErrTokenInvalid) {
		return nil, ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, err
	}
	access, err := s.Codec.Issue(rot.User)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &Session{Access: access, Refresh: rot.Issued, User: rot.User}, nil
}

// Logout revokes raw.  It never fails from the caller's point of view.
func (s *SessionService) Logout(ctx context.Context, raw string) {
	if strings.TrimSpace(raw) == "" {
		return
	}
	if err := s.Tokens.Revoke(ctx, raw); err != nil {
		logger.WithContext(ctx).Error("logout: revoke refresh token", "error", err)
	}
}

// LogoutAll revokes every refresh token of userID.  Like Logout it reports
// success regardless; store failures are logged.
func (s *SessionService) LogoutAll(ctx context.Context, userID uint64) {
	if err := s.Tokens.RevokeAll(ctx, userID); err != nil {
		logger.WithContext(ctx).Error("logout-all: revoke user tokens", "user_id", userID, "error", err)
	}
}

// Cleanup purges revoked and expired refresh tokens.
func (s *SessionService) Cleanup(ctx context.Context) (int64, error) {
	return s.Tokens.CleanupExpired(ctx)
}
