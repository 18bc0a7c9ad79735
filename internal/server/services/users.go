// Package services contains server-side business logic. This file implements
// UserService: registration, login, token refresh and logout, and the
// authorization gate that turns a bearer token into a user record.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/knifecatalog/internal/common"
	"github.com/dmitrijs2005/knifecatalog/internal/dbx"
	"github.com/dmitrijs2005/knifecatalog/internal/logging"
	"github.com/dmitrijs2005/knifecatalog/internal/server/auth"
	"github.com/dmitrijs2005/knifecatalog/internal/server/config"
	"github.com/dmitrijs2005/knifecatalog/internal/server/models"
	"github.com/dmitrijs2005/knifecatalog/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// UserService provides authentication-related operations.
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	issuer                       *auth.TokenIssuer
	hasher                       *auth.PasswordHasher
	denylist                     auth.Denylist
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	log                          logging.Logger
	now                          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewUserService constructs a UserService. denylist may be nil, in which
// case logout only drops the refresh token.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.TokenIssuer,
	denylist auth.Denylist, cfg *config.Config, log logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		issuer:                       issuer,
		hasher:                       auth.NewPasswordHasher(cfg.PasswordHashCost),
		denylist:                     denylist,
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		log:                          log.With("module", "users"),
		now:                          time.Now,
	}
}

// Register creates a user. A taken username yields common.ErrDuplicateUsername,
// both when seen up front and when a concurrent registration wins the race.
func (s *UserService) Register(ctx context.Context, username, password string, isAdmin bool) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: username and password are required", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)

	_, err := repo.GetUserByLogin(ctx, username)
	switch {
	case err == nil:
		return nil, common.ErrDuplicateUsername
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := repo.Create(ctx, &models.User{UserName: username, PasswordHash: digest, IsAdmin: isAdmin})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "username", username, "is_admin", isAdmin)
	return user, nil
}

// EnsureAdmin makes sure an admin account named username exists. An existing
// account is promoted and keeps its password.
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	_, err := s.Register(ctx, username, password, true)
	if !errors.Is(err, common.ErrDuplicateUsername) {
		return err
	}
	if err := s.repomanager.Users(s.db).SetAdmin(ctx, username, true); err != nil {
		return fmt.Errorf("error promoting user: %w", err)
	}
	s.log.Info(ctx, "admin ensured", "username", username)
	return nil
}

// Login checks the password and, on success, returns a new TokenPair.
// Unknown users and wrong passwords are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Verify(password, s.dummyDigest())
			return nil, common.ErrInvalidCredentials
		}
		s.log.Error(ctx, "user lookup failed", "error", err)
		return nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. The presented token can not be used again: the
// delete inside the transaction decides which of concurrent callers wins.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if !s.now().Before(token.Expires) {
		if err := repo.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
			s.log.Warn(ctx, "failed to drop expired refresh token", "error", err)
		}
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		user, err := s.repomanager.Users(tx).GetUserByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error searching user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	}); err != nil {
		return nil, err
	}
	return pair, nil
}

// Logout revokes accessToken until its natural expiry and drops refreshToken
// when it belongs to the same user. An empty refreshToken is allowed.
func (s *UserService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	identity, err := s.issuer.Verify(accessToken)
	if err != nil {
		return unauthorized(err)
	}

	if s.denylist != nil && identity.ID != "" {
		if err := s.denylist.Revoke(ctx, identity.ID, identity.ExpiresAt); err != nil {
			return fmt.Errorf("error revoking token: %w", err)
		}
	}

	if refreshToken == "" {
		return nil
	}

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, identity.Username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	repo := s.repomanager.RefreshTokens(s.db)
	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.UserID != user.ID {
		return nil
	}
	if err := repo.Delete(ctx, refreshToken); err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}

	s.log.Info(ctx, "user logged out", "username", identity.Username)
	return nil
}

// ResolveUser turns a bearer token into the stored user it names.
// Every authentication failure wraps common.ErrorUnauthorized together with
// the specific cause (ErrInvalidToken, ErrTokenExpired, ErrTokenRevoked or
// ErrorNotFound); store failures are returned as plain errors.
func (s *UserService) ResolveUser(ctx context.Context, token string) (*models.User, error) {
	identity, err := s.issuer.Verify(token)
	if err != nil {
		return nil, unauthorized(err)
	}

	if s.denylist != nil && identity.ID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, identity.ID)
		if err != nil {
			return nil, fmt.Errorf("error checking denylist: %w", err)
		}
		if revoked {
			return nil, unauthorized(common.ErrTokenRevoked)
		}
	}

	user, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, identity.Username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, unauthorized(err)
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}
	return user, nil
}

// RequireAdmin passes user through unchanged when it is an admin.
// The admin flag comes from the store, not from the token.
func (s *UserService) RequireAdmin(user *models.User) (*models.User, error) {
	if user == nil || !user.IsAdmin {
		return nil, common.ErrorForbidden
	}
	return user, nil
}

// Authorize composes ResolveUser and, when adminOnly is set, RequireAdmin.
func (s *UserService) Authorize(ctx context.Context, token string, adminOnly bool) (*models.User, error) {
	user, err := s.ResolveUser(ctx, token)
	if err != nil {
		return nil, err
	}
	if adminOnly {
		return s.RequireAdmin(user)
	}
	return user, nil
}

// PurgeExpiredRefreshTokens removes refresh tokens that can no longer be used.
func (s *UserService) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	n, err := s.repomanager.RefreshTokens(s.db).DeleteExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Debug(ctx, "expired refresh tokens purged", "count", n)
	}
	return n, nil
}

// --- helpers below ---

func unauthorized(cause error) error {
	return fmt.Errorf("%w: %w", common.ErrorUnauthorized, cause)
}

// dummyDigest is compared against when the user does not exist so that
// unknown usernames cost as much as wrong passwords.
func (s *UserService) dummyDigest() string {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.Hash("not-a-real-password")
		if err == nil {
			s.dummyHash = digest
		}
	})
	return s.dummyHash
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.issuer.Issue(user.UserName, user.IsAdmin, s.accessTokenValidityDuration)
	if err != nil {
		s.log.Error(ctx, "failed to issue access token", "error", err)
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		s.log.Error(ctx, "failed to store refresh token", "error", err)
		return nil, common.ErrorInternal
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.accessTokenValidityDuration,
	}, nil
}
