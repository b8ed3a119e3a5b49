// Package services contains server-side business logic: staff accounts and
// tokens, the package catalog, the client registry, the reservation ledger,
// capacity reporting and the audit log.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/tourdesk/internal/common"
	"github.com/dmitrijs2005/tourdesk/internal/dbx"
	"github.com/dmitrijs2005/tourdesk/internal/logging"
	"github.com/dmitrijs2005/tourdesk/internal/server/auth"
	"github.com/dmitrijs2005/tourdesk/internal/server/config"
	"github.com/dmitrijs2005/tourdesk/internal/server/metrics"
	"github.com/dmitrijs2005/tourdesk/internal/server/models"
	"github.com/dmitrijs2005/tourdesk/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/tourdesk/internal/server/sessions"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput is what a prospective staff member submits at signup.
type RegisterInput struct {
	UserName   string
	Email      string
	Password   string
	SecretCode string
}

// UserService handles staff accounts and their tokens:
//   - Register / CreateAdmin: create actors with a fixed role
//   - Login / Logout: issue and end sessions, both audited
//   - RefreshToken: rotate refresh tokens and mint new access tokens
//   - Authenticate: turn an access token into the calling actor
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	hasher                       auth.PasswordHasher
	promotion                    auth.PromotionPolicy
	revoker                      sessions.Revoker
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	hasher auth.PasswordHasher, promotion auth.PromotionPolicy, revoker sessions.Revoker, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		hasher:                       hasher,
		promotion:                    promotion,
		revoker:                      revoker,
		logger:                       logger.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// Register creates a staff account. The role comes from the promotion
// policy and never changes afterwards.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	role := s.promotion.RoleFor(in.SecretCode)
	return s.createUser(ctx, in, role, models.ActionUserRegister, func(u *models.User) string {
		return fmt.Sprintf("User %s registered as %s.", u.UserName, u.Role)
	})
}

// CreateAdmin creates an admin account out of band. The audit entry names
// the new admin as its own actor.
func (s *UserService) CreateAdmin(ctx context.Context, userName, email, password string) (*models.User, error) {
	in := RegisterInput{UserName: userName, Email: email, Password: password}
	return s.createUser(ctx, in, models.RoleAdmin, models.ActionAdminCreate, func(u *models.User) string {
		return fmt.Sprintf("Admin %s created.", u.UserName)
	})
}

func (s *UserService) createUser(ctx context.Context, in RegisterInput, role models.Role, action string, describe func(*models.User) string) (*models.User, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = models.NormalizeEmail(in.Email)

	verr := &common.ValidationError{}
	checkLength(verr, "username", in.UserName, 4, 80)
	checkEmail(verr, "email", in.Email)
	if n := len(in.Password); n < 6 || n > 72 {
		verr.Add("password", "must be between 6 and 72 characters")
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, classify(ctx, s.logger, "hash password", err)
	}

	user := &models.User{UserName: in.UserName, Email: in.Email, PasswordHash: hash, Role: role}
	var entry *models.AuditEntry

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Users(tx)

		if err := ensureAbsent(repo.GetByUserName(ctx, in.UserName)); err != nil {
			return fmt.Errorf("%w: username %q is already taken", err, in.UserName)
		}
		if err := ensureAbsent(repo.GetByEmail(ctx, in.Email)); err != nil {
			return fmt.Errorf("%w: email %q is already registered", err, in.Email)
		}

		if _, err := repo.Create(ctx, user); err != nil {
			return err
		}

		entry = &models.AuditEntry{
			UserID:      user.ID,
			Action:      action,
			Description: describe(user),
			CreatedAt:   s.now(),
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return nil, classify(ctx, s.logger, "create user", err)
	}
	committed(entry)

	s.logger.Info(ctx, "user created", "username", user.UserName, "role", string(user.Role))
	return user, nil
}

// ensureAbsent turns the result of a uniqueness lookup into
// common.ErrorConflict when a row was found.
func ensureAbsent(_ *models.User, err error) error {
	switch {
	case err == nil:
		return common.ErrorConflict
	case errors.Is(err, common.ErrorNotFound):
		return nil
	default:
		return err
	}
}

// Login verifies credentials and, on success, stores a refresh token and
// records the login in one transaction.
func (s *UserService) Login(ctx context.Context, userName, password string) (*TokenPair, *models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, strings.TrimSpace(userName))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.LoginsTotal.WithLabelValues("denied").Inc()
			return nil, nil, common.ErrorUnauthorized
		}
		return nil, nil, classify(ctx, s.logger, "login", err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		metrics.LoginsTotal.WithLabelValues("denied").Inc()
		return nil, nil, common.ErrorUnauthorized
	}

	var pair *TokenPair
	entry := &models.AuditEntry{
		UserID:      user.ID,
		Action:      models.ActionLogin,
		Description: fmt.Sprintf("User %s logged in.", user.UserName),
		CreatedAt:   s.now(),
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.RefreshTokens(tx).DeleteExpired(ctx, user.ID, s.now()); err != nil {
			return err
		}
		var err error
		if pair, err = s.generateTokenPair(ctx, user, tx); err != nil {
			return err
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return nil, nil, classify(ctx, s.logger, "login", err)
	}
	committed(entry)
	metrics.LoginsTotal.WithLabelValues("ok").Inc()

	return pair, user, nil
}

// Logout drops refreshToken and records the logout in one transaction, then
// revokes the access token tokenID until its expiry. Revocation is best
// effort: a failure is logged and the logout still succeeds.
func (s *UserService) Logout(ctx context.Context, actor models.Actor, refreshToken, tokenID string, tokenExpires time.Time) error {
	entry := &models.AuditEntry{
		UserID:      actor.ID,
		Action:      models.ActionLogout,
		Description: fmt.Sprintf("User %s logged out.", actor.UserName),
		CreatedAt:   s.now(),
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if refreshToken != "" {
			if err := s.repomanager.RefreshTokens(tx).Delete(ctx, refreshToken); err != nil {
				return err
			}
		}
		return appendAudit(ctx, s.repomanager, tx, entry)
	})
	if err != nil {
		return classify(ctx, s.logger, "logout", err)
	}
	committed(entry)

	if tokenID != "" {
		if err := s.revoker.Revoke(ctx, tokenID, tokenExpires); err != nil {
			s.logger.Warn(ctx, "access token not revoked", "username", actor.UserName, "error", err)
		}
	}
	return nil
}

// RefreshToken exchanges a refresh token for a fresh TokenPair. The old
// token is consumed in the same transaction that stores its successor, so
// it can be used at most once. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair *TokenPair
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return err
		}
		if token.Expires.Before(s.now()) {
			return common.ErrRefreshTokenExpired
		}
		user, err := s.repomanager.Users(tx).GetByID(ctx, token.UserID)
		if err != nil {
			return err
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	})
	if err != nil {
		return nil, classify(ctx, s.logger, "refresh token", err)
	}
	return pair, nil
}

// Authenticate verifies an access token and checks it was not revoked.
func (s *UserService) Authenticate(ctx context.Context, accessToken string) (*auth.Claims, error) {
	claims, err := auth.ParseToken(accessToken, s.jwtSecret)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, classify(ctx, s.logger, "revocation check", err)
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

// --- helpers below ---

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(user.Actor(), s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, err
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, err
	}
	rt := &models.RefreshToken{UserID: user.ID, Token: refresh, Expires: s.now().Add(s.refreshTokenValidityDuration)}
	if err := s.repomanager.RefreshTokens(tx).Create(ctx, rt); err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
