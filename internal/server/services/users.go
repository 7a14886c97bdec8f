// This file implements UserService, which handles registration, account
// activation, login, password management, and issuing/refreshing JWTs plus
// server-stored refresh tokens.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/avezhnov/ctfdeck/internal/common"
	"github.com/avezhnov/ctfdeck/internal/dbx"
	"github.com/avezhnov/ctfdeck/internal/server/auth"
	"github.com/avezhnov/ctfdeck/internal/server/config"
	"github.com/avezhnov/ctfdeck/internal/server/models"
	"github.com/avezhnov/ctfdeck/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is what a successful login hands back to the transport layer.
// MustChangePassword is set for admin-created accounts on their first login
// (active but never verified), so the UI can force a password change.
type LoginResult struct {
	Tokens             *TokenPair
	User               *models.User
	MustChangePassword bool
}

// RegisterRequest carries the self-registration fields.
type RegisterRequest struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// UserService provides account-lifecycle operations:
//   - Register / Activate: create players and verify their email
//   - Login: verify credentials and mint tokens
//   - RefreshToken: rotate refresh tokens and mint new access tokens
//   - ChangePassword / RequestPasswordReset / ResetPassword
//   - Profile reads and updates
type UserService struct {
	db                              *sql.DB
	repomanager                     repomanager.RepositoryManager
	verifier                        *Verifier
	mailer                          Mailer
	jwtSecret                       []byte
	baseURL                         string
	bcryptCost                      int
	accessTokenValidityDuration     time.Duration
	refreshTokenValidityDuration    time.Duration
	activationTokenValidityDuration time.Duration
	resetTokenValidityDuration      time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, mailer Mailer, cfg *config.Config) *UserService {
	return &UserService{
		db:                              db,
		repomanager:                     m,
		verifier:                        NewVerifier(m.Users(db), cfg.BcryptCost),
		mailer:                          mailer,
		jwtSecret:                       []byte(cfg.SecretKey),
		baseURL:                         cfg.BaseURL,
		bcryptCost:                      cfg.BcryptCost,
		accessTokenValidityDuration:     cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration:    cfg.RefreshTokenValidityDuration,
		activationTokenValidityDuration: cfg.ActivationTokenValidityDuration,
		resetTokenValidityDuration:      cfg.ResetTokenValidityDuration,
	}
}

// Register creates a new player account. The account can log in right away,
// but stays unverified until the emailed activation link is used; until then
// every login carries the password-change hint of the first-login flow.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if err := validateUsername(req.Username); err != nil {
		return nil, err
	}
	if err := validateEmail(req.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}
	if err := validateName("first name", req.FirstName, maxFirstNameLength); err != nil {
		return nil, err
	}
	if err := validateName("last name", req.LastName, maxLastNameLength); err != nil {
		return nil, err
	}

	hash, err := generateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, common.ErrorInternal
	}

	user := &models.User{
		Username:      req.Username,
		Email:         req.Email,
		FirstName:     req.FirstName,
		LastName:      req.LastName,
		PasswordHash:  string(hash),
		Type:          models.UserTypePlayer,
		IsActive:      true,
		EmailVerified: false,
	}

	repo := s.repomanager.Users(s.db)
	u, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	token, err := auth.GenerateToken(u.ID, auth.PurposeActivate,
		activationState(u), s.jwtSecret, s.activationTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if err := s.mailer.SendActivationEmail(ctx, u, s.baseURL+"/activate?token="+token); err != nil {
		// The account exists; a failed mail must not roll it back.
		return u, nil
	}
	return u, nil
}

// Activate consumes an activation token, marking the account active with a
// verified email. The token is one-shot: it embeds the pre-activation state
// fingerprint and stops matching as soon as the flag flips.
func (s *UserService) Activate(ctx context.Context, token string) error {
	claims, err := auth.ParseToken(token, auth.PurposeActivate, s.jwtSecret)
	if err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}
	if claims.State != activationState(user) {
		return common.ErrInvalidToken
	}

	if err := repo.Activate(ctx, user.ID); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// Login verifies the identifier/password pair and, on success, stamps the
// account's activity time and returns a fresh TokenPair.
//
// Unknown identifier and wrong password both yield ErrInvalidCredentials; a
// correct password on a disabled account yields ErrAccountInactive. The
// transport layer must answer both with the same generic message.
func (s *UserService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	user, err := s.verifier.Verify(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateAccount) {
			return nil, err
		}
		return nil, common.ErrorInternal
	}
	if user == nil {
		return nil, common.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, common.ErrAccountInactive
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateLastActive(ctx, user.ID); err != nil {
		return nil, common.ErrorInternal
	}

	pair, err := s.generateTokenPair(ctx, user.ID, s.db)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Tokens:             pair,
		User:               user,
		MustChangePassword: user.IsActive && !user.EmailVerified,
	}, nil
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Expired tokens yield ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	repo := s.repomanager.RefreshTokens(s.db)

	token, err := repo.Find(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error searching refresh token: %w", err)
	}
	if token.Expires.Before(time.Now()) {
		return nil, common.ErrRefreshTokenExpired
	}

	var pair *TokenPair
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repoTx := s.repomanager.RefreshTokens(tx)
		if err := repoTx.Delete(ctx, refreshToken); err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		var genErr error
		pair, genErr = s.generateTokenPair(ctx, token.UserID, tx)
		return genErr
	}); err != nil {
		return nil, err
	}

	return pair, nil
}

// Logout revokes the presented refresh token. Unknown tokens are not an
// error; logout is idempotent.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	repo := s.repomanager.RefreshTokens(s.db)
	if err := repo.Delete(ctx, refreshToken); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// ChangePassword verifies the current password, stores a new hash, and
// revokes every refresh token of the account. On a still-unverified account
// it also completes the first-login flow: setting one's own password counts
// as taking ownership, so the verified flag flips and the password-change
// hint stops appearing.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}
	if compareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		return common.ErrInvalidCredentials
	}

	if err := s.storePassword(ctx, user.ID, newPassword); err != nil {
		return err
	}
	if !user.EmailVerified {
		if err := repo.Activate(ctx, user.ID); err != nil {
			return common.ErrorInternal
		}
	}
	return nil
}

// RequestPasswordReset mints a reset token for the active account behind
// email and hands the link to the mailer. The address must match the email
// column, not a username. An unknown address or a disabled account is
// silently ignored so the endpoint cannot be used to enumerate accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	repo := s.repomanager.Users(s.db)
	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}
	if !user.IsActive {
		return nil
	}

	token, err := auth.GenerateToken(user.ID, auth.PurposePasswordReset,
		resetState(user), s.jwtSecret, s.resetTokenValidityDuration)
	if err != nil {
		return common.ErrorInternal
	}
	return s.mailer.SendPasswordResetEmail(ctx, user, s.baseURL+"/password/reset?token="+token)
}

// ResetPassword consumes a reset token and stores a new password hash. The
// token embeds a fingerprint of the hash it was minted against, so it stops
// working the moment the password changes.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := auth.ParseToken(token, auth.PurposePasswordReset, s.jwtSecret)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidToken
		}
		return common.ErrorInternal
	}
	if claims.State != resetState(user) {
		return common.ErrInvalidToken
	}

	return s.storePassword(ctx, user.ID, newPassword)
}

// TouchActivity stamps the account's last-active time. Called per
// authenticated request; a vanished account is not an error here.
func (s *UserService) TouchActivity(ctx context.Context, userID string) error {
	err := s.repomanager.Users(s.db).UpdateLastActive(ctx, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	return nil
}

// GetProfile returns the account behind userID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return user, nil
}

// UpdateProfile changes the editable profile fields and returns the updated
// account.
func (s *UserService) UpdateProfile(ctx context.Context, userID, firstName, lastName string) (*models.User, error) {
	if err := validateName("first name", firstName, maxFirstNameLength); err != nil {
		return nil, err
	}
	if err := validateName("last name", lastName, maxLastNameLength); err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.UpdateProfile(ctx, userID, firstName, lastName); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, common.ErrorInternal
	}
	return s.GetProfile(ctx, userID)
}

// --- helpers below ---

func activationState(u *models.User) string {
	return auth.StateFingerprint(u.ID, strconv.FormatBool(u.EmailVerified))
}

func resetState(u *models.User) string {
	return auth.StateFingerprint(u.ID, u.PasswordHash)
}

// storePassword hashes newPassword and, in one transaction, replaces the
// stored hash and revokes all refresh tokens of the account.
func (s *UserService) storePassword(ctx context.Context, userID, newPassword string) error {
	hash, err := generateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return common.ErrorInternal
	}

	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, userID, string(hash)); err != nil {
			return err
		}
		return s.repomanager.RefreshTokens(tx).DeleteForUser(ctx, userID)
	}); err != nil {
		return common.ErrorInternal
	}
	return nil
}

func (s *UserService) generateTokenPair(ctx context.Context, userID string, tx dbx.DBTX) (*TokenPair, error) {
	access, err := auth.GenerateToken(userID, auth.PurposeAccess, "", s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := common.MakeRandHexString(32)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, userID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
