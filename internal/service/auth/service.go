package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/radiology-api/internal/email"
	"github.com/jwalitptl/radiology-api/internal/model"
	"github.com/jwalitptl/radiology-api/internal/repository"
	"github.com/jwalitptl/radiology-api/pkg/auth"
	"github.com/jwalitptl/radiology-api/pkg/clock"
	"github.com/jwalitptl/radiology-api/pkg/errors"
	"github.com/jwalitptl/radiology-api/pkg/security"
)

const resetTokenExpiry = 1 * time.Hour

type Service struct {
	userRepo  repository.UserRepository
	tokenRepo repository.TokenRepository
	tokens    auth.TokenService
	emailSvc  email.Service
	clock     clock.Clock
	logger    *zerolog.Logger
}

func NewService(
	userRepo repository.UserRepository,
	tokenRepo repository.TokenRepository,
	tokens auth.TokenService,
	emailSvc email.Service,
	clk clock.Clock,
	logger *zerolog.Logger,
) *Service {
	return &Service{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		tokens:    tokens,
		emailSvc:  emailSvc,
		clock:     clk,
		logger:    logger,
	}
}

// Login verifies credentials and issues an access/refresh pair. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized("invalid credentials", err)
		}
		return nil, err
	}

	if !security.CheckPassword(user.PasswordHash, req.Password) {
		return nil, errors.Unauthorized("invalid credentials", nil)
	}
	if !user.IsActive {
		return nil, errors.Forbidden("account is deactivated", nil)
	}

	now := s.clock.Now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to stamp last login")
	}

	return s.issueTokens(user.ID)
}

// Resolve turns a bearer access token into the live user record. A credential
// issued before the user's most recent password change is void regardless of
// its own expiry. A structurally valid credential for a deactivated user is
// authenticated but forbidden.
func (s *Service) Resolve(ctx context.Context, accessToken string) (*model.User, error) {
	claims, err := s.tokens.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, errors.Unauthorized("invalid or expired token", err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized("user no longer exists", err)
		}
		return nil, err
	}

	if user.ChangedPasswordAfter(claims.IssuedAt) {
		return nil, errors.Unauthorized("password changed, please log in again", nil)
	}
	if !user.IsActive {
		return nil, errors.Forbidden("account is deactivated", nil)
	}

	return user, nil
}

// Refresh exchanges a refresh token for a fresh pair. Only the active flag is
// re-checked here; the access token produced will fail Resolve if the
// password has changed since.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errors.Unauthorized("invalid or expired refresh token", err)
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil, errors.Unauthorized("user no longer exists", err)
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.Forbidden("account is deactivated", nil)
	}

	return s.issueTokens(user.ID)
}

// ChangePassword verifies the current password and stamps
// password_changed_at, voiding every access token issued before now.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *model.ChangePasswordRequest) error {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return err
	}

	if !security.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return errors.Unauthorized("current password is incorrect", nil)
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return errors.Internal(err)
	}

	return s.userRepo.UpdatePassword(ctx, userID, hash, s.clock.Now())
}

// ForgotPassword issues a single-use reset token and mails it. The response
// is identical whether or not the email is known, so the endpoint cannot be
// used to probe for accounts.
func (s *Service) ForgotPassword(ctx context.Context, emailAddr string) error {
	user, err := s.userRepo.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, errors.ErrNotFound) {
			return nil
		}
		return err
	}

	token := uuid.NewString()
	expiry := s.clock.Now().Add(resetTokenExpiry)
	if err := s.tokenRepo.StoreResetToken(ctx, user.ID, token, expiry); err != nil {
		return err
	}

	if err := s.emailSvc.SendPasswordReset(ctx, user.Email, token); err != nil {
		s.logger.Error().Err(err).Str("user_id", user.ID.String()).Msg("failed to send password reset email")
	}
	return nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, req *model.ResetPasswordRequest) error {
	userID, err := s.tokenRepo.ValidateResetToken(ctx, req.Token)
	if err != nil {
		return err
	}

	hash, err := security.HashPassword(req.NewPassword)
	if err != nil {
		return errors.Internal(err)
	}

	if err := s.userRepo.UpdatePassword(ctx, userID, hash, s.clock.Now()); err != nil {
		return err
	}

	if err := s.tokenRepo.InvalidateResetToken(ctx, req.Token); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate reset token")
	}
	return nil
}

func (s *Service) issueTokens(userID uuid.UUID) (*model.TokenResponse, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, errors.Internal(err)
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}
